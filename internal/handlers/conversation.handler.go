package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	xhttp "github.com/lodgio/whatsapp-gateway/pkg/http"
)

type ConversationService interface {
	SendText(ctx context.Context, tenantID uuid.UUID, to, text string) (*model.Message, error)
	RecordOutbound(ctx context.Context, tenantID uuid.UUID, to, wamid string, msgType model.MessageType, content string) (*model.Message, error)
	ListConversations(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error)
	ListMessages(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
}

type ConversationHandler struct {
	svc ConversationService
}

func RegisterConversationRoutes(e *router.Group, h *ConversationHandler) {
	e.POST("/tenants/{id}/messages", h.SendMessage)
	e.POST("/tenants/{id}/messages/record", h.RecordMessage)
	e.GET("/tenants/{id}/conversations", h.ListConversations)
	e.GET("/conversations/{id}/messages", h.ListMessages)
}

func NewConversationHandler(conversationService ConversationService) *ConversationHandler {
	return &ConversationHandler{
		svc: conversationService,
	}
}

type sendMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type recordMessageRequest struct {
	To      string `json:"to"`
	Wamid   string `json:"wamid"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type conversationListResponse struct {
	Items []*model.Conversation `json:"items"`
	Total int64                 `json:"total"`
}

type messageListResponse struct {
	Items []*model.Message `json:"items"`
	Total int64            `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ConversationHandler) SendMessage(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	msg, err := h.svc.SendText(ctx, tenantID, req.To, req.Text)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, msg)
}

// RecordMessage files a message that already went out upstream, template and
// media sends from other tooling included, so the ledger stays complete.
func (h *ConversationHandler) RecordMessage(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	var req recordMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Wamid == "" {
		writeError(ctx, 400, "wamid is required")
		return
	}
	msgType, ok := model.ParseMessageType(req.Type)
	if !ok {
		writeError(ctx, 400, "unknown message type: "+req.Type)
		return
	}

	msg, err := h.svc.RecordOutbound(ctx, tenantID, req.To, req.Wamid, msgType, req.Content)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, msg)
}

func (h *ConversationHandler) ListConversations(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	f := model.ConversationFilter{
		TenantID: tenantID,
		Limit:    queryInt(ctx, "limit"),
		Offset:   queryInt(ctx, "offset"),
	}

	items, total, err := h.svc.ListConversations(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, conversationListResponse{Items: items, Total: total})
}

func (h *ConversationHandler) ListMessages(ctx *xhttp.RequestCtx) {
	conversationID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid conversation id")
		return
	}

	f := model.MessageFilter{
		ConversationID: conversationID,
		Limit:          queryInt(ctx, "limit"),
		Offset:         queryInt(ctx, "offset"),
		Desc:           strings.EqualFold(query(ctx, "order"), "desc"),
	}

	items, total, err := h.svc.ListMessages(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, messageListResponse{Items: items, Total: total})
}
