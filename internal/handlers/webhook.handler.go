package handlers

import (
	"context"

	"github.com/fasthttp/router"
	xhttp "github.com/lodgio/whatsapp-gateway/pkg/http"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
)

// WebhookPublisher enqueues a raw webhook payload for asynchronous processing.
type WebhookPublisher interface {
	Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error)
}

type WebhookHandler struct {
	queue       WebhookPublisher
	verifyToken string
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.GET("/webhook", h.VerifyWebhook)
	e.POST("/webhook", h.ReceiveWebhook)
}

func NewWebhookHandler(queue WebhookPublisher, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		queue:       queue,
		verifyToken: verifyToken,
	}
}

// VerifyWebhook answers Meta's subscription handshake: echo hub.challenge when
// the mode is "subscribe" and the verify token matches, 401 otherwise.
func (h *WebhookHandler) VerifyWebhook(ctx *xhttp.RequestCtx) {
	mode := query(ctx, "hub.mode")
	token := query(ctx, "hub.verify_token")
	challenge := query(ctx, "hub.challenge")

	if mode != "subscribe" || token == "" || token != h.verifyToken {
		ctx.Response.SetStatusCode(401)
		return
	}

	ctx.Response.SetStatusCode(200)
	ctx.Response.SetBodyString(challenge)
}

// ReceiveWebhook enqueues the raw payload and always acknowledges with 200.
// Meta disables webhooks for endpoints that keep failing, so an enqueue
// failure is logged and the delivery is still acknowledged; the platform
// redelivers and the idempotent consumer absorbs the duplicates.
func (h *WebhookHandler) ReceiveWebhook(ctx *xhttp.RequestCtx) {
	body := append([]byte(nil), ctx.PostBody()...)

	if _, err := h.queue.Publish(ctx, body, nil); err != nil {
		logger.Error("failed to enqueue webhook delivery", "error", err)
	}

	ctx.Response.SetStatusCode(200)
	ctx.Response.SetBodyString("EVENT_RECEIVED")
}
