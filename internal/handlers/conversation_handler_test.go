package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) SendText(ctx context.Context, tenantID uuid.UUID, to, text string) (*model.Message, error) {
	args := m.Called(ctx, tenantID, to, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockConversationService) RecordOutbound(ctx context.Context, tenantID uuid.UUID, to, wamid string, msgType model.MessageType, content string) (*model.Message, error) {
	args := m.Called(ctx, tenantID, to, wamid, msgType, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockConversationService) ListConversations(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockConversationService) ListMessages(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}

func TestConversationHandler_SendMessage(t *testing.T) {
	t.Run("successful send", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		msg := &model.Message{
			ID:         uuid.New(),
			WhatsAppID: "wamid.ABC",
			Direction:  model.DirectionOutbound,
			Type:       model.TypeText,
			Content:    "Your booking is confirmed",
			Status:     model.StatusSent,
		}
		svc.On("SendText", mock.Anything, tenantID, "15550001111", "Your booking is confirmed").
			Return(msg, nil)

		body, _ := json.Marshal(sendMessageRequest{To: "15550001111", Text: "Your booking is confirmed"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages", body, tenantID)
		handler.SendMessage(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.Message
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "wamid.ABC", response.WhatsAppID)
		assert.Equal(t, model.StatusSent, response.Status)

		svc.AssertExpectations(t)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages", []byte("nope"), tenantID)
		handler.SendMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "SendText")
	})

	t.Run("empty content maps to 400", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		svc.On("SendText", mock.Anything, tenantID, "15550001111", "").
			Return(nil, services.ErrEmptyContent)

		body, _ := json.Marshal(sendMessageRequest{To: "15550001111"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages", body, tenantID)
		handler.SendMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("disconnected tenant maps to 409", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		svc.On("SendText", mock.Anything, tenantID, "15550001111", "hello").
			Return(nil, services.ErrNotConnected)

		body, _ := json.Marshal(sendMessageRequest{To: "15550001111", Text: "hello"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages", body, tenantID)
		handler.SendMessage(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("upstream failure maps to 502", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		svc.On("SendText", mock.Anything, tenantID, "15550001111", "hello").
			Return(nil, &graph.APIError{StatusCode: 500, Body: "upstream down"})

		body, _ := json.Marshal(sendMessageRequest{To: "15550001111", Text: "hello"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages", body, tenantID)
		handler.SendMessage(ctx)

		assert.Equal(t, 502, ctx.Response.StatusCode())
	})
}

func TestConversationHandler_RecordMessage(t *testing.T) {
	t.Run("files a template send", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		msg := &model.Message{
			ID:         uuid.New(),
			WhatsAppID: "wamid.TPL1",
			Direction:  model.DirectionOutbound,
			Type:       model.TypeTemplate,
			Status:     model.StatusSent,
		}
		svc.On("RecordOutbound", mock.Anything, tenantID, "15550001111", "wamid.TPL1", model.TypeTemplate, "booking_confirmed").
			Return(msg, nil)

		body, _ := json.Marshal(recordMessageRequest{
			To:      "15550001111",
			Wamid:   "wamid.TPL1",
			Type:    "template",
			Content: "booking_confirmed",
		})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages/record", body, tenantID)
		handler.RecordMessage(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())

		var response model.Message
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, model.TypeTemplate, response.Type)
		svc.AssertExpectations(t)
	})

	t.Run("empty type defaults to text", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		svc.On("RecordOutbound", mock.Anything, tenantID, "15550001111", "wamid.T1", model.TypeText, "hi").
			Return(&model.Message{ID: uuid.New(), Type: model.TypeText}, nil)

		body, _ := json.Marshal(recordMessageRequest{To: "15550001111", Wamid: "wamid.T1", Content: "hi"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages/record", body, tenantID)
		handler.RecordMessage(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing wamid", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		body, _ := json.Marshal(recordMessageRequest{To: "15550001111", Type: "template"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages/record", body, tenantID)
		handler.RecordMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "RecordOutbound")
	})

	t.Run("unknown type", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		body, _ := json.Marshal(recordMessageRequest{To: "15550001111", Wamid: "wamid.X", Type: "carrier-pigeon"})
		ctx := setupTenantContext("POST", "/tenants/"+tenantID.String()+"/messages/record", body, tenantID)
		handler.RecordMessage(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "RecordOutbound")
	})
}

func TestConversationHandler_ListConversations(t *testing.T) {
	t.Run("successful list with pagination", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		tenantID := uuid.New()
		conversations := []*model.Conversation{
			{ID: uuid.New(), TenantID: tenantID, CustomerWaID: "15550001111"},
			{ID: uuid.New(), TenantID: tenantID, CustomerWaID: "15550002222"},
		}
		svc.On("ListConversations", mock.Anything, mock.MatchedBy(func(f model.ConversationFilter) bool {
			return f.TenantID == tenantID && f.Limit == 20 && f.Offset == 40
		})).Return(conversations, int64(2), nil)

		ctx := setupTenantContext("GET", "/tenants/"+tenantID.String()+"/conversations?limit=20&offset=40", nil, tenantID)
		handler.ListConversations(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response conversationListResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(2), response.Total)
		assert.Len(t, response.Items, 2)

		svc.AssertExpectations(t)
	})

	t.Run("invalid tenant id", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		ctx := setupTestContext("GET", "/tenants/not-a-uuid/conversations", nil)
		ctx.SetUserValue("id", "not-a-uuid")
		handler.ListConversations(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "ListConversations")
	})
}

func TestConversationHandler_ListMessages(t *testing.T) {
	t.Run("successful list", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		conversationID := uuid.New()
		messages := []*model.Message{
			{ID: uuid.New(), ConversationID: conversationID, Content: "first"},
			{ID: uuid.New(), ConversationID: conversationID, Content: "second"},
		}
		svc.On("ListMessages", mock.Anything, mock.MatchedBy(func(f model.MessageFilter) bool {
			return f.ConversationID == conversationID && !f.Desc
		})).Return(messages, int64(2), nil)

		ctx := setupTenantContext("GET", "/conversations/"+conversationID.String()+"/messages", nil, conversationID)
		handler.ListMessages(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response messageListResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, int64(2), response.Total)
		assert.Len(t, response.Items, 2)

		svc.AssertExpectations(t)
	})

	t.Run("desc ordering from query", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		conversationID := uuid.New()
		svc.On("ListMessages", mock.Anything, mock.MatchedBy(func(f model.MessageFilter) bool {
			return f.Desc
		})).Return([]*model.Message{}, int64(0), nil)

		ctx := setupTenantContext("GET", "/conversations/"+conversationID.String()+"/messages?order=desc", nil, conversationID)
		handler.ListMessages(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("unknown conversation maps to 404", func(t *testing.T) {
		svc := new(MockConversationService)
		handler := NewConversationHandler(svc)

		conversationID := uuid.New()
		svc.On("ListMessages", mock.Anything, mock.Anything).
			Return(nil, int64(0), services.ErrConversationNotFound)

		ctx := setupTenantContext("GET", "/conversations/"+conversationID.String()+"/messages", nil, conversationID)
		handler.ListMessages(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}
