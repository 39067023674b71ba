package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type conversationFixture struct {
	svc    *ConversationService
	convs  *MockConversationRepository
	msgs   *MockMessageRepository
	api    *MockGraphAPI
	repo   *MockTenantRepository
	tenant *model.Tenant
}

func newConversationFixture() *conversationFixture {
	convs := new(MockConversationRepository)
	msgs := new(MockMessageRepository)
	api := new(MockGraphAPI)
	repo := new(MockTenantRepository)
	cache := NewClientCache(repo)
	return &conversationFixture{
		svc:    NewConversationService(convs, msgs, api, cache),
		convs:  convs,
		msgs:   msgs,
		api:    api,
		repo:   repo,
		tenant: connectedTenant(),
	}
}

func inboundText(wamid, from, body string) *graph.Message {
	return &graph.Message{
		ID:        wamid,
		From:      from,
		Timestamp: "1700000000",
		Type:      "text",
		Text:      &graph.Text{Body: body},
	}
}

func TestConversationService_SendText(t *testing.T) {
	ctx := context.Background()

	t.Run("sends and records outbound message", func(t *testing.T) {
		f := newConversationFixture()
		f.repo.On("GetByTenantID", ctx, f.tenant.TenantID).Return(f.tenant, nil)
		f.api.On("SendText", ctx, "phone-1", "tok-1", "15550001111", "hello").Return(&graph.SendMessageResponse{
			Messages: []graph.SendMessageID{{ID: "wamid.out-1"}},
		}, nil)

		conv := &model.Conversation{ID: uuid.New(), TenantID: f.tenant.TenantID, CustomerWaID: "15550001111"}
		f.convs.On("GetByTenantAndWaID", ctx, f.tenant.TenantID, "15550001111").Return(conv, nil)
		f.convs.On("Update", ctx, conv).Return(conv, nil)
		f.msgs.On("Create", ctx, mock.AnythingOfType("*model.Message")).Return(&model.Message{
			ID:         uuid.New(),
			WhatsAppID: "wamid.out-1",
			Direction:  model.DirectionOutbound,
			Status:     model.StatusSent,
		}, nil)

		msg, err := f.svc.SendText(ctx, f.tenant.TenantID, "15550001111", "hello")
		require.NoError(t, err)
		assert.Equal(t, "wamid.out-1", msg.WhatsAppID)
		assert.Equal(t, model.StatusSent, msg.Status)

		created := f.msgs.Calls[0].Arguments.Get(1).(*model.Message)
		assert.Equal(t, model.DirectionOutbound, created.Direction)
		assert.Equal(t, model.TypeText, created.Type)
		assert.Equal(t, conv.ID, created.ConversationID)
		f.api.AssertExpectations(t)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		f := newConversationFixture()
		_, err := f.svc.SendText(ctx, f.tenant.TenantID, "15550001111", "   ")
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		f := newConversationFixture()
		_, err := f.svc.SendText(ctx, f.tenant.TenantID, "", "hello")
		assert.ErrorIs(t, err, ErrEmptyRecipient)
	})

	t.Run("refuses to send for a disconnected tenant", func(t *testing.T) {
		f := newConversationFixture()
		f.tenant.Status = model.ConnectionDisconnected
		f.repo.On("GetByTenantID", ctx, f.tenant.TenantID).Return(f.tenant, nil)

		_, err := f.svc.SendText(ctx, f.tenant.TenantID, "15550001111", "hello")
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestConversationService_RecordOutbound(t *testing.T) {
	ctx := context.Background()

	t.Run("files an out-of-band template send", func(t *testing.T) {
		f := newConversationFixture()
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.tpl-1").Return(nil, repository.ErrNotFound)

		conv := &model.Conversation{ID: uuid.New(), TenantID: f.tenant.TenantID, CustomerWaID: "15550001111"}
		f.convs.On("GetByTenantAndWaID", ctx, f.tenant.TenantID, "15550001111").Return(conv, nil)
		f.convs.On("Update", ctx, conv).Return(conv, nil)
		f.msgs.On("Create", ctx, mock.AnythingOfType("*model.Message")).Return(&model.Message{
			ID:         uuid.New(),
			WhatsAppID: "wamid.tpl-1",
			Type:       model.TypeTemplate,
			Status:     model.StatusSent,
		}, nil)

		msg, err := f.svc.RecordOutbound(ctx, f.tenant.TenantID, "15550001111", "wamid.tpl-1", model.TypeTemplate, "booking_confirmed")
		require.NoError(t, err)
		assert.Equal(t, model.TypeTemplate, msg.Type)

		created := f.msgs.Calls[1].Arguments.Get(1).(*model.Message)
		assert.Equal(t, model.DirectionOutbound, created.Direction)
		assert.Equal(t, model.StatusSent, created.Status)
	})

	t.Run("duplicate wamid returns the existing record", func(t *testing.T) {
		f := newConversationFixture()
		existing := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.tpl-1"}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.tpl-1").Return(existing, nil)

		msg, err := f.svc.RecordOutbound(ctx, f.tenant.TenantID, "15550001111", "wamid.tpl-1", model.TypeTemplate, "x")
		require.NoError(t, err)
		assert.Same(t, existing, msg)
		f.msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		f := newConversationFixture()
		_, err := f.svc.RecordOutbound(ctx, f.tenant.TenantID, " ", "wamid.x", model.TypeText, "hi")
		assert.ErrorIs(t, err, ErrEmptyRecipient)
	})
}

func TestConversationService_RecordInbound(t *testing.T) {
	ctx := context.Background()

	t.Run("creates conversation and message", func(t *testing.T) {
		f := newConversationFixture()
		in := inboundText("wamid.in-1", "15550002222", "hi there")
		contact := &graph.Contact{WaID: "15550002222", Profile: graph.ContactProfile{Name: "Dana"}}

		f.msgs.On("GetByWhatsAppID", ctx, "wamid.in-1").Return(nil, repository.ErrNotFound)
		f.convs.On("GetByTenantAndWaID", ctx, f.tenant.TenantID, "15550002222").Return(nil, repository.ErrConversationNotFound)
		conv := &model.Conversation{ID: uuid.New(), TenantID: f.tenant.TenantID, CustomerWaID: "15550002222", CustomerName: "Dana"}
		f.convs.On("Create", ctx, mock.AnythingOfType("*model.Conversation")).Return(conv, nil)
		f.convs.On("Update", ctx, conv).Return(conv, nil)
		f.msgs.On("Create", ctx, mock.AnythingOfType("*model.Message")).Return(&model.Message{ID: uuid.New(), WhatsAppID: "wamid.in-1"}, nil)

		_, err := f.svc.RecordInbound(ctx, f.tenant.TenantID, in, contact)
		require.NoError(t, err)

		var createdMsg *model.Message
		for _, call := range f.msgs.Calls {
			if call.Method == "Create" {
				createdMsg = call.Arguments.Get(1).(*model.Message)
			}
		}
		require.NotNil(t, createdMsg)
		assert.Equal(t, model.DirectionInbound, createdMsg.Direction)
		assert.Equal(t, model.TypeText, createdMsg.Type)
		assert.Equal(t, "hi there", createdMsg.Content)
		assert.Equal(t, model.StatusDelivered, createdMsg.Status)
		require.NotNil(t, createdMsg.DeliveredAt)
		assert.Equal(t, time.Unix(1700000000, 0).UTC(), createdMsg.SentAt)
	})

	t.Run("redelivered wamid is a no-op", func(t *testing.T) {
		f := newConversationFixture()
		in := inboundText("wamid.in-2", "15550002222", "hi again")
		existing := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.in-2"}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.in-2").Return(existing, nil)

		got, err := f.svc.RecordInbound(ctx, f.tenant.TenantID, in, nil)
		require.NoError(t, err)
		assert.Same(t, existing, got)
		f.msgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.convs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("latest profile name wins", func(t *testing.T) {
		f := newConversationFixture()
		in := inboundText("wamid.in-3", "15550002222", "hello")
		contact := &graph.Contact{WaID: "15550002222", Profile: graph.ContactProfile{Name: "Dana R"}}

		conv := &model.Conversation{ID: uuid.New(), TenantID: f.tenant.TenantID, CustomerWaID: "15550002222", CustomerName: "Dana"}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.in-3").Return(nil, repository.ErrNotFound)
		f.convs.On("GetByTenantAndWaID", ctx, f.tenant.TenantID, "15550002222").Return(conv, nil)
		f.convs.On("Update", ctx, conv).Return(conv, nil)
		f.msgs.On("Create", ctx, mock.AnythingOfType("*model.Message")).Return(&model.Message{ID: uuid.New()}, nil)

		_, err := f.svc.RecordInbound(ctx, f.tenant.TenantID, in, contact)
		require.NoError(t, err)
		assert.Equal(t, "Dana R", conv.CustomerName)
	})

	t.Run("unrecognized payload shape is stored as unknown", func(t *testing.T) {
		f := newConversationFixture()
		in := &graph.Message{ID: "wamid.in-4", From: "15550002222", Timestamp: "1700000000", Type: "ephemeral"}

		conv := &model.Conversation{ID: uuid.New(), TenantID: f.tenant.TenantID, CustomerWaID: "15550002222"}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.in-4").Return(nil, repository.ErrNotFound)
		f.convs.On("GetByTenantAndWaID", ctx, f.tenant.TenantID, "15550002222").Return(conv, nil)
		f.convs.On("Update", ctx, conv).Return(conv, nil)
		f.msgs.On("Create", ctx, mock.AnythingOfType("*model.Message")).Return(&model.Message{ID: uuid.New()}, nil)

		_, err := f.svc.RecordInbound(ctx, f.tenant.TenantID, in, nil)
		require.NoError(t, err)

		created := f.msgs.Calls[len(f.msgs.Calls)-1].Arguments.Get(1).(*model.Message)
		assert.Equal(t, model.TypeUnknown, created.Type)
	})
}

func TestConversationService_ApplyStatusUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("advances status forward", func(t *testing.T) {
		f := newConversationFixture()
		msg := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.out-1", Status: model.StatusSent}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.out-1").Return(msg, nil)
		f.msgs.On("Update", ctx, msg).Return(msg, nil)

		err := f.svc.ApplyStatusUpdate(ctx, &graph.Status{ID: "wamid.out-1", Status: "delivered", Timestamp: "1700000100"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusDelivered, msg.Status)
		require.NotNil(t, msg.DeliveredAt)
	})

	t.Run("regression is dropped", func(t *testing.T) {
		f := newConversationFixture()
		msg := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.out-2", Status: model.StatusRead}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.out-2").Return(msg, nil)

		err := f.svc.ApplyStatusUpdate(ctx, &graph.Status{ID: "wamid.out-2", Status: "delivered", Timestamp: "1700000100"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusRead, msg.Status)
		f.msgs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown wamid is dropped", func(t *testing.T) {
		f := newConversationFixture()
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.ghost").Return(nil, repository.ErrNotFound)

		err := f.svc.ApplyStatusUpdate(ctx, &graph.Status{ID: "wamid.ghost", Status: "read"})
		assert.NoError(t, err)
	})

	t.Run("unknown label is dropped", func(t *testing.T) {
		f := newConversationFixture()
		msg := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.out-3", Status: model.StatusSent}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.out-3").Return(msg, nil)

		err := f.svc.ApplyStatusUpdate(ctx, &graph.Status{ID: "wamid.out-3", Status: "warehoused"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusSent, msg.Status)
	})

	t.Run("failure records the upstream reason", func(t *testing.T) {
		f := newConversationFixture()
		msg := &model.Message{ID: uuid.New(), WhatsAppID: "wamid.out-4", Status: model.StatusSent}
		f.msgs.On("GetByWhatsAppID", ctx, "wamid.out-4").Return(msg, nil)
		f.msgs.On("Update", ctx, msg).Return(msg, nil)

		err := f.svc.ApplyStatusUpdate(ctx, &graph.Status{
			ID:     "wamid.out-4",
			Status: "failed",
			Errors: []graph.StatusError{{Code: 131026, Title: "Undeliverable", Message: "recipient opted out"}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, msg.Status)
		assert.Equal(t, "recipient opted out", msg.FailedReason)
	})
}

func TestConversationService_ListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown conversation", func(t *testing.T) {
		f := newConversationFixture()
		id := uuid.New()
		f.convs.On("GetByID", ctx, id).Return(nil, repository.ErrConversationNotFound)

		_, _, err := f.svc.ListMessages(ctx, model.MessageFilter{ConversationID: id})
		assert.ErrorIs(t, err, ErrConversationNotFound)
	})

	t.Run("delegates to repository", func(t *testing.T) {
		f := newConversationFixture()
		id := uuid.New()
		filter := model.MessageFilter{ConversationID: id, Limit: 10}
		f.convs.On("GetByID", ctx, id).Return(&model.Conversation{ID: id}, nil)
		f.msgs.On("ListByConversation", ctx, filter).Return([]*model.Message{{ID: uuid.New()}}, int64(1), nil)

		messages, total, err := f.svc.ListMessages(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, messages, 1)
	})
}
