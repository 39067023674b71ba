package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/stretchr/testify/mock"
)

func graphToken(access, refresh string, exp *time.Time) *graph.Token {
	return &graph.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
	}
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Exists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByWabaID(ctx context.Context, wabaID string) (*model.Tenant, error) {
	args := m.Called(ctx, wabaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]*model.Tenant, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Tenant), args.Get(1).(int64), args.Error(2)
}

type MockGraphAPI struct {
	mock.Mock
}

func (m *MockGraphAPI) AuthorizeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockGraphAPI) ExchangeCode(ctx context.Context, code string) (*graph.Token, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*graph.Token), args.Error(1)
}

func (m *MockGraphAPI) RefreshToken(ctx context.Context, refreshToken string) (*graph.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*graph.Token), args.Error(1)
}

func (m *MockGraphAPI) SubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error {
	args := m.Called(ctx, wabaID, accessToken)
	return args.Error(0)
}

func (m *MockGraphAPI) UnsubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error {
	args := m.Called(ctx, wabaID, accessToken)
	return args.Error(0)
}

func (m *MockGraphAPI) RegisterPhone(ctx context.Context, phoneNumberID, accessToken, pin string) error {
	args := m.Called(ctx, phoneNumberID, accessToken, pin)
	return args.Error(0)
}

func (m *MockGraphAPI) SendText(ctx context.Context, phoneNumberID, accessToken, to, text string) (*graph.SendMessageResponse, error) {
	args := m.Called(ctx, phoneNumberID, accessToken, to, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*graph.SendMessageResponse), args.Error(1)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	args := m.Called(ctx, conv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetByTenantAndWaID(ctx context.Context, tenantID uuid.UUID, waID string) (*model.Conversation, error) {
	args := m.Called(ctx, tenantID, waID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Update(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	args := m.Called(ctx, conv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListByTenant(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Conversation), args.Get(1).(int64), args.Error(2)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) GetByWhatsAppID(ctx context.Context, wamid string) (*model.Message, error) {
	args := m.Called(ctx, wamid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) Update(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageRepository) ListByConversation(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Message), args.Get(1).(int64), args.Error(2)
}
