package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	t.Run("attributed event", func(t *testing.T) {
		tenantID := uuid.New()
		created, err := repo.Create(ctx, &model.WebhookEvent{
			TenantID:  &tenantID,
			EventType: "messages",
			Payload:   []byte(`{"object":"whatsapp_business_account"}`),
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.False(t, created.Processed)
		assert.NotZero(t, created.ReceivedAt)
	})

	t.Run("unattributed event keeps nil tenant", func(t *testing.T) {
		created, err := repo.Create(ctx, &model.WebhookEvent{
			EventType: "messages",
			Payload:   []byte(`{}`),
		})
		require.NoError(t, err)
		assert.Nil(t, created.TenantID)
	})
}

func TestWebhookEventRepository_MarkProcessed(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	created, err := repo.Create(ctx, &model.WebhookEvent{
		TenantID:  &tenantID,
		EventType: "account_update",
		Payload:   []byte(`{}`),
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkProcessed(ctx, created.ID))

	events, _, err := repo.ListByTenant(ctx, tenantID, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Processed)

	t.Run("unknown event", func(t *testing.T) {
		err := repo.MarkProcessed(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestWebhookEventRepository_ListUnattributed(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	_, err := repo.Create(ctx, &model.WebhookEvent{TenantID: &tenantID, EventType: "messages", Payload: []byte(`{}`)})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.WebhookEvent{EventType: "messages", Payload: []byte(`{}`)})
		require.NoError(t, err)
	}

	events, err := repo.ListUnattributed(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	for _, e := range events {
		assert.Nil(t, e.TenantID)
	}
}
