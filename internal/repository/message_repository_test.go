package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessage(conversationID uuid.UUID, wamid string) *model.Message {
	return &model.Message{
		ConversationID: conversationID,
		WhatsAppID:     wamid,
		Direction:      model.DirectionInbound,
		Type:           model.TypeText,
		Content:        "hello",
		Status:         model.StatusDelivered,
		SentAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestMessageRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	t.Run("create message successfully", func(t *testing.T) {
		msg := newTestMessage(uuid.New(), "wamid.create-1")

		created, err := repo.Create(ctx, msg)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "wamid.create-1", created.WhatsAppID)
		assert.Equal(t, model.DirectionInbound, created.Direction)
	})

	t.Run("duplicate wamid is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestMessage(uuid.New(), "wamid.dup-1"))
		require.NoError(t, err)

		_, err = repo.Create(ctx, newTestMessage(uuid.New(), "wamid.dup-1"))
		assert.Error(t, err)
	})
}

func TestMessageRepository_GetByWhatsAppID(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestMessage(uuid.New(), "wamid.lookup-1"))
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		got, err := repo.GetByWhatsAppID(ctx, "wamid.lookup-1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown wamid", func(t *testing.T) {
		_, err := repo.GetByWhatsAppID(ctx, "wamid.unknown")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	msg := newTestMessage(uuid.New(), "wamid.update-1")
	msg.Direction = model.DirectionOutbound
	msg.Status = model.StatusSent
	created, err := repo.Create(ctx, msg)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.True(t, created.ApplyStatus(model.StatusDelivered, now))

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, updated.Status)
	require.NotNil(t, updated.DeliveredAt)
	require.NotNil(t, updated.StatusUpdated)
}

func TestMessageRepository_ListByConversation(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMessageRepository(db)
	ctx := context.Background()

	conversationID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		msg := newTestMessage(conversationID, fmt.Sprintf("wamid.list-%d", i))
		msg.SentAt = base.Add(time.Duration(i) * time.Second)
		_, err := repo.Create(ctx, msg)
		require.NoError(t, err)
	}

	t.Run("chronological order", func(t *testing.T) {
		messages, total, err := repo.ListByConversation(ctx, model.MessageFilter{
			ConversationID: conversationID,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, messages, 5)
		assert.Equal(t, "wamid.list-0", messages[0].WhatsAppID)
	})

	t.Run("newest first", func(t *testing.T) {
		messages, _, err := repo.ListByConversation(ctx, model.MessageFilter{
			ConversationID: conversationID,
			Desc:           true,
		})
		require.NoError(t, err)
		require.NotEmpty(t, messages)
		assert.Equal(t, "wamid.list-4", messages[0].WhatsAppID)
	})

	t.Run("pagination", func(t *testing.T) {
		messages, total, err := repo.ListByConversation(ctx, model.MessageFilter{
			ConversationID: conversationID,
			Limit:          2,
			Offset:         4,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, messages, 1)
	})
}
