package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a message does not exist.
	ErrNotFound = errors.New("message not found")
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{
		db,
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	entity := toMessageEntity(msg)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMessageModel(entity), nil
}

// GetByWhatsAppID resolves the upstream wamid. Webhook redelivery and status
// updates both key on this.
func (r *MessageRepository) GetByWhatsAppID(ctx context.Context, wamid string) (*model.Message, error) {
	var entity MessageEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("whatsapp_message_id = ?", wamid).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toMessageModel(&entity), nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var entity MessageEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return toMessageModel(&entity), nil
}

func (r *MessageRepository) Update(ctx context.Context, msg *model.Message) (*model.Message, error) {
	entity := toMessageEntity(msg)

	result := r.Write(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("id = ?", entity.ID).
		Select("status", "status_updated_at", "delivered_at", "read_at", "failed_reason").
		Updates(entity)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, msg.ID)
}

func (r *MessageRepository) ListByConversation(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&MessageEntity{}).
		Where("conversation_id = ?", f.ConversationID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "sent_at"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*MessageEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toMessageModels(entities), total, nil
}
