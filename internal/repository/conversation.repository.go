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
	ErrConversationNotFound = errors.New("conversation not found")
)

type ConversationRepository struct {
	*pg.DB
}

func NewConversationRepository(db *pg.DB) *ConversationRepository {
	return &ConversationRepository{
		db,
	}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	entity := toConversationEntity(conv)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	if entity.Status == "" {
		entity.Status = string(model.ConversationActive)
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toConversationModel(entity), nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	return r.getBy(ctx, "id = ?", id)
}

// GetByTenantAndWaID looks up the single thread for a (tenant, customer) pair.
func (r *ConversationRepository) GetByTenantAndWaID(ctx context.Context, tenantID uuid.UUID, waID string) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND customer_wa_id = ?", tenantID, waID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	return toConversationModel(&entity), nil
}

func (r *ConversationRepository) GetByTenantAndPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id = ? AND customer_phone = ?", tenantID, phone).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	return toConversationModel(&entity), nil
}

func (r *ConversationRepository) getBy(ctx context.Context, query string, arg interface{}) (*model.Conversation, error) {
	var entity ConversationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where(query, arg).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	return toConversationModel(&entity), nil
}

func (r *ConversationRepository) Update(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	entity := toConversationEntity(conv)

	result := r.Write(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("id = ?", entity.ID).
		Select("customer_phone", "customer_name", "profile_picture_url", "status", "last_message_at").
		Updates(entity)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrConversationNotFound
	}

	return r.getBy(ctx, "id = ?", entity.ID)
}

// ListByTenant returns the tenant's threads, most recently active first.
func (r *ConversationRepository) ListByTenant(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&ConversationEntity{}).
		Where("tenant_id = ?", f.TenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*ConversationEntity
	err := q.Order("last_message_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error
	if err != nil {
		return nil, 0, err
	}

	return toConversationModels(entities), total, nil
}
