package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/pkg/pg"
)

var (
	ErrEventNotFound = errors.New("webhook event not found")
)

type WebhookEventRepository struct {
	*pg.DB
}

func NewWebhookEventRepository(db *pg.DB) *WebhookEventRepository {
	return &WebhookEventRepository{
		db,
	}
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error) {
	entity := toWebhookEventEntity(event)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toWebhookEventModel(entity), nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&WebhookEventEntity{}).
		Where("id = ?", id).
		Update("processed", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListUnattributed returns events whose WABA matched no tenant at receive
// time, oldest first, for reconciliation after onboarding completes.
func (r *WebhookEventRepository) ListUnattributed(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	var entities []*WebhookEventEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("tenant_id IS NULL").
		Order("received_at ASC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toWebhookEventModels(entities), nil
}

func (r *WebhookEventRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*model.WebhookEvent, int64, error) {
	q := r.Read(ctx).WithContext(ctx).
		Model(&WebhookEventEntity{}).
		Where("tenant_id = ?", tenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*WebhookEventEntity
	err := q.Order("received_at DESC").Limit(limit).Offset(offset).Find(&entities).Error
	if err != nil {
		return nil, 0, err
	}

	return toWebhookEventModels(entities), total, nil
}
