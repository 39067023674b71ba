package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
)

type WebhookEventEntity struct {
	ID         uuid.UUID  `db:"id"          gorm:"primaryKey;column:id"`
	TenantID   *uuid.UUID `db:"tenant_id"   gorm:"column:tenant_id;index"`
	EventType  string     `db:"event_type"  gorm:"column:event_type;not null"`
	Payload    []byte     `db:"payload"     gorm:"column:payload"`
	Processed  bool       `db:"processed"   gorm:"column:processed;not null;default:false"`
	ReceivedAt time.Time  `db:"received_at" gorm:"column:received_at;autoCreateTime"`
}

func (WebhookEventEntity) TableName() string {
	return "webhook_events"
}

func toWebhookEventEntity(e *model.WebhookEvent) *WebhookEventEntity {
	if e == nil {
		return nil
	}
	return &WebhookEventEntity{
		ID:         e.ID,
		TenantID:   e.TenantID,
		EventType:  e.EventType,
		Payload:    e.Payload,
		Processed:  e.Processed,
		ReceivedAt: e.ReceivedAt,
	}
}

func toWebhookEventModel(e *WebhookEventEntity) *model.WebhookEvent {
	if e == nil {
		return nil
	}
	return &model.WebhookEvent{
		ID:         e.ID,
		TenantID:   e.TenantID,
		EventType:  e.EventType,
		Payload:    e.Payload,
		Processed:  e.Processed,
		ReceivedAt: e.ReceivedAt,
	}
}

func toWebhookEventModels(entities []*WebhookEventEntity) []*model.WebhookEvent {
	if entities == nil {
		return nil
	}
	models := make([]*model.WebhookEvent, len(entities))
	for i, e := range entities {
		models[i] = toWebhookEventModel(e)
	}
	return models
}
