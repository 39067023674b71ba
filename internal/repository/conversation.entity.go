package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
)

type ConversationEntity struct {
	ID                uuid.UUID  `db:"id"             gorm:"primaryKey;column:id"`
	TenantID          uuid.UUID  `db:"tenant_id"      gorm:"column:tenant_id;not null;uniqueIndex:idx_conversations_tenant_wa_id"`
	CustomerWaID      string     `db:"customer_wa_id" gorm:"column:customer_wa_id;not null;uniqueIndex:idx_conversations_tenant_wa_id"`
	CustomerPhone     string     `db:"customer_phone" gorm:"column:customer_phone;not null"`
	CustomerName      string     `db:"customer_name"  gorm:"column:customer_name"`
	ProfilePictureURL string     `db:"profile_picture_url" gorm:"column:profile_picture_url"`
	Status            string     `db:"status"         gorm:"column:status;not null"`
	LastMessageAt     *time.Time `db:"last_message_at" gorm:"column:last_message_at;index"`
	CreatedAt         time.Time  `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `db:"updated_at"     gorm:"column:updated_at;autoUpdateTime"`
	Messages          []*MessageEntity `gorm:"foreignKey:ConversationID"`
}

func (ConversationEntity) TableName() string {
	return "conversations"
}

func toConversationEntity(c *model.Conversation) *ConversationEntity {
	if c == nil {
		return nil
	}
	return &ConversationEntity{
		ID:                c.ID,
		TenantID:          c.TenantID,
		CustomerWaID:      c.CustomerWaID,
		CustomerPhone:     c.CustomerPhone,
		CustomerName:      c.CustomerName,
		ProfilePictureURL: c.ProfilePictureURL,
		Status:            string(c.Status),
		LastMessageAt:     c.LastMessageAt,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func toConversationModel(e *ConversationEntity) *model.Conversation {
	if e == nil {
		return nil
	}
	return &model.Conversation{
		ID:                e.ID,
		TenantID:          e.TenantID,
		CustomerWaID:      e.CustomerWaID,
		CustomerPhone:     e.CustomerPhone,
		CustomerName:      e.CustomerName,
		ProfilePictureURL: e.ProfilePictureURL,
		Status:            model.ConversationStatus(e.Status),
		LastMessageAt:     e.LastMessageAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func toConversationModels(entities []*ConversationEntity) []*model.Conversation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Conversation, len(entities))
	for i, e := range entities {
		models[i] = toConversationModel(e)
	}
	return models
}
