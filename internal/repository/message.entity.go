package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
)

type MessageEntity struct {
	ID             uuid.UUID  `db:"id"              gorm:"primaryKey;column:id"`
	ConversationID uuid.UUID  `db:"conversation_id" gorm:"column:conversation_id;not null;index"`
	WhatsAppID     string     `db:"whatsapp_message_id" gorm:"column:whatsapp_message_id;not null;uniqueIndex"`
	Direction      string     `db:"direction"       gorm:"column:direction;not null"`
	Type           string     `db:"message_type"    gorm:"column:message_type;not null"`
	Content        string     `db:"content"         gorm:"column:content"`
	MediaURL       string     `db:"media_url"       gorm:"column:media_url"`
	MediaMimeType  string     `db:"media_mime_type" gorm:"column:media_mime_type"`
	MediaFilename  string     `db:"media_filename"  gorm:"column:media_filename"`
	MediaID        string     `db:"media_id"        gorm:"column:media_id"`
	Status         string     `db:"status"          gorm:"column:status;not null"`
	StatusUpdated  *time.Time `db:"status_updated_at" gorm:"column:status_updated_at"`
	SentAt         time.Time  `db:"sent_at"         gorm:"column:sent_at;index"`
	DeliveredAt    *time.Time `db:"delivered_at"    gorm:"column:delivered_at"`
	ReadAt         *time.Time `db:"read_at"         gorm:"column:read_at"`
	FailedReason   string     `db:"failed_reason"   gorm:"column:failed_reason"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		WhatsAppID:     m.WhatsAppID,
		Direction:      string(m.Direction),
		Type:           string(m.Type),
		Content:        m.Content,
		MediaURL:       m.MediaURL,
		MediaMimeType:  m.MediaMimeType,
		MediaFilename:  m.MediaFilename,
		MediaID:        m.MediaID,
		Status:         string(m.Status),
		StatusUpdated:  m.StatusUpdated,
		SentAt:         m.SentAt,
		DeliveredAt:    m.DeliveredAt,
		ReadAt:         m.ReadAt,
		FailedReason:   m.FailedReason,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:             e.ID,
		ConversationID: e.ConversationID,
		WhatsAppID:     e.WhatsAppID,
		Direction:      model.MessageDirection(e.Direction),
		Type:           model.MessageType(e.Type),
		Content:        e.Content,
		MediaURL:       e.MediaURL,
		MediaMimeType:  e.MediaMimeType,
		MediaFilename:  e.MediaFilename,
		MediaID:        e.MediaID,
		Status:         model.MessageStatus(e.Status),
		StatusUpdated:  e.StatusUpdated,
		SentAt:         e.SentAt,
		DeliveredAt:    e.DeliveredAt,
		ReadAt:         e.ReadAt,
		FailedReason:   e.FailedReason,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
