package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "INBOUND"
	DirectionOutbound MessageDirection = "OUTBOUND"
)

type MessageType string

const (
	TypeText        MessageType = "TEXT"
	TypeImage       MessageType = "IMAGE"
	TypeAudio       MessageType = "AUDIO"
	TypeVideo       MessageType = "VIDEO"
	TypeDocument    MessageType = "DOCUMENT"
	TypeLocation    MessageType = "LOCATION"
	TypeContact     MessageType = "CONTACT"
	TypeInteractive MessageType = "INTERACTIVE"
	TypeTemplate    MessageType = "TEMPLATE"
	TypeSticker     MessageType = "STICKER"
	TypeReaction    MessageType = "REACTION"
	TypeButton      MessageType = "BUTTON"
	TypeMedia       MessageType = "MEDIA"
	TypeUnknown     MessageType = "UNKNOWN"
)

// MessageStatus is the delivery state of a message.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
	StatusFailed    MessageStatus = "FAILED"
)

// statusRank orders the happy path SENT -> DELIVERED -> READ. FAILED and READ
// are terminal, so they accept no successor.
var statusSuccessors = map[MessageStatus][]MessageStatus{
	StatusSent:      {StatusDelivered, StatusRead, StatusFailed},
	StatusDelivered: {StatusRead, StatusFailed},
	StatusRead:      {},
	StatusFailed:    {},
}

// CanAdvanceTo reports whether next is a strictly later delivery state.
func (s MessageStatus) CanAdvanceTo(next MessageStatus) bool {
	for _, allowed := range statusSuccessors[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseMessageStatus maps a webhook status label to the canonical enum.
func ParseMessageStatus(label string) (MessageStatus, bool) {
	switch label {
	case "sent":
		return StatusSent, true
	case "delivered":
		return StatusDelivered, true
	case "read":
		return StatusRead, true
	case "failed":
		return StatusFailed, true
	}
	return "", false
}

// ParseMessageType maps a type label to the canonical enum, case-insensitive.
// An empty label defaults to TEXT.
func ParseMessageType(label string) (MessageType, bool) {
	if label == "" {
		return TypeText, true
	}
	t := MessageType(strings.ToUpper(label))
	switch t {
	case TypeText, TypeImage, TypeAudio, TypeVideo, TypeDocument, TypeLocation,
		TypeContact, TypeInteractive, TypeTemplate, TypeSticker, TypeReaction,
		TypeButton, TypeMedia:
		return t, true
	}
	return "", false
}

// Message is a single WhatsApp message inside a conversation. WhatsAppID is
// the upstream wamid, the idempotency key for webhook redelivery.
type Message struct {
	ID             uuid.UUID        `json:"id"`
	ConversationID uuid.UUID        `json:"conversation_id"`
	WhatsAppID     string           `json:"whatsapp_message_id"`
	Direction      MessageDirection `json:"direction"`
	Type           MessageType      `json:"message_type"`
	Content        string           `json:"content,omitempty"`
	MediaURL       string           `json:"media_url,omitempty"`
	MediaMimeType  string           `json:"media_mime_type,omitempty"`
	MediaFilename  string           `json:"media_filename,omitempty"`
	MediaID        string           `json:"media_id,omitempty"`
	Status         MessageStatus    `json:"status"`
	StatusUpdated  *time.Time       `json:"status_updated_at,omitempty"`
	SentAt         time.Time        `json:"sent_at"`
	DeliveredAt    *time.Time       `json:"delivered_at,omitempty"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	FailedReason   string           `json:"failed_reason,omitempty"`
}

func (Message) TableName() string { return "messages" }

// ApplyStatus advances the delivery state monotonically. It reports whether
// anything changed; a repeated, earlier, or terminal-violating status is a
// no-op so at-least-once webhook delivery cannot move a message backwards.
func (m *Message) ApplyStatus(next MessageStatus, at time.Time) bool {
	if !m.Status.CanAdvanceTo(next) {
		return false
	}
	m.Status = next
	m.StatusUpdated = &at
	switch next {
	case StatusDelivered:
		m.DeliveredAt = &at
	case StatusRead:
		m.ReadAt = &at
	}
	return true
}

// MessageFilter controls message listing within a conversation.
type MessageFilter struct {
	ConversationID uuid.UUID
	Limit          int // default 50
	Offset         int
	Desc           bool // order by sent_at
}
