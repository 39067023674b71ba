package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "ACTIVE"
	ConversationArchived ConversationStatus = "ARCHIVED"
	ConversationBlocked  ConversationStatus = "BLOCKED"
)

// Conversation is the per-customer message thread for a tenant. There is one
// conversation per (tenant, customer wa_id), enforced by find-or-create.
type Conversation struct {
	ID                uuid.UUID          `json:"id"`
	TenantID          uuid.UUID          `json:"tenant_id"`
	CustomerWaID      string             `json:"customer_wa_id"`
	CustomerPhone     string             `json:"customer_phone"`
	CustomerName      string             `json:"customer_name,omitempty"`
	ProfilePictureURL string             `json:"profile_picture_url,omitempty"`
	Status            ConversationStatus `json:"status"`
	LastMessageAt     *time.Time         `json:"last_message_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// ConversationFilter controls conversation listing.
type ConversationFilter struct {
	TenantID uuid.UUID
	Limit    int // default 50
	Offset   int
}
