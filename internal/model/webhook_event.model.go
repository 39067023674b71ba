package model

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is the audit record for a single webhook entry. TenantID is nil
// when the entry's WABA identifier matched no known tenant; such events are
// kept for later reconciliation. Every accepted entry is persisted before any
// handler runs, so processing failures can be replayed from here.
type WebhookEvent struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	EventType  string     `json:"event_type"`
	Payload    []byte     `json:"payload"`
	Processed  bool       `json:"processed"`
	ReceivedAt time.Time  `json:"received_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
