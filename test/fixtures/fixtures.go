package fixtures

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
)

func NewDisconnectedTenant(businessName string) *model.Tenant {
	return &model.Tenant{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		BusinessName: businessName,
		Status:       model.ConnectionDisconnected,
	}
}

func NewConnectedTenant(businessName, wabaID, phoneNumberID string) *model.Tenant {
	expires := time.Now().Add(60 * 24 * time.Hour)
	return &model.Tenant{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		BusinessName:  businessName,
		WabaID:        wabaID,
		PhoneNumberID: phoneNumberID,
		PhoneNumber:   "+15550000000",
		AccessToken:   "test-access-token",
		RefreshToken:  "test-refresh-token",
		TokenExpires:  &expires,
		Status:        model.ConnectionConnected,
		WebhookSecret: uuid.NewString(),
	}
}

func NewConversation(tenantID uuid.UUID, waID string) *model.Conversation {
	return &model.Conversation{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CustomerWaID:  waID,
		CustomerPhone: waID,
		Status:        model.ConversationActive,
	}
}

func NewOutboundMessage(conversationID uuid.UUID, wamid, content string) *model.Message {
	return &model.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		WhatsAppID:     wamid,
		Direction:      model.DirectionOutbound,
		Type:           model.TypeText,
		Content:        content,
		Status:         model.StatusSent,
		SentAt:         time.Now(),
	}
}

// InboundTextPayload builds a raw webhook delivery carrying one inbound text
// message, in the shape Meta sends for the "messages" field.
func InboundTextPayload(wabaID, waID, wamid, text string, ts time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": %q,
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"contacts": [{"wa_id": %q, "profile": {"name": "Test Customer"}}],
					"messages": [{
						"id": %q,
						"from": %q,
						"timestamp": %q,
						"type": "text",
						"text": {"body": %q}
					}]
				}
			}]
		}]
	}`, wabaID, waID, wamid, waID, fmt.Sprintf("%d", ts.Unix()), text))
}

// StatusUpdatePayload builds a raw webhook delivery carrying one delivery
// status update for an outbound message.
func StatusUpdatePayload(wabaID, wamid, status string, ts time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": %q,
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"statuses": [{
						"id": %q,
						"status": %q,
						"timestamp": %q,
						"recipient_id": "15550001111"
					}]
				}
			}]
		}]
	}`, wabaID, wamid, status, fmt.Sprintf("%d", ts.Unix())))
}

// AccountUpdatePayload builds a raw webhook delivery for the account_update
// field.
func AccountUpdatePayload(wabaID, event string) []byte {
	return []byte(fmt.Sprintf(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": %q,
			"changes": [{
				"field": "account_update",
				"value": {"event": %q}
			}]
		}]
	}`, wabaID, event))
}

var (
	ValidWaIDs = []string{
		"15550001111",
		"447700900123",
		"4915112345678",
	}

	ValidPins   = []string{"000000", "123456", "999999"}
	InvalidPins = []string{"", "12345", "1234567", "12345a"}
)
