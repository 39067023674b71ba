package model

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a tenant's WhatsApp connection.
type ConnectionStatus string

const (
	ConnectionDisconnected       ConnectionStatus = "DISCONNECTED"
	ConnectionConnecting         ConnectionStatus = "CONNECTING"
	ConnectionVerificationNeeded ConnectionStatus = "VERIFICATION_NEEDED"
	ConnectionConnected          ConnectionStatus = "CONNECTED"
	ConnectionError              ConnectionStatus = "ERROR"
)

// connectionTransitions enumerates every legal (from, to) pair. All status
// mutations go through Tenant.TransitionTo so validity is checked in exactly
// one place.
var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionDisconnected:       {ConnectionConnecting},
	ConnectionConnecting:         {ConnectionVerificationNeeded, ConnectionError, ConnectionDisconnected},
	ConnectionVerificationNeeded: {ConnectionConnected, ConnectionError, ConnectionDisconnected},
	ConnectionConnected:          {ConnectionError, ConnectionDisconnected},
	ConnectionError:              {ConnectionConnecting, ConnectionConnected, ConnectionDisconnected},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s ConnectionStatus) CanTransition(next ConnectionStatus) bool {
	for _, allowed := range connectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Tenant is a business customer with a WhatsApp Business Account connection.
// TenantID is the platform-assigned identity; ID is internal storage identity.
type Tenant struct {
	ID            uuid.UUID        `json:"id"`
	TenantID      uuid.UUID        `json:"tenant_id"`
	BusinessName  string           `json:"business_name"`
	WabaID        string           `json:"waba_id,omitempty"`
	PhoneNumberID string           `json:"phone_number_id,omitempty"`
	PhoneNumber   string           `json:"phone_number,omitempty"`
	AccessToken   string           `json:"-"`
	RefreshToken  string           `json:"-"`
	TokenExpires  *time.Time       `json:"token_expires_at,omitempty"`
	Status        ConnectionStatus `json:"connection_status"`
	WebhookSecret string           `json:"-"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// TransitionTo applies a lifecycle transition, rejecting illegal pairs.
func (t *Tenant) TransitionTo(next ConnectionStatus) bool {
	if !t.Status.CanTransition(next) {
		return false
	}
	t.Status = next
	return true
}

// Connected reports whether the tenant is in the final usable state.
func (t *Tenant) Connected() bool {
	return t.Status == ConnectionConnected
}

// TokenExpired is derived from the stored expiry, never a stored flag.
func (t *Tenant) TokenExpired(now time.Time) bool {
	return t.TokenExpires != nil && t.TokenExpires.Before(now)
}

// ClearCredentials wipes every secret a disconnect must remove.
func (t *Tenant) ClearCredentials() {
	t.AccessToken = ""
	t.RefreshToken = ""
	t.TokenExpires = nil
}
