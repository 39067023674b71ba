package webhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/lodgio/whatsapp-gateway/internal/services"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
)

type TenantResolver interface {
	GetByWabaID(ctx context.Context, wabaID string) (*model.Tenant, error)
}

type EventStore interface {
	Create(ctx context.Context, event *model.WebhookEvent) (*model.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
}

type Ledger interface {
	RecordInbound(ctx context.Context, tenantID uuid.UUID, msg *graph.Message, contact *graph.Contact) (*model.Message, error)
	ApplyStatusUpdate(ctx context.Context, status *graph.Status) error
}

// Processor routes webhook deliveries to the ledger. Ingest never returns an
// error for payload content: the platform retries on anything but a 2xx, and
// bad input will not get better on redelivery. Only storage faults propagate.
type Processor struct {
	tenants TenantResolver
	events  EventStore
	ledger  Ledger
}

func NewProcessor(tenants TenantResolver, events EventStore, ledger Ledger) *Processor {
	return &Processor{
		tenants: tenants,
		events:  events,
		ledger:  ledger,
	}
}

// Ingest processes one raw webhook delivery. Per-entry and per-change
// failures are isolated: one bad change never blocks its siblings.
func (p *Processor) Ingest(ctx context.Context, payload []byte) error {
	var doc graph.WebhookPayload
	if err := json.Unmarshal(payload, &doc); err != nil {
		logger.Warn("discarding malformed webhook payload", "error", err)
		return nil
	}
	if doc.Object != graph.ObjectWhatsAppBusinessAccount {
		logger.Debug("ignoring webhook for foreign object", "object", doc.Object)
		return nil
	}

	for i := range doc.Entry {
		if err := p.processEntry(ctx, &doc.Entry[i], payload); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) processEntry(ctx context.Context, entry *graph.Entry, payload []byte) error {
	// An empty entry ID must never reach the lookup: tenants that have not
	// onboarded yet carry an empty waba_id and would match it.
	var tenant *model.Tenant
	if entry.ID != "" {
		t, err := p.tenants.GetByWabaID(ctx, entry.ID)
		if err != nil && !errors.Is(err, repository.ErrTenantNotFound) {
			return err
		}
		tenant = t
	}

	event := &model.WebhookEvent{
		EventType: entryEventType(entry),
		Payload:   payload,
	}
	if tenant != nil {
		id := tenant.TenantID
		event.TenantID = &id
	}

	// The audit row is written before any handler runs so failed entries
	// can be replayed.
	stored, err := p.events.Create(ctx, event)
	if err != nil {
		return err
	}

	if tenant == nil {
		logger.Warn("webhook entry for unknown business account", "waba_id", entry.ID)
		return nil
	}

	failed := false
	for i := range entry.Changes {
		if err := p.processChange(ctx, tenant, &entry.Changes[i]); err != nil {
			failed = true
			logger.Error("webhook change failed",
				"tenant_id", tenant.TenantID.String(),
				"field", entry.Changes[i].Field,
				"error", err)
		}
	}
	// An entry with a failed change is left unprocessed so the stored payload
	// can be replayed; the succeeded siblings dedup on wamid when it is.
	if failed {
		return nil
	}

	if err := p.events.MarkProcessed(ctx, stored.ID); err != nil {
		logger.Error("failed to mark webhook event processed", "event_id", stored.ID.String(), "error", err)
	}
	return nil
}

func (p *Processor) processChange(ctx context.Context, tenant *model.Tenant, change *graph.Change) error {
	switch change.Field {
	case graph.FieldAccountUpdate:
		p.handleAccountUpdate(tenant, &change.Value)
		return nil
	case graph.FieldMessages:
		return p.handleMessages(ctx, tenant, &change.Value)
	case graph.FieldTemplateStatus:
		logger.Info("template status update",
			"tenant_id", tenant.TenantID.String(),
			"template_id", change.Value.MessageTemplateID,
			"template_name", change.Value.MessageTemplateName,
			"event", change.Value.Event)
		return nil
	default:
		logger.Debug("ignoring webhook field", "field", change.Field)
		return nil
	}
}

// handleAccountUpdate only records the signal. Onboarding completion stays an
// explicit admin call; a PARTNER_ADDED notification is not proof the tenant
// finished embedded signup.
func (p *Processor) handleAccountUpdate(tenant *model.Tenant, value *graph.ChangeValue) {
	wabaID := ""
	if value.WabaInfo != nil {
		wabaID = value.WabaInfo.WabaID
	}
	switch value.Event {
	case graph.AccountEventPartnerAdded:
		logger.Info("partner added to business account", "tenant_id", tenant.TenantID.String(), "waba_id", wabaID)
	case graph.AccountEventAccountVerified, graph.AccountEventVerifiedAccount:
		logger.Info("business account verified", "tenant_id", tenant.TenantID.String(), "waba_id", wabaID)
	case graph.AccountEventDisabledUpdate:
		logger.Warn("business account disabled", "tenant_id", tenant.TenantID.String(), "waba_id", wabaID)
	default:
		logger.Info("account update", "tenant_id", tenant.TenantID.String(), "event", value.Event)
	}
}

func (p *Processor) handleMessages(ctx context.Context, tenant *model.Tenant, value *graph.ChangeValue) error {
	contacts := make(map[string]*graph.Contact, len(value.Contacts))
	for i := range value.Contacts {
		contacts[value.Contacts[i].WaID] = &value.Contacts[i]
	}

	for i := range value.Messages {
		msg := &value.Messages[i]
		if _, err := p.ledger.RecordInbound(ctx, tenant.TenantID, msg, contacts[msg.From]); err != nil {
			return err
		}
	}

	for i := range value.Statuses {
		if err := p.ledger.ApplyStatusUpdate(ctx, &value.Statuses[i]); err != nil {
			return err
		}
	}
	return nil
}

// entryEventType labels the audit row with the entry's dominant field.
func entryEventType(entry *graph.Entry) string {
	if len(entry.Changes) == 0 {
		return "unknown"
	}
	return entry.Changes[0].Field
}

var _ Ledger = (*services.ConversationService)(nil)
