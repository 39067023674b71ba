package processor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lodgio/whatsapp-gateway/internal/queue"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
	"github.com/lodgio/whatsapp-gateway/pkg/prom"
)

// Ingestor routes one raw webhook delivery into the ledger.
type Ingestor interface {
	Ingest(ctx context.Context, payload []byte) error
}

// WebhookProcessor pulls raw webhook deliveries off the queue and runs them
// through the router under a per-delivery lock, so a redelivered stream entry
// is processed at most once per retry window.
type WebhookProcessor struct {
	ingestor    Ingestor
	idempotency *IdempotencyService
}

func NewWebhookProcessor(ingestor Ingestor, idempotency *IdempotencyService) *WebhookProcessor {
	return &WebhookProcessor{
		ingestor:    ingestor,
		idempotency: idempotency,
	}
}

func (p *WebhookProcessor) GetType() string {
	return "webhook"
}

// Process handles one queued webhook delivery.
func (p *WebhookProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	deliveryID := queueMessage.ID

	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			// ACK: redelivered entry, already handled
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			// ACK to move to DLQ; the audit row stays unprocessed for replay
			logger.Error("Webhook delivery exhausted retries", "delivery_id", deliveryID)
			prom.IncWebhookEventFailed(fieldLabel(queueMessage.Data))
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// NACK: another consumer holds the delivery
			return errors.New("lock held by another consumer")
		}
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	field := fieldLabel(queueMessage.Data)
	start := time.Now()

	if err := p.ingestor.Ingest(ctx, queueMessage.Data); err != nil {
		logger.Error("Webhook delivery processing failed", "delivery_id", deliveryID, "error", err)
		prom.IncWebhookEventFailed(field)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "delivery_id", deliveryID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	prom.IncWebhookEventProcessed(field)
	prom.AddWebhookProcessingDuration(time.Since(start).Seconds(), field)

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "delivery_id", deliveryID, "error", markErr)
		// Continue - the delivery was processed
	}

	return nil // ACK
}

// fieldLabel extracts the first change field for metric labels without fully
// decoding the payload.
func fieldLabel(payload []byte) string {
	var doc struct {
		Entry []struct {
			Changes []struct {
				Field string `json:"field"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "unknown"
	}
	if len(doc.Entry) == 0 || len(doc.Entry[0].Changes) == 0 {
		return "unknown"
	}
	return doc.Entry[0].Changes[0].Field
}
