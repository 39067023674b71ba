package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/lodgio/whatsapp-gateway/internal/queue"
)

type stubIngestor struct {
	calls int
	err   error
}

func (s *stubIngestor) Ingest(ctx context.Context, payload []byte) error {
	s.calls++
	return s.err
}

func newQueueMessage(id string, payload []byte) *queue.Message {
	return &queue.Message{ID: id, Data: payload}
}

func TestWebhookProcessor_Process_Success(t *testing.T) {
	idempotency := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	ingestor := &stubIngestor{}
	proc := NewWebhookProcessor(ingestor, idempotency)
	ctx := context.Background()

	payload := []byte(`{"object":"whatsapp_business_account","entry":[{"id":"waba-1","changes":[{"field":"messages","value":{}}]}]}`)
	err := proc.Process(ctx, newQueueMessage("1-0", payload))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if ingestor.calls != 1 {
		t.Errorf("Expected 1 ingest call, got %d", ingestor.calls)
	}

	processed, err := idempotency.IsProcessed(ctx, "1-0")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !processed {
		t.Error("Delivery should carry the processed marker")
	}
}

func TestWebhookProcessor_Process_Redelivery(t *testing.T) {
	idempotency := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	ingestor := &stubIngestor{}
	proc := NewWebhookProcessor(ingestor, idempotency)
	ctx := context.Background()

	payload := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	if err := proc.Process(ctx, newQueueMessage("2-0", payload)); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}

	// redelivered entry must be ACKed without running the router again
	if err := proc.Process(ctx, newQueueMessage("2-0", payload)); err != nil {
		t.Fatalf("redelivered Process failed: %v", err)
	}
	if ingestor.calls != 1 {
		t.Errorf("Expected 1 ingest call after redelivery, got %d", ingestor.calls)
	}
}

func TestWebhookProcessor_Process_FailureRetries(t *testing.T) {
	idempotency := NewIdempotencyService(newMockRedisAdapter(), DefaultIdempotencyConfig())
	ingestor := &stubIngestor{err: errors.New("storage down")}
	proc := NewWebhookProcessor(ingestor, idempotency)
	ctx := context.Background()

	payload := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	if err := proc.Process(ctx, newQueueMessage("3-0", payload)); err == nil {
		t.Fatal("Expected error for failed ingest")
	}

	count, err := idempotency.GetRetryCount(ctx, "3-0")
	if err != nil {
		t.Fatalf("GetRetryCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected retry count 1, got %d", count)
	}
}

func TestWebhookProcessor_Process_ExhaustedRetriesAcks(t *testing.T) {
	config := DefaultIdempotencyConfig()
	config.MaxRetries = 1
	idempotency := NewIdempotencyService(newMockRedisAdapter(), config)
	ingestor := &stubIngestor{err: errors.New("storage down")}
	proc := NewWebhookProcessor(ingestor, idempotency)
	ctx := context.Background()

	payload := []byte(`{"object":"whatsapp_business_account","entry":[]}`)
	if err := proc.Process(ctx, newQueueMessage("4-0", payload)); err == nil {
		t.Fatal("Expected error on first attempt")
	}

	// retries exhausted: ACK so the delivery moves to the DLQ
	if err := proc.Process(ctx, newQueueMessage("4-0", payload)); err != nil {
		t.Fatalf("Expected ACK after exhausted retries, got: %v", err)
	}
	if ingestor.calls != 1 {
		t.Errorf("Expected no further ingest calls, got %d", ingestor.calls)
	}
}

func TestFieldLabel(t *testing.T) {
	cases := []struct {
		payload string
		want    string
	}{
		{`{"entry":[{"changes":[{"field":"messages"}]}]}`, "messages"},
		{`{"entry":[{"changes":[{"field":"account_update"}]}]}`, "account_update"},
		{`{"entry":[]}`, "unknown"},
		{`{broken`, "unknown"},
	}
	for _, c := range cases {
		if got := fieldLabel([]byte(c.payload)); got != c.want {
			t.Errorf("fieldLabel(%s) = %s, want %s", c.payload, got, c.want)
		}
	}
}
