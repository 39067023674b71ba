package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lodgio/whatsapp-gateway/pkg/logger"
	"github.com/lodgio/whatsapp-gateway/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("delivery already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// IdempotencyConfig tunes the per-delivery processing guard. The lock keeps
// two consumers off the same queue delivery; the processed marker absorbs
// stream redelivery after a consumer crash. Content-level dedup lives in the
// ledger (unique wamid), this is purely a processing guard.
type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "webhook:retry:",
		LockKeyPrefix:      "webhook:lock:",
		ProcessedKeyPrefix: "webhook:processed:",
	}
}

type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	DeliveryID   string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
	service      *IdempotencyService
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, deliveryID string) (*ProcessingContext, error) {
	// Step 1: Check if already processed (long-term marker)
	processedKey := s.config.ProcessedKeyPrefix + deliveryID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		logger.Warn("Failed to check processed status", "delivery_id", deliveryID, "error", err)
		// Continue even if check fails - better to risk duplicate than block processing
	} else if exists > 0 {
		logger.Info("Delivery already processed, skipping", "delivery_id", deliveryID)
		return nil, ErrAlreadyProcessed
	}

	// Step 2: Get current retry count
	retryKey := s.config.RetryKeyPrefix + deliveryID
	retryCountBytes, err := s.redis.Get(retryKey)
	retryCount := 0
	if err == nil && len(retryCountBytes) > 0 {
		fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	}

	// Step 3: Check if max retries exceeded
	if retryCount >= s.config.MaxRetries {
		logger.Error("Max retries exceeded for delivery", "delivery_id", deliveryID, "retry_count", retryCount)
		return nil, fmt.Errorf("%w: delivery_id=%s, retries=%d", ErrMaxRetriesExceeded, deliveryID, retryCount)
	}

	// Step 4: Acquire short-term processing lock (prevents concurrent processing)
	lockKey := s.config.LockKeyPrefix + deliveryID
	lockValue := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))

	acquired, err := s.redis.SetNX(lockKey, lockValue, s.config.LockTTL)
	if err != nil {
		logger.Error("Failed to acquire lock", "delivery_id", deliveryID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}

	if !acquired {
		logger.Info("Lock already held by another consumer", "delivery_id", deliveryID)
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("Processing lock acquired",
		"delivery_id", deliveryID,
		"retry_count", retryCount,
		"lock_ttl", s.config.LockTTL)

	return &ProcessingContext{
		DeliveryID:   deliveryID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
		service:      s,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	deliveryID := pc.DeliveryID

	// Step 1: Set long-term processed marker
	processedKey := s.config.ProcessedKeyPrefix + deliveryID
	err := s.redis.Set(processedKey, []byte("1"), s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to mark delivery as processed", "delivery_id", deliveryID, "error", err)
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	// Step 2: Clean up lock and retry counter
	s.cleanup(ctx, pc)

	logger.Debug("Delivery marked as successfully processed",
		"delivery_id", deliveryID,
		"retry_count", pc.RetryCount)

	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	deliveryID := pc.DeliveryID

	// Step 1: Increment retry counter
	retryKey := s.config.RetryKeyPrefix + deliveryID
	newRetryCount := pc.RetryCount + 1
	retryValue := []byte(fmt.Sprintf("%d", newRetryCount))

	// Keep retry counter for longer to track across retries
	err := s.redis.Set(retryKey, retryValue, s.config.ProcessedTTL)
	if err != nil {
		logger.Error("Failed to increment retry counter", "delivery_id", deliveryID, "error", err)
	}

	// Step 2: Remove lock to allow retry
	lockKey := s.config.LockKeyPrefix + deliveryID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to remove lock", "delivery_id", deliveryID, "error", err)
	}

	logger.Warn("Delivery processing failed, will retry",
		"delivery_id", deliveryID,
		"retry_count", newRetryCount,
		"max_retries", s.config.MaxRetries,
		"reason", reason)

	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}

	lockKey := s.config.LockKeyPrefix + pc.DeliveryID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to release lock", "delivery_id", pc.DeliveryID, "error", err)
		return err
	}

	pc.lockAcquired = false
	logger.Debug("Processing lock released", "delivery_id", pc.DeliveryID)
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	deliveryID := pc.DeliveryID

	lockKey := s.config.LockKeyPrefix + deliveryID
	if err := s.redis.Del(lockKey); err != nil {
		logger.Warn("Failed to cleanup lock", "delivery_id", deliveryID, "error", err)
	}

	retryKey := s.config.RetryKeyPrefix + deliveryID
	if err := s.redis.Del(retryKey); err != nil {
		logger.Warn("Failed to cleanup retry counter", "delivery_id", deliveryID, "error", err)
	}

	pc.lockAcquired = false
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, deliveryID string) (int, error) {
	retryKey := s.config.RetryKeyPrefix + deliveryID
	retryCountBytes, err := s.redis.Get(retryKey)
	if err != nil {
		if err == redis.NilError {
			return 0, nil
		}
		return 0, err
	}

	retryCount := 0
	fmt.Sscanf(string(retryCountBytes), "%d", &retryCount)
	return retryCount, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	processedKey := s.config.ProcessedKeyPrefix + deliveryID
	exists, err := s.redis.Exist(processedKey)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
