package helpers

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/lodgio/whatsapp-gateway/pkg/pg"
	"github.com/lodgio/whatsapp-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func SetupTestDB(t *testing.T) *pg.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.TenantEntity{},
		&repository.ConversationEntity{},
		&repository.MessageEntity{},
		&repository.WebhookEventEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	adapter, err := redis.NewRedisAdapter("test", "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func CreateTestTenant(t *testing.T, db *pg.DB, status string) *repository.TenantEntity {
	ctx := context.Background()
	tenant := &repository.TenantEntity{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		BusinessName: "Test Business",
		Status:       status,
	}
	err := db.Write(ctx).Create(tenant).Error
	require.NoError(t, err)
	return tenant
}

func CreateTestConversation(t *testing.T, db *pg.DB, tenantID uuid.UUID, waID string) *repository.ConversationEntity {
	ctx := context.Background()
	conv := &repository.ConversationEntity{
		ID:            uuid.New(),
		TenantID:      tenantID,
		CustomerWaID:  waID,
		CustomerPhone: waID,
		Status:        "ACTIVE",
	}
	err := db.Write(ctx).Create(conv).Error
	require.NoError(t, err)
	return conv
}

func CreateTestMessage(t *testing.T, db *pg.DB, conversationID uuid.UUID, wamid, direction string) *repository.MessageEntity {
	ctx := context.Background()
	msg := &repository.MessageEntity{
		ID:             uuid.New(),
		ConversationID: conversationID,
		WhatsAppID:     wamid,
		Direction:      direction,
		Type:           "TEXT",
		Content:        "test content",
		Status:         "SENT",
		SentAt:         time.Now(),
	}
	err := db.Write(ctx).Create(msg).Error
	require.NoError(t, err)
	return msg
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
