package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTenant() *model.Tenant {
	return &model.Tenant{
		TenantID:     uuid.New(),
		BusinessName: "Acme Lodging",
		Status:       model.ConnectionDisconnected,
	}
}

func TestTenantRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantRepository(db)
	ctx := context.Background()

	t.Run("create tenant successfully", func(t *testing.T) {
		tenant := newTestTenant()

		created, err := repo.Create(ctx, tenant)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, tenant.TenantID, created.TenantID)
		assert.Equal(t, model.ConnectionDisconnected, created.Status)
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("duplicate tenant id is rejected", func(t *testing.T) {
		tenant := newTestTenant()
		_, err := repo.Create(ctx, tenant)
		require.NoError(t, err)

		dup := newTestTenant()
		dup.TenantID = tenant.TenantID
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, ErrTenantExists)
	})

	t.Run("duplicate waba id is rejected", func(t *testing.T) {
		tenant := newTestTenant()
		tenant.WabaID = "waba-dup"
		_, err := repo.Create(ctx, tenant)
		require.NoError(t, err)

		other := newTestTenant()
		other.WabaID = "waba-dup"
		_, err = repo.Create(ctx, other)
		assert.ErrorIs(t, err, ErrTenantExists)
	})

	t.Run("empty waba ids do not collide", func(t *testing.T) {
		_, err := repo.Create(ctx, newTestTenant())
		require.NoError(t, err)
		_, err = repo.Create(ctx, newTestTenant())
		require.NoError(t, err)
	})
}

func TestTenantRepository_Lookups(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantRepository(db)
	ctx := context.Background()

	tenant := newTestTenant()
	tenant.WabaID = "waba-100"
	tenant.PhoneNumberID = "phone-100"
	tenant.PhoneNumber = "+15550100"
	created, err := repo.Create(ctx, tenant)
	require.NoError(t, err)

	t.Run("by tenant id", func(t *testing.T) {
		got, err := repo.GetByTenantID(ctx, created.TenantID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("by waba id", func(t *testing.T) {
		got, err := repo.GetByWabaID(ctx, "waba-100")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("by phone number id", func(t *testing.T) {
		got, err := repo.GetByPhoneNumberID(ctx, "phone-100")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("by phone number", func(t *testing.T) {
		got, err := repo.GetByPhoneNumber(ctx, "+15550100")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := repo.GetByTenantID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := repo.Exists(ctx, created.TenantID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Exists(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTenantRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, newTestTenant())
	require.NoError(t, err)

	t.Run("persists credentials and status", func(t *testing.T) {
		exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		created.Status = model.ConnectionConnecting
		created.AccessToken = "tok-1"
		created.RefreshToken = "ref-1"
		created.TokenExpires = &exp
		created.WabaID = "waba-200"

		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, model.ConnectionConnecting, updated.Status)
		assert.Equal(t, "tok-1", updated.AccessToken)
		assert.Equal(t, "waba-200", updated.WabaID)
		require.NotNil(t, updated.TokenExpires)
	})

	t.Run("persists cleared credentials", func(t *testing.T) {
		created.ClearCredentials()
		created.Status = model.ConnectionDisconnected

		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Empty(t, updated.AccessToken)
		assert.Empty(t, updated.RefreshToken)
		assert.Nil(t, updated.TokenExpires)
		assert.Equal(t, model.ConnectionDisconnected, updated.Status)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		ghost := newTestTenant()
		ghost.ID = uuid.New()
		_, err := repo.Update(ctx, ghost)
		assert.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestTenantRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTenantRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newTestTenant())
		require.NoError(t, err)
	}

	tenants, total, err := repo.List(ctx, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, tenants, 3)
}
