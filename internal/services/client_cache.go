package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
)

var (
	ErrNotConnected = errors.New("tenant is not connected")
	ErrTokenExpired = errors.New("tenant access token has expired")
)

// TenantHandle is a ready-to-use sending identity for one tenant. Handles are
// cached, so callers must not hold one across tenant mutations; fetch a fresh
// handle per operation.
type TenantHandle struct {
	TenantID      uuid.UUID
	WabaID        string
	PhoneNumberID string
	AccessToken   string

	fingerprint string
	expires     *time.Time
}

// Fingerprint identifies the credentials this handle was built from.
func (h *TenantHandle) Fingerprint() string {
	return h.fingerprint
}

type TenantReader interface {
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error)
}

// ClientCache hands out per-tenant sending identities. Entries are rebuilt
// when credentials rotate: every mutation path calls Invalidate, and every
// access re-checks expiry, so a stale token is never handed out past its
// recorded lifetime.
type ClientCache struct {
	tenants TenantReader
	now     func() time.Time
	entries sync.Map // uuid.UUID -> *TenantHandle
}

func NewClientCache(tenants TenantReader) *ClientCache {
	return &ClientCache{
		tenants: tenants,
		now:     time.Now,
	}
}

// Handle returns the cached identity for tenantID, rebuilding it from storage
// when absent or expired.
func (c *ClientCache) Handle(ctx context.Context, tenantID uuid.UUID) (*TenantHandle, error) {
	if v, ok := c.entries.Load(tenantID); ok {
		handle := v.(*TenantHandle)
		if !c.expired(handle) {
			return handle, nil
		}
		c.entries.Delete(tenantID)
	}

	return c.rebuild(ctx, tenantID)
}

func (c *ClientCache) rebuild(ctx context.Context, tenantID uuid.UUID) (*TenantHandle, error) {
	tenant, err := c.tenants.GetByTenantID(ctx, tenantID)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	if !tenant.Connected() || tenant.AccessToken == "" {
		return nil, ErrNotConnected
	}
	if tenant.TokenExpired(c.now()) {
		return nil, ErrTokenExpired
	}

	handle := &TenantHandle{
		TenantID:      tenant.TenantID,
		WabaID:        tenant.WabaID,
		PhoneNumberID: tenant.PhoneNumberID,
		AccessToken:   tenant.AccessToken,
		fingerprint:   credentialFingerprint(tenant.AccessToken),
		expires:       tenant.TokenExpires,
	}
	c.entries.Store(tenantID, handle)
	return handle, nil
}

// Invalidate drops the cached identity. Called on every tenant mutation so
// connect, disconnect, and token refresh take effect immediately.
func (c *ClientCache) Invalidate(tenantID uuid.UUID) {
	c.entries.Delete(tenantID)
}

func (c *ClientCache) expired(h *TenantHandle) bool {
	return h.expires != nil && h.expires.Before(c.now())
}

func credentialFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
