package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/graph"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/internal/repository"
	"github.com/lodgio/whatsapp-gateway/pkg/logger"
)

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTenantExists    = errors.New("tenant already exists")
	ErrInvalidState    = errors.New("operation not allowed in current connection state")
	ErrInvalidPin      = errors.New("pin must be exactly six digits")
	ErrInvalidCallback = errors.New("oauth callback state does not identify a tenant")
	ErrMissingWabaInfo = errors.New("waba id and phone number id are required")
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error)
	Exists(ctx context.Context, tenantID uuid.UUID) (bool, error)
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error)
	GetByWabaID(ctx context.Context, wabaID string) (*model.Tenant, error)
	Update(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*model.Tenant, int64, error)
}

// GraphAPI is the slice of the Meta Graph API the lifecycle needs.
type GraphAPI interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*graph.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*graph.Token, error)
	SubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error
	UnsubscribeWebhooks(ctx context.Context, wabaID, accessToken string) error
	RegisterPhone(ctx context.Context, phoneNumberID, accessToken, pin string) error
}

// TenantService drives the connection lifecycle. Every status change runs
// under the tenant's lock and through Tenant.TransitionTo, so concurrent
// callbacks cannot interleave half-applied transitions.
type TenantService struct {
	repo  TenantRepository
	api   GraphAPI
	cache *ClientCache

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewTenantService(repo TenantRepository, api GraphAPI, cache *ClientCache) *TenantService {
	return &TenantService{
		repo:  repo,
		api:   api,
		cache: cache,
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// tenantLock returns the mutex serializing lifecycle work for one tenant.
func (s *TenantService) tenantLock(tenantID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[tenantID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tenantID] = l
	}
	return l
}

// Register creates the record for a platform-assigned tenant ID in the
// initial disconnected state. A second registration for the same ID fails.
func (s *TenantService) Register(ctx context.Context, tenantID uuid.UUID, businessName string) (*model.Tenant, error) {
	exists, err := s.repo.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrTenantExists
	}

	tenant := &model.Tenant{
		TenantID:      tenantID,
		BusinessName:  businessName,
		Status:        model.ConnectionDisconnected,
		WebhookSecret: uuid.NewString(),
	}
	created, err := s.repo.Create(ctx, tenant)
	if errors.Is(err, repository.ErrTenantExists) {
		return nil, ErrTenantExists
	}
	return created, err
}

// getTenant translates storage sentinels into this package's error taxonomy.
func (s *TenantService) getTenant(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	tenant, err := s.repo.GetByTenantID(ctx, tenantID)
	if errors.Is(err, repository.ErrTenantNotFound) {
		return nil, ErrTenantNotFound
	}
	return tenant, err
}

// InitializeConnection starts the OAuth flow and returns the authorize URL
// the tenant's admin must visit. The tenant id rides along as the state
// parameter so the callback can be attributed.
func (s *TenantService) InitializeConnection(ctx context.Context, tenantID uuid.UUID) (string, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if !tenant.TransitionTo(model.ConnectionConnecting) {
		return "", fmt.Errorf("%w: cannot start connecting from %s", ErrInvalidState, tenant.Status)
	}
	if _, err := s.repo.Update(ctx, tenant); err != nil {
		return "", err
	}
	s.cache.Invalidate(tenantID)

	logger.Info("connection initialized", "tenant_id", tenantID.String())
	return s.api.AuthorizeURL(tenantID.String()), nil
}

// HandleOAuthCallback exchanges the authorization code and moves the tenant
// to VERIFICATION_NEEDED. A tenant arriving straight from DISCONNECTED or
// ERROR, a retry of the authorize URL included, enters CONNECTING here
// without a prior InitializeConnection call. An exchange failure parks the
// tenant in ERROR so the flow can be restarted.
func (s *TenantService) HandleOAuthCallback(ctx context.Context, state, code string) (*model.Tenant, error) {
	tenantID, err := uuid.Parse(state)
	if err != nil {
		return nil, ErrInvalidCallback
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != model.ConnectionConnecting {
		if !tenant.TransitionTo(model.ConnectionConnecting) {
			return nil, fmt.Errorf("%w: callback received in %s", ErrInvalidState, tenant.Status)
		}
	}

	token, err := s.api.ExchangeCode(ctx, code)
	if err != nil {
		logger.Error("code exchange failed", "tenant_id", tenantID.String(), "error", err)
		s.markError(ctx, tenant)
		return nil, err
	}

	tenant.AccessToken = token.AccessToken
	tenant.RefreshToken = token.RefreshToken
	tenant.TokenExpires = token.ExpiresAt
	if !tenant.TransitionTo(model.ConnectionVerificationNeeded) {
		return nil, fmt.Errorf("%w: cannot enter verification from %s", ErrInvalidState, tenant.Status)
	}

	updated, err := s.repo.Update(ctx, tenant)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(tenantID)

	logger.Info("oauth callback handled", "tenant_id", tenantID.String())
	return updated, nil
}

// CompleteOnboarding binds the tenant to its WhatsApp Business Account,
// subscribes the app to the account's webhooks, and finishes the lifecycle.
// This is an explicit admin call, never inferred from webhook traffic.
func (s *TenantService) CompleteOnboarding(ctx context.Context, tenantID uuid.UUID, wabaID, phoneNumberID, phoneNumber string) (*model.Tenant, error) {
	if wabaID == "" || phoneNumberID == "" {
		return nil, ErrMissingWabaInfo
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != model.ConnectionVerificationNeeded {
		return nil, fmt.Errorf("%w: onboarding in %s", ErrInvalidState, tenant.Status)
	}

	if err := s.api.SubscribeWebhooks(ctx, wabaID, tenant.AccessToken); err != nil {
		logger.Error("webhook subscription failed", "tenant_id", tenantID.String(), "waba_id", wabaID, "error", err)
		s.markError(ctx, tenant)
		return nil, err
	}

	tenant.WabaID = wabaID
	tenant.PhoneNumberID = phoneNumberID
	tenant.PhoneNumber = phoneNumber
	if !tenant.TransitionTo(model.ConnectionConnected) {
		return nil, fmt.Errorf("%w: cannot connect from %s", ErrInvalidState, tenant.Status)
	}

	updated, err := s.repo.Update(ctx, tenant)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(tenantID)

	logger.Info("onboarding completed", "tenant_id", tenantID.String(), "waba_id", wabaID)
	return updated, nil
}

// RegisterPhoneNumber registers the tenant's number for Cloud API messaging.
// It needs only an onboarded phone number ID, not a CONNECTED tenant: on
// upstream success the tenant is moved to CONNECTED, which makes it the
// recovery path out of ERROR. Re-registering a connected tenant is a no-op
// status-wise.
func (s *TenantService) RegisterPhoneNumber(ctx context.Context, tenantID uuid.UUID, pin string) error {
	if !validPin(pin) {
		return ErrInvalidPin
	}

	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.PhoneNumberID == "" {
		return fmt.Errorf("%w: phone number id not set", ErrInvalidState)
	}

	if err := s.api.RegisterPhone(ctx, tenant.PhoneNumberID, tenant.AccessToken, pin); err != nil {
		return fmt.Errorf("register phone: %w", err)
	}

	if !tenant.Connected() {
		if !tenant.TransitionTo(model.ConnectionConnected) {
			return fmt.Errorf("%w: cannot connect from %s", ErrInvalidState, tenant.Status)
		}
		if _, err := s.repo.Update(ctx, tenant); err != nil {
			return err
		}
		s.cache.Invalidate(tenantID)
	}

	logger.Info("phone number registered", "tenant_id", tenantID.String(), "phone_number_id", tenant.PhoneNumberID)
	return nil
}

// Disconnect tears the connection down from any state. Unsubscribing is best
// effort; local credentials are always cleared.
func (s *TenantService) Disconnect(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status == model.ConnectionDisconnected {
		return tenant, nil
	}

	if tenant.WabaID != "" && tenant.AccessToken != "" {
		if err := s.api.UnsubscribeWebhooks(ctx, tenant.WabaID, tenant.AccessToken); err != nil {
			logger.Warn("webhook unsubscribe failed, continuing disconnect", "tenant_id", tenantID.String(), "error", err)
		}
	}

	tenant.ClearCredentials()
	if !tenant.TransitionTo(model.ConnectionDisconnected) {
		return nil, fmt.Errorf("%w: cannot disconnect from %s", ErrInvalidState, tenant.Status)
	}

	updated, err := s.repo.Update(ctx, tenant)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(tenantID)

	logger.Info("tenant disconnected", "tenant_id", tenantID.String())
	return updated, nil
}

// RefreshToken rotates the access token from the stored refresh token and
// reports whether a refresh happened. A tenant with no refresh token on file
// is a no-op, not an error. Connection status is neither consulted nor
// changed, so a tenant parked in ERROR can still rotate to a usable token.
func (s *TenantService) RefreshToken(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	lock := s.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	tenant, err := s.getTenant(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if tenant.RefreshToken == "" {
		return false, nil
	}

	token, err := s.api.RefreshToken(ctx, tenant.RefreshToken)
	if err != nil {
		return false, fmt.Errorf("refresh token: %w", err)
	}

	tenant.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		tenant.RefreshToken = token.RefreshToken
	}
	tenant.TokenExpires = token.ExpiresAt

	if _, err := s.repo.Update(ctx, tenant); err != nil {
		return false, err
	}
	s.cache.Invalidate(tenantID)

	logger.Info("access token refreshed", "tenant_id", tenantID.String())
	return true, nil
}

// Status returns the tenant's current lifecycle view.
func (s *TenantService) Status(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	return s.getTenant(ctx, tenantID)
}

func (s *TenantService) List(ctx context.Context, limit, offset int) ([]*model.Tenant, int64, error) {
	return s.repo.List(ctx, limit, offset)
}

// markError parks the tenant in ERROR; failures here are logged, not
// returned, because the caller already has the original error.
func (s *TenantService) markError(ctx context.Context, tenant *model.Tenant) {
	if !tenant.TransitionTo(model.ConnectionError) {
		return
	}
	if _, err := s.repo.Update(ctx, tenant); err != nil {
		logger.Error("failed to persist error state", "tenant_id", tenant.TenantID.String(), "error", err)
	}
	s.cache.Invalidate(tenant.TenantID)
}

func validPin(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
