package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	xhttp "github.com/lodgio/whatsapp-gateway/pkg/http"
)

type TenantService interface {
	Register(ctx context.Context, tenantID uuid.UUID, businessName string) (*model.Tenant, error)
	InitializeConnection(ctx context.Context, tenantID uuid.UUID) (string, error)
	HandleOAuthCallback(ctx context.Context, state, code string) (*model.Tenant, error)
	CompleteOnboarding(ctx context.Context, tenantID uuid.UUID, wabaID, phoneNumberID, phoneNumber string) (*model.Tenant, error)
	RegisterPhoneNumber(ctx context.Context, tenantID uuid.UUID, pin string) error
	Disconnect(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error)
	Status(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]*model.Tenant, int64, error)
}

type TenantHandler struct {
	svc TenantService
}

func RegisterTenantRoutes(e *router.Group, h *TenantHandler) {
	e.POST("/tenants", h.CreateTenant)
	e.GET("/tenants", h.ListTenants)
	e.POST("/tenants/connect", h.Connect)
	e.GET("/tenants/oauth/callback", h.OAuthCallback)
	e.POST("/tenants/{id}/onboarding", h.CompleteOnboarding)
	e.POST("/tenants/{id}/register", h.RegisterPhone)
	e.DELETE("/tenants/{id}/connection", h.Disconnect)
	e.GET("/tenants/{id}/status", h.GetStatus)
}

func NewTenantHandler(tenantService TenantService) *TenantHandler {
	return &TenantHandler{
		svc: tenantService,
	}
}

type createTenantRequest struct {
	TenantID     uuid.UUID `json:"tenant_id"`
	BusinessName string    `json:"business_name"`
}

type connectRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

type connectResponse struct {
	AuthorizeURL string `json:"authorize_url"`
}

type onboardingRequest struct {
	WabaID        string `json:"waba_id"`
	PhoneNumberID string `json:"phone_number_id"`
	PhoneNumber   string `json:"phone_number"`
}

type registerPhoneRequest struct {
	Pin string `json:"pin"`
}

type tenantListResponse struct {
	Items []*model.Tenant `json:"items"`
	Total int64           `json:"total"`
}

type statusResponse struct {
	TenantID      uuid.UUID              `json:"tenant_id"`
	Status        model.ConnectionStatus `json:"status"`
	Connected     bool                   `json:"connected"`
	WabaID        string                 `json:"waba_id,omitempty"`
	PhoneNumberID string                 `json:"phone_number_id,omitempty"`
	PhoneNumber   string                 `json:"phone_number,omitempty"`
	TokenExpires  *time.Time             `json:"token_expires_at,omitempty"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TenantHandler) CreateTenant(ctx *xhttp.RequestCtx) {
	var req createTenantRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.TenantID == uuid.Nil {
		writeError(ctx, 400, "tenant_id is required")
		return
	}
	if req.BusinessName == "" {
		writeError(ctx, 400, "business_name is required")
		return
	}

	tenant, err := h.svc.Register(ctx, req.TenantID, req.BusinessName)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 201, tenant)
}

func (h *TenantHandler) ListTenants(ctx *xhttp.RequestCtx) {
	items, total, err := h.svc.List(ctx, queryInt(ctx, "limit"), queryInt(ctx, "offset"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tenantListResponse{Items: items, Total: total})
}

func (h *TenantHandler) Connect(ctx *xhttp.RequestCtx) {
	var req connectRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.TenantID == uuid.Nil {
		writeError(ctx, 400, "tenant_id is required")
		return
	}

	authorizeURL, err := h.svc.InitializeConnection(ctx, req.TenantID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, connectResponse{AuthorizeURL: authorizeURL})
}

// OAuthCallback is the redirect target of the embedded signup flow. The state
// parameter carries the tenant ID that initiated the authorization.
func (h *TenantHandler) OAuthCallback(ctx *xhttp.RequestCtx) {
	state := query(ctx, "state")
	code := query(ctx, "code")
	if code == "" {
		writeError(ctx, 400, "code is required")
		return
	}

	tenant, err := h.svc.HandleOAuthCallback(ctx, state, code)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tenant)
}

func (h *TenantHandler) CompleteOnboarding(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	var req onboardingRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	tenant, err := h.svc.CompleteOnboarding(ctx, tenantID, req.WabaID, req.PhoneNumberID, req.PhoneNumber)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tenant)
}

func (h *TenantHandler) RegisterPhone(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	var req registerPhoneRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.RegisterPhoneNumber(ctx, tenantID, req.Pin); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(204)
}

func (h *TenantHandler) Disconnect(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	tenant, err := h.svc.Disconnect(ctx, tenantID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, tenant)
}

func (h *TenantHandler) GetStatus(ctx *xhttp.RequestCtx) {
	tenantID, err := pathUUID(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid tenant id")
		return
	}

	tenant, err := h.svc.Status(ctx, tenantID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, 200, statusResponse{
		TenantID:      tenant.TenantID,
		Status:        tenant.Status,
		Connected:     tenant.Connected(),
		WabaID:        tenant.WabaID,
		PhoneNumberID: tenant.PhoneNumberID,
		PhoneNumber:   tenant.PhoneNumber,
		TokenExpires:  tenant.TokenExpires,
	})
}
