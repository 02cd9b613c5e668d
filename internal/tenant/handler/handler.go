package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/httputil"
	"tally/pkg/requestcontext"
)

type Service interface {
	CreateTenant(ctx context.Context, name string) (*models.Tenant, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	CreateWaiter(ctx context.Context, tenantID id.TenantID, name string) (*models.Waiter, error)
	ListWaiters(ctx context.Context, tenantID id.TenantID) ([]*models.Waiter, error)
	AddMerchant(ctx context.Context, tenantID id.TenantID, channelRef, label string) (*models.Merchant, error)
	ListMerchants(ctx context.Context, tenantID id.TenantID) ([]*models.Merchant, error)
}

// Handler serves the tenant directory. All routes are operator routes;
// callers mount them behind the admin token guard.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants", h.HandleCreateTenant)
	r.Get("/tenants/{tenantID}", h.HandleGetTenant)
	r.Post("/tenants/{tenantID}/waiters", h.HandleCreateWaiter)
	r.Get("/tenants/{tenantID}/waiters", h.HandleListWaiters)
	r.Post("/tenants/{tenantID}/merchants", h.HandleAddMerchant)
	r.Get("/tenants/{tenantID}/merchants", h.HandleListMerchants)
}

func (h *Handler) HandleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTenantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	t, err := h.service.CreateTenant(ctx, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create tenant",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTenant(t))
}

func (h *Handler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.GetTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTenant(t))
}

func (h *Handler) HandleCreateWaiter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateWaiterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	waiter, err := h.service.CreateWaiter(ctx, tenantID, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create waiter",
			"request_id", requestID,
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toWaiter(waiter))
}

func (h *Handler) HandleListWaiters(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	waiters, err := h.service.ListWaiters(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"waiters": toWaiters(waiters)})
}

func (h *Handler) HandleAddMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddMerchantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	m, err := h.service.AddMerchant(ctx, tenantID, req.ChannelRef, req.Label)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to add merchant",
			"request_id", requestID,
			"tenant_id", tenantID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toMerchant(m))
}

func (h *Handler) HandleListMerchants(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	merchants, err := h.service.ListMerchants(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"merchants": toMerchants(merchants)})
}
