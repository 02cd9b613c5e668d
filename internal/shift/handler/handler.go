package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/httputil"
	"tally/pkg/requestcontext"
)

type Service interface {
	OpenShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error)
	CloseShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error)
	ListShifts(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) ([]*models.Shift, error)
	Summarize(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, from, to time.Time) (*models.Summary, error)
	DailyStats(ctx context.Context, tenantID id.TenantID, from, to time.Time) ([]recon.DailyStat, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants/{tenantID}/waiters/{waiterID}/shifts", h.HandleOpenShift)
	r.Post("/tenants/{tenantID}/waiters/{waiterID}/shifts/close", h.HandleCloseShift)
	r.Get("/tenants/{tenantID}/waiters/{waiterID}/shifts", h.HandleListShifts)
	r.Get("/tenants/{tenantID}/waiters/{waiterID}/summary", h.HandleSummary)
	r.Get("/tenants/{tenantID}/stats/daily", h.HandleDailyStats)
}

func (h *Handler) HandleOpenShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, waiterID, ok := waiterParams(w, r)
	if !ok {
		return
	}
	sh, err := h.service.OpenShift(ctx, tenantID, waiterID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open shift",
			"request_id", requestcontext.RequestID(ctx),
			"tenant_id", tenantID,
			"waiter_id", waiterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toShift(sh))
}

func (h *Handler) HandleCloseShift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, waiterID, ok := waiterParams(w, r)
	if !ok {
		return
	}
	sh, err := h.service.CloseShift(ctx, tenantID, waiterID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to close shift",
			"request_id", requestcontext.RequestID(ctx),
			"tenant_id", tenantID,
			"waiter_id", waiterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toShift(sh))
}

func (h *Handler) HandleListShifts(w http.ResponseWriter, r *http.Request) {
	tenantID, waiterID, ok := waiterParams(w, r)
	if !ok {
		return
	}
	shifts, err := h.service.ListShifts(r.Context(), tenantID, waiterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"shifts": toShifts(shifts)})
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, waiterID, ok := waiterParams(w, r)
	if !ok {
		return
	}
	from, to, err := parsePeriod(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.Summarize(r.Context(), tenantID, waiterID, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSummary(summary))
}

func (h *Handler) HandleDailyStats(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, to, err := parsePeriod(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	days, err := h.service.DailyStats(r.Context(), tenantID, from, to)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDaily(days))
}

func waiterParams(w http.ResponseWriter, r *http.Request) (id.TenantID, id.WaiterID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TenantID{}, id.WaiterID{}, false
	}
	waiterID, err := id.ParseWaiterID(chi.URLParam(r, "waiterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.TenantID{}, id.WaiterID{}, false
	}
	return tenantID, waiterID, true
}
