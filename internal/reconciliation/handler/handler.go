package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
	"tally/internal/reconciliation/service"
	id "tally/pkg/domain"
	"tally/pkg/platform/httputil"
	"tally/pkg/requestcontext"
)

// Service is the reconciliation surface exposed over HTTP.
type Service interface {
	Config() config.Config
	SubmitReceipt(ctx context.Context, in service.ReceiptInput) (*service.SubmitResult, error)
	SubmitPayment(ctx context.Context, in service.PaymentInput) (*service.SubmitResult, error)
	GetRecord(ctx context.Context, recordID id.RecordID) (*service.RecordView, error)
	ListRecordsByStatus(ctx context.Context, tenantID id.TenantID, statuses ...models.Status) ([]*models.Record, error)
	ListDiscrepancies(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Discrepancy, error)
	DiscrepancyCounts(ctx context.Context, tenantID id.TenantID, since time.Time) (map[models.DiscrepancyType]int, error)
	Escalate(ctx context.Context, recordID id.RecordID, discrepancyType models.DiscrepancyType, description string) (*service.RecordView, error)
	Sweep(ctx context.Context) (service.SweepReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	ingest  []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithIngestMiddleware wraps only the receipt and payment submit routes.
// They run after routing, so URL parameters are available.
func WithIngestMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.ingest = append(h.ingest, mw...)
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ingest and query endpoints.
func (h *Handler) Register(r chi.Router) {
	r.With(h.ingest...).Post("/tenants/{tenantID}/receipts", h.HandleSubmitReceipt)
	r.With(h.ingest...).Post("/tenants/{tenantID}/payments", h.HandleSubmitPayment)
	r.Get("/tenants/{tenantID}/records", h.HandleListRecords)
	r.Get("/tenants/{tenantID}/discrepancies", h.HandleListDiscrepancies)
	r.Get("/tenants/{tenantID}/discrepancies/counts", h.HandleDiscrepancyCounts)
	r.Get("/records/{recordID}", h.HandleGetRecord)
	r.Post("/records/{recordID}/escalations", h.HandleEscalate)
}

// RegisterAdmin mounts operator endpoints; callers guard them.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/sweep", h.HandleSweep)
}

func (h *Handler) HandleSubmitReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitReceiptRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.SubmitReceipt(ctx, service.ReceiptInput{
		TenantID:   tenantID,
		WaiterID:   req.parsedWaiterID,
		Amount:     req.parsedAmount,
		IssuedAt:   req.IssuedAt,
		RawSource:  req.RawSource,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "receipt submission failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"external_id", req.ExternalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, submitStatus(res), toSubmit(res, h.service.Config()))
}

func (h *Handler) HandleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitPaymentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.SubmitPayment(ctx, service.PaymentInput{
		TenantID:   tenantID,
		Amount:     req.parsedAmount,
		Tip:        req.parsedTip,
		Method:     req.parsedMethod,
		OccurredAt: req.OccurredAt,
		ChannelRef: req.ChannelRef,
		ExternalID: req.ExternalID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "payment submission failed",
			"request_id", requestID,
			"tenant_id", tenantID,
			"external_id", req.ExternalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, submitStatus(res), toSubmit(res, h.service.Config()))
}

// submitStatus answers 200 for a replayed external id, 201 otherwise.
func submitStatus(res *service.SubmitResult) int {
	if res.Duplicate {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.GetRecord(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(view, h.service.Config()))
}

func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.service.ListRecordsByStatus(r.Context(), tenantID, statuses...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": toRecords(recs, h.service.Config())})
}

func (h *Handler) HandleListDiscrepancies(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	since, err := optionalTime(r.URL.Query(), "since")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	discs, err := h.service.ListDiscrepancies(r.Context(), tenantID, since)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"discrepancies": toDiscrepancies(discs)})
}

func (h *Handler) HandleDiscrepancyCounts(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	since, err := optionalTime(r.URL.Query(), "since")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	counts, err := h.service.DiscrepancyCounts(r.Context(), tenantID, since)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"counts": out})
}

func (h *Handler) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[EscalateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	view, err := h.service.Escalate(ctx, recordID, req.parsedType, req.Description)
	if err != nil {
		h.logger.WarnContext(ctx, "escalation failed",
			"request_id", requestID,
			"record_id", recordID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(view, h.service.Config()))
}

// HandleSweep runs one sweep pass synchronously and returns its report.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.Sweep(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
