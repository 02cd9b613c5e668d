// Package service runs waiter shifts. Closing a shift freezes the waiter's
// summary over the shift period from one ledger snapshot.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/metrics"
	"tally/internal/shift/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

var tracer = otel.Tracer("tally/shift")

type Service struct {
	store   Store
	roster  Roster
	ledger  Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, roster Roster, ledger Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("shift store is required")
	}
	if roster == nil {
		return nil, errors.New("roster is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	s := &Service{store: store, roster: roster, ledger: ledger, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenShift starts a shift for the waiter. A waiter with an open shift gets
// CodeConflict.
func (s *Service) OpenShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error) {
	if err := s.roster.CheckWaiter(ctx, tenantID, waiterID); err != nil {
		return nil, err
	}
	sh := models.NewShift(tenantID, waiterID, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, sh); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "waiter already has an open shift")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open shift")
	}
	if err := s.roster.SetActiveShift(ctx, tenantID, waiterID, &sh.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to mark waiter on shift",
			"tenant_id", tenantID,
			"waiter_id", waiterID,
			"shift_id", sh.ID,
			"error", err,
		)
	}
	s.metrics.IncrementOpened()
	s.logAudit(ctx, "shift_opened",
		"tenant_id", tenantID,
		"waiter_id", waiterID,
		"shift_id", sh.ID,
	)
	return sh, nil
}

// CloseShift ends the waiter's open shift and attaches its summary. Without
// an open shift the call fails with CodeInvalidTransition.
func (s *Service) CloseShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (_ *models.Shift, err error) {
	ctx, span := tracer.Start(ctx, "shift.CloseShift")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := s.roster.CheckWaiter(ctx, tenantID, waiterID); err != nil {
		return nil, err
	}
	sh, err := s.store.FindOpen(ctx, tenantID, waiterID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "waiter has no open shift")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shift")
	}

	now := requestcontext.Now(ctx)
	if err := sh.CanClose(now); err != nil {
		return nil, err
	}
	summary, err := s.ledger.Summarize(ctx, tenantID, waiterID, sh.OpenedAt, periodEnd(sh.OpenedAt, now))
	if err != nil {
		return nil, err
	}
	sh.ApplyClose(now, summary)
	if err := s.store.Close(ctx, sh); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvalidTransition, "shift is already closed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close shift")
	}
	if err := s.roster.SetActiveShift(ctx, tenantID, waiterID, nil); err != nil {
		s.logger.WarnContext(ctx, "failed to clear waiter shift",
			"tenant_id", tenantID,
			"waiter_id", waiterID,
			"shift_id", sh.ID,
			"error", err,
		)
	}
	s.metrics.ObserveClosed(now.Sub(sh.OpenedAt))
	s.logAudit(ctx, "shift_closed",
		"tenant_id", tenantID,
		"waiter_id", waiterID,
		"shift_id", sh.ID,
		"total_sales", summary.TotalSales.StringFixed(2),
		"flagged", summary.FlaggedCount,
		"cutoff", summary.Cutoff,
	)
	return sh, nil
}

// periodEnd is exclusive; a shift closed in the instant it opened still
// covers that instant.
func periodEnd(openedAt, now time.Time) time.Time {
	if now.After(openedAt) {
		return now
	}
	return openedAt.Add(time.Nanosecond)
}

func (s *Service) GetShift(ctx context.Context, shiftID id.ShiftID) (*models.Shift, error) {
	sh, err := s.store.Get(ctx, shiftID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "shift not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load shift")
	}
	return sh, nil
}

func (s *Service) ListShifts(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) ([]*models.Shift, error) {
	if err := s.roster.CheckWaiter(ctx, tenantID, waiterID); err != nil {
		return nil, err
	}
	shifts, err := s.store.ListByWaiter(ctx, tenantID, waiterID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list shifts")
	}
	return shifts, nil
}

// Summarize reports a waiter's totals over an arbitrary period.
func (s *Service) Summarize(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, from, to time.Time) (*models.Summary, error) {
	return s.ledger.Summarize(ctx, tenantID, waiterID, from, to)
}

func (s *Service) DailyStats(ctx context.Context, tenantID id.TenantID, from, to time.Time) ([]recon.DailyStat, error) {
	return s.ledger.DailyStats(ctx, tenantID, from, to)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
