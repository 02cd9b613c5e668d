// Package service orchestrates reconciliation: ingest, matching, scoring,
// discrepancy detection and status transitions. Every mutation of a record
// happens under that record's lock and commits as one changeset.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tally/internal/platform/lock"
	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/metrics"
	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

var tracer = otel.Tracer("tally/reconciliation")

// maxPlaceAttempts bounds how often a submit re-selects after losing a
// candidate to a concurrent writer before parking the item as pending.
const maxPlaceAttempts = 3

type Service struct {
	store     Store
	locker    Locker
	cfg       config.Config
	directory Directory
	merchants MerchantVerifier
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithDirectory enables UnknownTenant / UnknownWaiter rejection on ingest.
func WithDirectory(d Directory) Option {
	return func(s *Service) {
		s.directory = d
	}
}

// WithMerchantVerifier enables the InvalidMerchant rule.
func WithMerchantVerifier(v MerchantVerifier) Option {
	return func(s *Service) {
		s.merchants = v
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

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

// New validates cfg; an invalid configuration is a CodeConfiguration error
// and must stop startup.
func New(store Store, cfg config.Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("reconciliation store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewKeyed()
	}
	return s, nil
}

func (s *Service) Config() config.Config {
	return s.cfg
}

func recordKey(recordID id.RecordID) string {
	return "record:" + recordID.String()
}

func itemKey(item models.Item) string {
	return string(item.Kind) + ":" + item.Key()
}

// lockRecords locks records in ascending id order and returns one unlock.
func (s *Service) lockRecords(ctx context.Context, a, b id.RecordID) (func(), error) {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	unlockFirst, err := s.locker.Lock(ctx, recordKey(first))
	if err != nil {
		return nil, err
	}
	if first == second {
		return unlockFirst, nil
	}
	unlockSecond, err := s.locker.Lock(ctx, recordKey(second))
	if err != nil {
		unlockFirst()
		return nil, err
	}
	return func() {
		unlockSecond()
		unlockFirst()
	}, nil
}

func (s *Service) publish(ctx context.Context, rec *models.Record, discrepancies []*models.Discrepancy) {
	if s.publisher == nil {
		return
	}
	events := models.EventsFor(rec, discrepancies, requestcontext.Now(ctx))
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.logger.WarnContext(ctx, "failed to publish reconciliation events",
			"record_id", rec.ID,
			"events", len(events),
			"error", err,
		)
	}
}

// committed records metrics, the audit log line and outbound events for a
// record whose changeset has been applied.
func (s *Service) committed(ctx context.Context, event string, rec *models.Record, discrepancies []*models.Discrepancy) {
	if rec.Status.IsSettled() {
		s.metrics.ObserveSettled(string(rec.Status), rec.RiskScore)
	}
	for _, d := range discrepancies {
		s.metrics.IncrementDiscrepancy(string(d.Type))
	}
	s.logAudit(ctx, event,
		"tenant_id", rec.TenantID,
		"record_id", rec.ID,
		"status", rec.Status,
		"risk_score", rec.RiskScore,
		"discrepancies", len(discrepancies),
	)
	s.publish(ctx, rec, discrepancies)
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

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// wrapStoreErr maps ledger sentinels onto domain errors.
func wrapStoreErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" was modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidTransition, what+" is expired and immutable")
	case errors.Is(err, sentinel.ErrLockNotObtained), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" is busy, retry later")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, what+" timed out")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+what)
}
