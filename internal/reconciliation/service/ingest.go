package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/detector"
	"tally/internal/reconciliation/matcher"
	"tally/internal/reconciliation/models"
	"tally/internal/reconciliation/risk"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

// errStale means the chosen candidate changed between selection and lock.
var errStale = errors.New("candidate no longer available")

type ReceiptInput struct {
	TenantID   id.TenantID
	WaiterID   id.WaiterID
	Amount     decimal.Decimal
	IssuedAt   time.Time
	RawSource  string
	ExternalID string
}

func (in ReceiptInput) validate() error {
	switch {
	case in.TenantID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "tenant id is required")
	case in.WaiterID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "waiter id is required")
	case strings.TrimSpace(in.ExternalID) == "":
		return dErrors.New(dErrors.CodeValidation, "external id is required")
	case in.Amount.IsNegative():
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	case in.IssuedAt.IsZero():
		return dErrors.New(dErrors.CodeValidation, "issued at is required")
	}
	return nil
}

type PaymentInput struct {
	TenantID   id.TenantID
	Amount     decimal.Decimal
	Tip        decimal.Decimal
	Method     models.PaymentMethod
	OccurredAt time.Time
	ChannelRef string
	ExternalID string
}

func (in PaymentInput) validate() error {
	switch {
	case in.TenantID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "tenant id is required")
	case strings.TrimSpace(in.ExternalID) == "":
		return dErrors.New(dErrors.CodeValidation, "external id is required")
	case in.Amount.IsNegative():
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	case in.Tip.IsNegative():
		return dErrors.New(dErrors.CodeValidation, "tip must not be negative")
	case !in.Method.IsValid():
		return dErrors.New(dErrors.CodeValidation, "method must be one of Telebirr, M-Pesa, CBE Birr, Cash, Card")
	case in.OccurredAt.IsZero():
		return dErrors.New(dErrors.CodeValidation, "occurred at is required")
	}
	return nil
}

// SubmitResult is the record owning the submitted item after placement.
// Duplicate is set when the external id had been seen before; the record is
// then returned as it stands and nothing is re-evaluated.
type SubmitResult struct {
	Record        *models.Record
	Discrepancies []*models.Discrepancy
	Duplicate     bool
}

func (s *Service) SubmitReceipt(ctx context.Context, in ReceiptInput) (_ *SubmitResult, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.SubmitReceipt")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSubmit(string(models.KindReceipt), time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkWaiter(ctx, in.TenantID, in.WaiterID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	receipt := &models.Receipt{
		ID:          id.NewReceiptID(),
		TenantID:    in.TenantID,
		WaiterID:    in.WaiterID,
		ExternalID:  strings.TrimSpace(in.ExternalID),
		Amount:      in.Amount,
		IssuedAt:    in.IssuedAt.UTC(),
		RawSource:   in.RawSource,
		Fingerprint: models.Fingerprint(in.RawSource),
		CreatedAt:   now,
	}
	stored, created, err := s.store.PutReceipt(ctx, receipt)
	if err != nil {
		return nil, wrapStoreErr(err, "receipt")
	}
	s.metrics.IncrementSubmission(string(models.KindReceipt), created)
	return s.ingest(ctx, models.ReceiptItem(stored), created)
}

func (s *Service) SubmitPayment(ctx context.Context, in PaymentInput) (_ *SubmitResult, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.SubmitPayment")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSubmit(string(models.KindPayment), time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkTenant(ctx, in.TenantID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	payment := &models.PaymentEvent{
		ID:         id.NewPaymentID(),
		TenantID:   in.TenantID,
		ExternalID: strings.TrimSpace(in.ExternalID),
		Amount:     in.Amount,
		Tip:        in.Tip,
		Method:     in.Method,
		OccurredAt: in.OccurredAt.UTC(),
		ChannelRef: strings.TrimSpace(in.ChannelRef),
		CreatedAt:  now,
	}
	stored, created, err := s.store.PutPayment(ctx, payment)
	if err != nil {
		return nil, wrapStoreErr(err, "payment")
	}
	s.metrics.IncrementSubmission(string(models.KindPayment), created)
	return s.ingest(ctx, models.PaymentItem(stored), created)
}

func (s *Service) checkTenant(ctx context.Context, tenantID id.TenantID) error {
	if s.directory == nil {
		return nil
	}
	return s.directory.CheckTenant(ctx, tenantID)
}

func (s *Service) checkWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) error {
	if s.directory == nil {
		return nil
	}
	if err := s.directory.CheckTenant(ctx, tenantID); err != nil {
		return err
	}
	return s.directory.CheckWaiter(ctx, tenantID, waiterID)
}

// ingest places a freshly stored item. A replayed item returns its owning
// record; if the first delivery died before placing it, placement resumes.
func (s *Service) ingest(ctx context.Context, item models.Item, created bool) (*SubmitResult, error) {
	if !created {
		rec, err := s.store.FindRecordByItem(ctx, item)
		switch {
		case err == nil:
			discs, err := s.store.ListRecordDiscrepancies(ctx, rec.ID)
			if err != nil {
				return nil, wrapStoreErr(err, "discrepancies")
			}
			return &SubmitResult{Record: rec, Discrepancies: discs, Duplicate: true}, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return nil, wrapStoreErr(err, "record")
		}
		s.logger.WarnContext(ctx, "replayed item has no record, resuming placement",
			"tenant_id", item.TenantID,
			"kind", item.Kind,
			"item_id", item.Key(),
		)
	}

	res, err := s.place(ctx, item)
	if err != nil {
		return nil, err
	}
	res.Duplicate = !created
	return res, nil
}

// place binds item to the best pending counterpart or parks it in a new
// pending record.
func (s *Service) place(ctx context.Context, item models.Item) (*SubmitResult, error) {
	unlock, err := s.locker.Lock(ctx, itemKey(item))
	if err != nil {
		return nil, wrapStoreErr(err, "item")
	}
	defer unlock()

	if rec, err := s.store.FindRecordByItem(ctx, item); err == nil {
		return &SubmitResult{Record: rec}, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "record")
	}

	window := s.cfg.MatchWindow()
	for attempt := 0; attempt < maxPlaceAttempts; attempt++ {
		candidates, err := s.store.ListPendingCandidates(ctx, item.TenantID, item.Kind.Opposite(),
			item.At.Add(-window), item.At.Add(window))
		if err != nil {
			return nil, wrapStoreErr(err, "candidates")
		}
		result := matcher.Select(item, candidates, s.cfg)
		if !result.Found() {
			break
		}
		res, err := s.bind(ctx, item, result)
		if errors.Is(err, errStale) {
			s.metrics.IncrementMatchRetry()
			continue
		}
		return res, err
	}
	parked, err := s.park(ctx, item)
	if err != nil {
		return nil, err
	}
	return s.rematch(ctx, item, parked), nil
}

func (s *Service) park(ctx context.Context, item models.Item) (*SubmitResult, error) {
	now := requestcontext.Now(ctx)
	rec := models.NewPendingRecord(item, now)
	cs := &models.Changeset{Create: []*models.Record{rec}}
	cs.Link(item, rec.ID)
	if err := s.store.ApplyChangeset(ctx, cs); err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	s.logAudit(ctx, "record_pending",
		"tenant_id", rec.TenantID,
		"record_id", rec.ID,
		"kind", item.Kind,
	)
	return &SubmitResult{Record: rec}, nil
}

// rematch looks once more for a counterpart after item was parked. A
// counterpart placed concurrently may have missed item the same way item
// missed it; merging here keeps the pair from waiting for the sweep. Any
// failure leaves the parked record as it is.
func (s *Service) rematch(ctx context.Context, item models.Item, parked *SubmitResult) *SubmitResult {
	item.RecordID = parked.Record.ID
	window := s.cfg.MatchWindow()
	candidates, err := s.store.ListPendingCandidates(ctx, item.TenantID, item.Kind.Opposite(),
		item.At.Add(-window), item.At.Add(window))
	if err != nil {
		s.logger.WarnContext(ctx, "rematch candidates unavailable", "record_id", parked.Record.ID, "error", err)
		return parked
	}
	result := matcher.Select(item, candidates, s.cfg)
	if !result.Found() {
		return parked
	}
	if _, err := s.merge(ctx, parked.Record.ID, result); err != nil {
		if errors.Is(err, errStale) {
			s.metrics.IncrementMatchRetry()
		} else {
			s.logger.WarnContext(ctx, "rematch failed, record stays pending", "record_id", parked.Record.ID, "error", err)
		}
		return parked
	}

	rec, err := s.store.FindRecordByItem(ctx, item)
	if err != nil {
		return parked
	}
	discs, err := s.store.ListRecordDiscrepancies(ctx, rec.ID)
	if err != nil {
		return &SubmitResult{Record: rec}
	}
	return &SubmitResult{Record: rec, Discrepancies: discs}
}

// bind attaches item to the candidate's record and settles the pair.
func (s *Service) bind(ctx context.Context, item models.Item, result matcher.Result) (*SubmitResult, error) {
	candidate := *result.Candidate
	unlock, err := s.locker.Lock(ctx, recordKey(candidate.RecordID))
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	defer unlock()

	rec, err := s.store.GetRecord(ctx, candidate.RecordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, errStale
	}
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	if err := rec.CanBind(item); err != nil {
		return nil, errStale
	}

	now := requestcontext.Now(ctx)
	rec.ApplyBind(item, result.Ambiguous, now)
	ev, err := s.gatherEvidence(ctx, rec)
	if err != nil {
		return nil, wrapStoreErr(err, "evidence")
	}
	discs, err := s.settle(rec, ev, now)
	if err != nil {
		return nil, err
	}

	cs := &models.Changeset{Update: []*models.Record{rec}, Discrepancies: discs}
	cs.Link(item, rec.ID)
	if err := s.store.ApplyChangeset(ctx, cs); err != nil {
		if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrInvalidState) {
			return nil, errStale
		}
		return nil, wrapStoreErr(err, "record")
	}
	s.committed(ctx, "record_"+string(rec.Status), rec, discs)
	return &SubmitResult{Record: rec, Discrepancies: discs}, nil
}

// settle scores rec, runs detection and applies the resulting transition.
// A paired record settles as Matched or Flagged; a solo record whose window
// elapsed settles as Flagged or Expired.
func (s *Service) settle(rec *models.Record, ev *evidence, now time.Time) ([]*models.Discrepancy, error) {
	in := ev.detectorInput(rec)
	findings := detector.Detect(in, s.cfg)
	riskIn := ev.riskInput(rec)

	var decision detector.Decision
	if rec.IsPaired() {
		decision = detector.Decide(risk.Score(riskIn, s.cfg), findings, s.cfg)
	} else {
		riskIn.Unmatched = true
		decision = detector.DecideUnmatched(risk.Score(riskIn, s.cfg), in, findings, s.cfg)
	}
	if err := rec.CanTransitionTo(decision.Status); err != nil {
		return nil, err
	}
	rec.ApplyTransition(decision.Status, decision.Score, now)
	return models.Materialize(rec, decision.Findings, now), nil
}
