package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/reconciliation/matcher"
	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

const (
	outcomeSkipped = "skipped"
	outcomeMerged  = "merged"
	outcomeFailed  = "failed"
)

// SweepReport counts what a pass did. Merged records are also counted under
// the status the survivor settled in.
type SweepReport struct {
	Tenants  int `json:"tenants"`
	Examined int `json:"examined"`
	Matched  int `json:"matched"`
	Flagged  int `json:"flagged"`
	Expired  int `json:"expired"`
	Merged   int `json:"merged"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r *SweepReport) add(other SweepReport) {
	r.Tenants += other.Tenants
	r.Examined += other.Examined
	r.Matched += other.Matched
	r.Flagged += other.Flagged
	r.Expired += other.Expired
	r.Merged += other.Merged
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

func (r *SweepReport) count(status models.Status) {
	switch status {
	case models.StatusMatched:
		r.Matched++
	case models.StatusFlagged:
		r.Flagged++
	case models.StatusExpired:
		r.Expired++
	}
}

// Sweep settles every pending record whose matching window has elapsed,
// across all tenants. Tenants run concurrently up to SweepConcurrency.
// Re-running a pass is safe: settled records are skipped.
func (s *Service) Sweep(ctx context.Context) (report SweepReport, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Sweep")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSweep(time.Now())

	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	tenants, err := s.store.TenantsWithPending(ctx)
	if err != nil {
		return report, wrapStoreErr(err, "pending tenants")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepConcurrency)
	for _, tenantID := range tenants {
		g.Go(func() error {
			tr, err := s.SweepTenant(gctx, tenantID)
			mu.Lock()
			report.add(tr)
			mu.Unlock()
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			if err != nil {
				s.logger.ErrorContext(gctx, "sweep of tenant failed",
					"tenant_id", tenantID,
					"error", err,
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	s.logAudit(ctx, "sweep_completed",
		"tenants", report.Tenants,
		"examined", report.Examined,
		"matched", report.Matched,
		"flagged", report.Flagged,
		"expired", report.Expired,
		"merged", report.Merged,
		"failed", report.Failed,
	)
	return report, nil
}

// SweepTenant runs one pass over a single tenant. A failing record is logged
// and counted; only cancellation or a failed listing stops the pass.
func (s *Service) SweepTenant(ctx context.Context, tenantID id.TenantID) (SweepReport, error) {
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)
	report := SweepReport{Tenants: 1}

	pending, err := s.store.ListPending(ctx, tenantID, now.Add(-s.cfg.MatchWindow()))
	if err != nil {
		return report, wrapStoreErr(err, "pending records")
	}
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Examined++
		status, merged, err := s.sweepRecord(ctx, rec.ID)
		switch {
		case err != nil:
			report.Failed++
			s.metrics.IncrementSweepFailure()
			s.metrics.IncrementSweepRecord(outcomeFailed)
			s.logger.ErrorContext(ctx, "failed to sweep record",
				"tenant_id", tenantID,
				"record_id", rec.ID,
				"error", err,
			)
			continue
		case status == "":
			report.Skipped++
			s.metrics.IncrementSweepRecord(outcomeSkipped)
			continue
		}
		report.count(status)
		if merged {
			report.Merged++
			s.metrics.IncrementSweepRecord(outcomeMerged)
		} else {
			s.metrics.IncrementSweepRecord(string(status))
		}
	}
	return report, nil
}

// sweepRecord returns the status the record settled in, or "" when it was no
// longer pending. A late counterpart found among the tenant's other pending
// records is merged in before the record is given up on.
func (s *Service) sweepRecord(ctx context.Context, recordID id.RecordID) (models.Status, bool, error) {
	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return "", false, wrapStoreErr(err, "record")
	}
	if rec.Status != models.StatusPending {
		return "", false, nil
	}

	if item, ok, err := s.soloItem(ctx, rec); err != nil {
		return "", false, err
	} else if ok {
		window := s.cfg.MatchWindow()
		candidates, err := s.store.ListPendingCandidates(ctx, rec.TenantID, item.Kind.Opposite(),
			item.At.Add(-window), item.At.Add(window))
		if err != nil {
			return "", false, wrapStoreErr(err, "candidates")
		}
		if result := matcher.Select(item, candidates, s.cfg); result.Found() {
			status, err := s.merge(ctx, rec.ID, result)
			if !errors.Is(err, errStale) {
				return status, err == nil, err
			}
			s.metrics.IncrementMatchRetry()
		}
	}

	status, err := s.expire(ctx, rec.ID)
	return status, false, err
}

func (s *Service) soloItem(ctx context.Context, rec *models.Record) (models.Item, bool, error) {
	kind, ok := rec.SoloKind()
	if !ok {
		return models.Item{}, false, nil
	}
	var item models.Item
	if kind == models.KindReceipt {
		r, err := s.store.GetReceipt(ctx, *rec.ReceiptID)
		if err != nil {
			return models.Item{}, false, wrapStoreErr(err, "receipt")
		}
		item = models.ReceiptItem(r)
	} else {
		p, err := s.store.GetPayment(ctx, *rec.PaymentID)
		if err != nil {
			return models.Item{}, false, wrapStoreErr(err, "payment")
		}
		item = models.PaymentItem(p)
	}
	item.RecordID = rec.ID
	return item, true, nil
}

// merge binds the counterpart's item into the survivor and retires the
// counterpart's record as superseded. Both records are locked.
func (s *Service) merge(ctx context.Context, survivorID id.RecordID, result matcher.Result) (models.Status, error) {
	candidate := *result.Candidate
	unlock, err := s.lockRecords(ctx, survivorID, candidate.RecordID)
	if err != nil {
		return "", wrapStoreErr(err, "record")
	}
	defer unlock()

	survivor, err := s.store.GetRecord(ctx, survivorID)
	if err != nil {
		return "", wrapStoreErr(err, "record")
	}
	absorbed, err := s.store.GetRecord(ctx, candidate.RecordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", errStale
	}
	if err != nil {
		return "", wrapStoreErr(err, "record")
	}
	if survivor.Status != models.StatusPending {
		return "", nil
	}
	if absorbed.Status != models.StatusPending || survivor.CanBind(candidate) != nil {
		return "", errStale
	}

	now := requestcontext.Now(ctx)
	survivor.ApplyBind(candidate, result.Ambiguous, now)
	absorbed.ApplySupersede(survivor.ID, now)
	ev, err := s.gatherEvidence(ctx, survivor)
	if err != nil {
		return "", wrapStoreErr(err, "evidence")
	}
	discs, err := s.settle(survivor, ev, now)
	if err != nil {
		return "", err
	}

	cs := &models.Changeset{Update: []*models.Record{absorbed, survivor}, Discrepancies: discs}
	cs.Link(candidate, survivor.ID)
	if err := s.store.ApplyChangeset(ctx, cs); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", errStale
		}
		return "", wrapStoreErr(err, "record")
	}
	s.logAudit(ctx, "record_superseded",
		"tenant_id", absorbed.TenantID,
		"record_id", absorbed.ID,
		"superseded_by", survivor.ID,
	)
	s.committed(ctx, "record_"+string(survivor.Status), survivor, discs)
	return survivor.Status, nil
}

// expire settles a record whose window elapsed without a counterpart.
func (s *Service) expire(ctx context.Context, recordID id.RecordID) (models.Status, error) {
	unlock, err := s.locker.Lock(ctx, recordKey(recordID))
	if err != nil {
		return "", wrapStoreErr(err, "record")
	}
	defer unlock()

	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return "", wrapStoreErr(err, "record")
	}
	if rec.Status != models.StatusPending {
		return "", nil
	}

	now := requestcontext.Now(ctx)
	ev, err := s.gatherEvidence(ctx, rec)
	if err != nil {
		return "", wrapStoreErr(err, "evidence")
	}
	discs, err := s.settle(rec, ev, now)
	if err != nil {
		return "", err
	}
	if err := s.store.ApplyChangeset(ctx, &models.Changeset{Update: []*models.Record{rec}, Discrepancies: discs}); err != nil {
		return "", wrapStoreErr(err, "record")
	}
	s.committed(ctx, "record_"+string(rec.Status), rec, discs)
	return rec.Status, nil
}
