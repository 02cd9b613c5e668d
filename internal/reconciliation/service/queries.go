package service

import (
	"context"
	"time"

	"tally/internal/reconciliation/models"
	"tally/internal/shift/aggregator"
	shiftmodels "tally/internal/shift/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
)

// RecordView is a record with every discrepancy attached to it.
type RecordView struct {
	Record        *models.Record        `json:"record"`
	Discrepancies []*models.Discrepancy `json:"discrepancies"`
}

func (s *Service) GetRecord(ctx context.Context, recordID id.RecordID) (*RecordView, error) {
	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	discs, err := s.store.ListRecordDiscrepancies(ctx, recordID)
	if err != nil {
		return nil, wrapStoreErr(err, "discrepancies")
	}
	return &RecordView{Record: rec, Discrepancies: discs}, nil
}

// ListRecordsByStatus lists the tenant's records in any of statuses, or in
// every status when none is given.
func (s *Service) ListRecordsByStatus(ctx context.Context, tenantID id.TenantID, statuses ...models.Status) ([]*models.Record, error) {
	if len(statuses) == 0 {
		statuses = []models.Status{models.StatusPending, models.StatusMatched, models.StatusFlagged, models.StatusExpired}
	}
	for _, st := range statuses {
		if !st.IsValid() {
			return nil, dErrors.New(dErrors.CodeValidation, "status must be one of pending, matched, flagged, expired")
		}
	}
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	recs, err := s.store.ListRecordsByStatus(ctx, tenantID, statuses...)
	if err != nil {
		return nil, wrapStoreErr(err, "records")
	}
	return recs, nil
}

func (s *Service) ListDiscrepancies(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Discrepancy, error) {
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	discs, err := s.store.ListDiscrepancies(ctx, tenantID, since)
	if err != nil {
		return nil, wrapStoreErr(err, "discrepancies")
	}
	return discs, nil
}

// DiscrepancyCounts returns one entry per known type, zero included.
func (s *Service) DiscrepancyCounts(ctx context.Context, tenantID id.TenantID, since time.Time) (map[models.DiscrepancyType]int, error) {
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	counts, err := s.store.DiscrepancyCounts(ctx, tenantID, since)
	if err != nil {
		return nil, wrapStoreErr(err, "discrepancies")
	}
	out := make(map[models.DiscrepancyType]int, len(models.AllDiscrepancyTypes))
	for _, t := range models.AllDiscrepancyTypes {
		out[t] = counts[t]
	}
	return out, nil
}

// Summarize folds one waiter's ledger over [from, to) from a consistent
// snapshot.
func (s *Service) Summarize(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, from, to time.Time) (_ *shiftmodels.Summary, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Summarize")
	defer func() { endSpan(span, err) }()

	if err := validPeriod(from, to); err != nil {
		return nil, err
	}
	if err := s.checkWaiter(ctx, tenantID, waiterID); err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx, models.SnapshotQuery{TenantID: tenantID, WaiterID: &waiterID, From: from, To: to})
	if err != nil {
		return nil, wrapStoreErr(err, "ledger snapshot")
	}
	return aggregator.Summarize(tenantID, waiterID, from, to, snap), nil
}

// DailyStats is matched revenue per UTC day across the whole tenant.
func (s *Service) DailyStats(ctx context.Context, tenantID id.TenantID, from, to time.Time) ([]models.DailyStat, error) {
	if err := validPeriod(from, to); err != nil {
		return nil, err
	}
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx, models.SnapshotQuery{TenantID: tenantID, From: from, To: to})
	if err != nil {
		return nil, wrapStoreErr(err, "ledger snapshot")
	}
	return aggregator.Daily(snap), nil
}

func validPeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "from and to are required")
	}
	if !from.Before(to) {
		return dErrors.New(dErrors.CodeValidation, "from must be before to")
	}
	return nil
}
