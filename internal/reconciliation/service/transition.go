package service

import (
	"context"
	"fmt"
	"strings"

	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/requestcontext"
)

// Transition moves a record along the state machine without adding a
// discrepancy. Moving to Flagged this way requires the record to already
// carry one; use Escalate to flag with a new finding.
func (s *Service) Transition(ctx context.Context, recordID id.RecordID, next models.Status) (_ *models.Record, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Transition")
	defer func() { endSpan(span, err) }()

	if !next.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", next))
	}
	unlock, err := s.locker.Lock(ctx, recordKey(recordID))
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	defer unlock()

	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	if err := rec.CanTransitionTo(next); err != nil {
		return nil, err
	}
	if next == models.StatusFlagged {
		existing, err := s.store.ListRecordDiscrepancies(ctx, rec.ID)
		if err != nil {
			return nil, wrapStoreErr(err, "discrepancies")
		}
		if len(existing) == 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "a flagged record needs at least one discrepancy, escalate instead")
		}
	}

	previous := rec.Status
	rec.ApplyTransition(next, rec.RiskScore, requestcontext.Now(ctx))
	if err := s.store.ApplyChangeset(ctx, &models.Changeset{Update: []*models.Record{rec}}); err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	s.logAudit(ctx, "record_transitioned",
		"tenant_id", rec.TenantID,
		"record_id", rec.ID,
		"from", previous,
		"to", rec.Status,
	)
	if previous != rec.Status {
		s.committed(ctx, "record_"+string(rec.Status), rec, nil)
	}
	return rec, nil
}

// Escalate attaches a discrepancy raised outside the detector and flags the
// record. Severity is the type's default.
func (s *Service) Escalate(ctx context.Context, recordID id.RecordID, discrepancyType models.DiscrepancyType, description string) (_ *RecordView, err error) {
	ctx, span := tracer.Start(ctx, "reconciliation.Escalate")
	defer func() { endSpan(span, err) }()

	if !discrepancyType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown discrepancy type %q", discrepancyType))
	}
	description = strings.TrimSpace(description)
	if description == "" {
		description = "escalated for review: " + strings.ReplaceAll(string(discrepancyType), "_", " ")
	}

	unlock, err := s.locker.Lock(ctx, recordKey(recordID))
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	defer unlock()

	rec, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	if !rec.Status.CanTransitionTo(models.StatusFlagged) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot escalate a %s record", rec.Status))
	}

	now := requestcontext.Now(ctx)
	rec.ApplyTransition(models.StatusFlagged, rec.RiskScore, now)
	discs := models.Materialize(rec, []models.Finding{{
		Type:        discrepancyType,
		Severity:    discrepancyType.DefaultSeverity(),
		Description: description,
	}}, now)
	if err := s.store.ApplyChangeset(ctx, &models.Changeset{Update: []*models.Record{rec}, Discrepancies: discs}); err != nil {
		return nil, wrapStoreErr(err, "record")
	}
	s.committed(ctx, "record_escalated", rec, discs)

	all, err := s.store.ListRecordDiscrepancies(ctx, rec.ID)
	if err != nil {
		return nil, wrapStoreErr(err, "discrepancies")
	}
	return &RecordView{Record: rec, Discrepancies: all}, nil
}
