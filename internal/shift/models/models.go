package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	recon "tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
)

// Summary is derived from a ledger snapshot and never persisted on its own.
// Cutoff is the ledger sequence the snapshot was taken at; two summaries
// with the same Cutoff saw the same ledger.
type Summary struct {
	TenantID     id.TenantID                             `json:"tenant_id"`
	WaiterID     id.WaiterID                             `json:"waiter_id"`
	PeriodStart  time.Time                               `json:"period_start"`
	PeriodEnd    time.Time                               `json:"period_end"`
	TotalSales   decimal.Decimal                         `json:"total_sales"`
	TotalTips    decimal.Decimal                         `json:"total_tips"`
	ByChannel    map[recon.PaymentMethod]decimal.Decimal `json:"by_channel"`
	MatchedCount int                                     `json:"matched_count"`
	FlaggedCount int                                     `json:"flagged_count"`
	ExpiredCount int                                     `json:"expired_count"`
	PendingCount int                                     `json:"pending_count"`
	Cutoff       int64                                   `json:"cutoff"`
}

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Shift is a waiter's working session. A waiter has at most one open shift.
type Shift struct {
	ID       id.ShiftID  `json:"id"`
	TenantID id.TenantID `json:"tenant_id"`
	WaiterID id.WaiterID `json:"waiter_id"`
	Status   Status      `json:"status"`
	OpenedAt time.Time   `json:"opened_at"`
	ClosedAt *time.Time  `json:"closed_at,omitempty"`
	Summary  *Summary    `json:"summary,omitempty"`
}

func NewShift(tenantID id.TenantID, waiterID id.WaiterID, now time.Time) *Shift {
	return &Shift{
		ID:       id.NewShiftID(),
		TenantID: tenantID,
		WaiterID: waiterID,
		Status:   StatusOpen,
		OpenedAt: now,
	}
}

func (s *Shift) IsOpen() bool {
	return s.Status == StatusOpen
}

func (s *Shift) CanClose(now time.Time) error {
	if !s.IsOpen() {
		return dErrors.New(dErrors.CodeInvalidTransition, "shift is already closed")
	}
	if now.Before(s.OpenedAt) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("shift cannot close at %s before it opened at %s", now.Format(time.RFC3339), s.OpenedAt.Format(time.RFC3339)))
	}
	return nil
}

// ApplyClose ends the shift and attaches its summary. Call CanClose first.
func (s *Shift) ApplyClose(now time.Time, summary *Summary) {
	closed := now
	s.Status = StatusClosed
	s.ClosedAt = &closed
	s.Summary = summary
}
