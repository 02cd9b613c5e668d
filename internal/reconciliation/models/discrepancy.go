package models

import (
	"time"

	id "tally/pkg/domain"
)

type DiscrepancyType string

const (
	DiscrepancyAmountMismatch       DiscrepancyType = "amount_mismatch"
	DiscrepancyDuplicateReceipt     DiscrepancyType = "duplicate_receipt"
	DiscrepancyInvalidMerchant      DiscrepancyType = "invalid_merchant"
	DiscrepancyUnmatchedAfterWindow DiscrepancyType = "unmatched_after_window"
	DiscrepancyElevatedRisk         DiscrepancyType = "elevated_risk"
)

var AllDiscrepancyTypes = []DiscrepancyType{
	DiscrepancyAmountMismatch,
	DiscrepancyDuplicateReceipt,
	DiscrepancyInvalidMerchant,
	DiscrepancyUnmatchedAfterWindow,
	DiscrepancyElevatedRisk,
}

func (t DiscrepancyType) IsValid() bool {
	for _, known := range AllDiscrepancyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultSeverity is the severity a detector rule assigns to the type.
func (t DiscrepancyType) DefaultSeverity() Severity {
	switch t {
	case DiscrepancyAmountMismatch, DiscrepancyUnmatchedAfterWindow:
		return SeverityHigh
	case DiscrepancyInvalidMerchant, DiscrepancyElevatedRisk:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Outranks reports whether s is strictly more severe than other.
func (s Severity) Outranks(other Severity) bool {
	return s.rank() > other.rank()
}

// Discrepancy is immutable once created.
type Discrepancy struct {
	ID               id.DiscrepancyID `json:"id"`
	TenantID         id.TenantID      `json:"tenant_id"`
	ReconciliationID id.RecordID      `json:"reconciliation_id"`
	Type             DiscrepancyType  `json:"type"`
	Severity         Severity         `json:"severity"`
	Description      string           `json:"description"`
	DetectedAt       time.Time        `json:"detected_at"`
}

// Finding is a detector result before it is bound to a record.
type Finding struct {
	Type        DiscrepancyType
	Severity    Severity
	Description string
}

// Materialize binds findings to a record as discrepancies.
func Materialize(rec *Record, findings []Finding, now time.Time) []*Discrepancy {
	if len(findings) == 0 {
		return nil
	}
	out := make([]*Discrepancy, 0, len(findings))
	for _, f := range findings {
		out = append(out, &Discrepancy{
			ID:               id.NewDiscrepancyID(),
			TenantID:         rec.TenantID,
			ReconciliationID: rec.ID,
			Type:             f.Type,
			Severity:         f.Severity,
			Description:      f.Description,
			DetectedAt:       now,
		})
	}
	return out
}

// HighestSeverity returns the most severe severity among findings, or "".
func HighestSeverity(findings []Finding) Severity {
	var top Severity
	for _, f := range findings {
		if f.Severity.Outranks(top) {
			top = f.Severity
		}
	}
	return top
}

// HasHigh reports whether any finding is High severity.
func HasHigh(findings []Finding) bool {
	return HighestSeverity(findings) == SeverityHigh
}
