// Package detector evaluates discrepancy rules over a scored record and
// decides the record's next status. Everything here is pure; evidence that
// needs I/O (prior fingerprint bindings, merchant allow-list) is gathered by
// the caller beforehand.
package detector

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
)

// Input is the record under evaluation plus gathered evidence.
type Input struct {
	RecordID id.RecordID
	Receipt  *models.Receipt
	Payment  *models.PaymentEvent

	// PriorBindings are receipts sharing Receipt's fingerprint.
	PriorBindings []models.ReceiptBinding
	// MerchantKnown is nil when the allow-list was not consulted.
	MerchantKnown *bool
}

// Detect runs every rule; all applicable findings are returned in a stable order.
func Detect(in Input, cfg config.Config) []models.Finding {
	var findings []models.Finding
	if f, ok := amountMismatch(in, cfg); ok {
		findings = append(findings, f)
	}
	if f, ok := duplicateReceipt(in, cfg); ok {
		findings = append(findings, f)
	}
	if f, ok := invalidMerchant(in); ok {
		findings = append(findings, f)
	}
	return findings
}

func amountMismatch(in Input, cfg config.Config) (models.Finding, bool) {
	if in.Receipt == nil || in.Payment == nil {
		return models.Finding{}, false
	}
	delta := in.Receipt.Amount.Sub(in.Payment.Amount).Abs()
	band := cfg.Band(in.Receipt.Amount)
	if delta.LessThanOrEqual(band) {
		return models.Finding{}, false
	}
	return models.Finding{
		Type:     models.DiscrepancyAmountMismatch,
		Severity: models.SeverityHigh,
		Description: fmt.Sprintf("receipt amount %s and payment amount %s differ by %s, tolerance is %s",
			in.Receipt.Amount.StringFixed(2), in.Payment.Amount.StringFixed(2), delta.StringFixed(2), band.StringFixed(2)),
	}, true
}

func duplicateReceipt(in Input, cfg config.Config) (models.Finding, bool) {
	if in.Receipt == nil || in.Receipt.Fingerprint == "" {
		return models.Finding{}, false
	}
	lookback := cfg.DuplicateLookback()
	var dupes []models.ReceiptBinding
	for _, b := range in.PriorBindings {
		if b.ReceiptID == in.Receipt.ID || b.RecordID == in.RecordID || b.RecordStatus == models.StatusExpired {
			continue
		}
		gap := in.Receipt.IssuedAt.Sub(b.IssuedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > lookback {
			continue
		}
		dupes = append(dupes, b)
	}
	if len(dupes) == 0 {
		return models.Finding{}, false
	}
	sort.Slice(dupes, func(i, j int) bool { return dupes[i].IssuedAt.Before(dupes[j].IssuedAt) })
	return models.Finding{
		Type:     models.DiscrepancyDuplicateReceipt,
		Severity: models.SeverityLow,
		Description: fmt.Sprintf("receipt scan matches receipt %s already bound to record %s",
			dupes[0].ReceiptID, dupes[0].RecordID),
	}, true
}

func invalidMerchant(in Input) (models.Finding, bool) {
	if in.Payment == nil || in.MerchantKnown == nil || *in.MerchantKnown {
		return models.Finding{}, false
	}
	return models.Finding{
		Type:        models.DiscrepancyInvalidMerchant,
		Severity:    models.SeverityMedium,
		Description: fmt.Sprintf("channel reference %q is not a registered sub-merchant of the tenant", in.Payment.ChannelRef),
	}, true
}

// Decision is the status a record should move to and the discrepancies to
// attach. Every Flagged decision carries at least one finding.
type Decision struct {
	Status   models.Status
	Score    int
	Findings []models.Finding
}

// Decide settles a paired record. Any High finding or a score at or above
// highRiskMin flags it; Medium and Low findings are advisory.
func Decide(score int, findings []models.Finding, cfg config.Config) Decision {
	d := Decision{Status: models.StatusMatched, Score: score, Findings: findings}
	if models.HasHigh(findings) || score >= cfg.HighRiskMin {
		d.Status = models.StatusFlagged
	}
	if d.Status == models.StatusFlagged && len(d.Findings) == 0 {
		d.Findings = append(d.Findings, elevatedRisk(score, cfg))
	}
	return d
}

// DecideUnmatched settles a record whose window elapsed with one side bound:
// high-value or high-risk items are flagged, everything else expires.
func DecideUnmatched(score int, in Input, findings []models.Finding, cfg config.Config) Decision {
	amount := soloAmount(in)
	highValue := amount.GreaterThanOrEqual(cfg.HighValue())
	if !highValue && score < cfg.HighRiskMin && !models.HasHigh(findings) {
		return Decision{Status: models.StatusExpired, Score: score, Findings: findings}
	}
	reason := "no counterpart arrived within the matching window"
	if highValue {
		reason = fmt.Sprintf("%s for high-value amount %s", reason, amount.StringFixed(2))
	}
	f := models.Finding{
		Type:        models.DiscrepancyUnmatchedAfterWindow,
		Severity:    models.SeverityHigh,
		Description: reason,
	}
	return Decision{Status: models.StatusFlagged, Score: score, Findings: append([]models.Finding{f}, findings...)}
}

func elevatedRisk(score int, cfg config.Config) models.Finding {
	return models.Finding{
		Type:        models.DiscrepancyElevatedRisk,
		Severity:    models.SeverityMedium,
		Description: fmt.Sprintf("risk score %d is at or above the flagging threshold %d", score, cfg.HighRiskMin),
	}
}

func soloAmount(in Input) decimal.Decimal {
	switch {
	case in.Receipt != nil:
		return in.Receipt.Amount
	case in.Payment != nil:
		return in.Payment.Amount
	}
	return decimal.Zero
}
