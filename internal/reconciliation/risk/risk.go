// Package risk computes the deterministic 0-100 fraud score of a pairing or
// of an item left unmatched when its window elapsed.
package risk

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
)

// Per-rule ceilings. Each rule is capped on its own so no single factor
// dominates the sum.
const (
	MaxAmountPoints    = 35
	MaxTemporalPoints  = 20
	CashPoints         = 10
	AmbiguityPoints    = 15
	UnmatchedPoints    = 40
	MinScore, MaxScore = 0, 100
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Input carries only what the score depends on. ReceiptAmount and
// PaymentAmount are nil when that side is not bound.
type Input struct {
	ReceiptAmount *decimal.Decimal
	PaymentAmount *decimal.Decimal
	TimeDelta     time.Duration
	Method        models.PaymentMethod
	Ambiguous     bool
	Unmatched     bool
}

// Breakdown shows how each rule contributed; Total is the clamped score.
type Breakdown struct {
	Amount    float64 `json:"amount"`
	Temporal  float64 `json:"temporal"`
	Method    float64 `json:"method"`
	Ambiguity float64 `json:"ambiguity"`
	Unmatched float64 `json:"unmatched"`
	Total     int     `json:"total"`
}

// Score is the clamped sum of all rules.
func Score(in Input, cfg config.Config) int {
	return Explain(in, cfg).Total
}

func Explain(in Input, cfg config.Config) Breakdown {
	var b Breakdown
	if in.ReceiptAmount != nil && in.PaymentAmount != nil {
		b.Amount = amountPoints(*in.ReceiptAmount, *in.PaymentAmount, cfg)
		b.Temporal = temporalPoints(in.TimeDelta, cfg.MatchWindow())
	}
	if in.Method == models.MethodCash {
		b.Method = CashPoints
	}
	if in.Ambiguous {
		b.Ambiguity = AmbiguityPoints
	}
	if in.Unmatched {
		b.Unmatched = UnmatchedPoints
	}
	sum := b.Amount + b.Temporal + b.Method + b.Ambiguity + b.Unmatched
	b.Total = clamp(int(math.Round(sum)))
	return b
}

// amountPoints is linear in the delta up to the tolerance band and capped beyond it.
func amountPoints(receiptAmount, paymentAmount decimal.Decimal, cfg config.Config) float64 {
	delta := receiptAmount.Sub(paymentAmount).Abs()
	if delta.IsZero() {
		return 0
	}
	band := cfg.Band(receiptAmount)
	if !band.IsPositive() {
		return MaxAmountPoints
	}
	ratio, _ := delta.Div(band).Float64()
	return math.Min(MaxAmountPoints, MaxAmountPoints*ratio)
}

func temporalPoints(dt, window time.Duration) float64 {
	if dt < 0 {
		dt = -dt
	}
	if window <= 0 {
		if dt == 0 {
			return 0
		}
		return MaxTemporalPoints
	}
	return math.Min(MaxTemporalPoints, MaxTemporalPoints*float64(dt)/float64(window))
}

func clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Classify buckets a score using the configured thresholds.
func Classify(score int, cfg config.Config) Level {
	switch {
	case score >= cfg.HighRiskMin:
		return LevelHigh
	case score <= cfg.LowRiskMax:
		return LevelLow
	default:
		return LevelMedium
	}
}

// InputFor builds the scorer input from a record's bound items.
func InputFor(rec *models.Record, receipt *models.Receipt, payment *models.PaymentEvent) Input {
	in := Input{Ambiguous: rec.Ambiguous}
	if receipt != nil {
		amt := receipt.Amount
		in.ReceiptAmount = &amt
	}
	if payment != nil {
		amt := payment.Amount
		in.PaymentAmount = &amt
		in.Method = payment.Method
	}
	if receipt != nil && payment != nil {
		in.TimeDelta = payment.OccurredAt.Sub(receipt.IssuedAt)
	}
	in.Unmatched = !rec.IsPaired() && rec.Status.IsSettled()
	return in
}
