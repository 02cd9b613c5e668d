// Package matcher selects the counterpart for a pending receipt or payment.
//
// Selection is pure: the caller supplies the pending opposite-kind items of
// the tenant and gets back at most one candidate. Ranking, in priority order:
//
//  1. amount proximity (exact first, then smallest delta within the band)
//  2. temporal proximity
//  3. lowest item id
//
// When nothing falls inside the tolerance band, the closest candidate under
// the mismatch ceiling is still returned with WithinBand=false so the pair
// can be flagged rather than left unmatched.
package matcher

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
)

type Result struct {
	Candidate  *models.Item
	WithinBand bool
	// Ambiguous is set when the winner tied with the runner-up on both
	// amount and time and was only separated by id.
	Ambiguous  bool
	Considered int
}

func (r Result) Found() bool {
	return r.Candidate != nil
}

type scored struct {
	item  models.Item
	delta decimal.Decimal
	dt    time.Duration
}

// Select picks the counterpart for item among candidates.
func Select(item models.Item, candidates []models.Item, cfg config.Config) Result {
	window := cfg.MatchWindow()
	var inBand, outOfBand []scored

	for _, c := range candidates {
		if !eligible(item, c, window) {
			continue
		}
		s := scored{
			item:  c,
			delta: item.Amount.Sub(c.Amount).Abs(),
			dt:    absDuration(item.At.Sub(c.At)),
		}
		receiptAmount := item.Amount
		if c.Kind == models.KindReceipt {
			receiptAmount = c.Amount
		}
		switch {
		case s.delta.LessThanOrEqual(cfg.Band(receiptAmount)):
			inBand = append(inBand, s)
		case s.delta.LessThanOrEqual(cfg.MismatchCeiling(decimal.Max(item.Amount.Abs(), c.Amount.Abs()))):
			outOfBand = append(outOfBand, s)
		}
	}

	res := Result{Considered: len(inBand) + len(outOfBand)}
	pool, within := inBand, true
	if len(pool) == 0 {
		pool, within = outOfBand, false
	}
	if len(pool) == 0 {
		return res
	}

	sort.Slice(pool, func(i, j int) bool { return less(pool[i], pool[j]) })
	winner := pool[0].item
	res.Candidate = &winner
	res.WithinBand = within
	if len(pool) > 1 && pool[0].delta.Equal(pool[1].delta) && pool[0].dt == pool[1].dt {
		res.Ambiguous = true
	}
	return res
}

func eligible(item, c models.Item, window time.Duration) bool {
	if c.Kind != item.Kind.Opposite() || c.TenantID != item.TenantID || c.ID == item.ID {
		return false
	}
	if !item.RecordID.IsNil() && c.RecordID == item.RecordID {
		return false
	}
	return absDuration(item.At.Sub(c.At)) <= window
}

func less(a, b scored) bool {
	if cmp := a.delta.Cmp(b.delta); cmp != 0 {
		return cmp < 0
	}
	if a.dt != b.dt {
		return a.dt < b.dt
	}
	return a.item.Key() < b.item.Key()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
