// Package aggregator folds ledger snapshots into shift summaries and daily
// revenue. It performs no I/O; the caller supplies a consistent snapshot.
package aggregator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
	id "tally/pkg/domain"
)

// Summarize totals a waiter's period. Only Matched records contribute money;
// sales are the settled payment amounts and tips the payment tips. Flagged
// money is withheld until a reviewer settles it. Superseded records never
// count.
func Summarize(tenantID id.TenantID, waiterID id.WaiterID, from, to time.Time, snap recon.Snapshot) *models.Summary {
	sum := &models.Summary{
		TenantID:    tenantID,
		WaiterID:    waiterID,
		PeriodStart: from,
		PeriodEnd:   to,
		TotalSales:  decimal.Zero,
		TotalTips:   decimal.Zero,
		ByChannel:   make(map[recon.PaymentMethod]decimal.Decimal),
		Cutoff:      snap.Cutoff,
	}
	for _, e := range snap.Entries {
		if e.Record == nil || e.Record.IsSuperseded() || e.Receipt == nil || e.Receipt.WaiterID != waiterID {
			continue
		}
		if e.Receipt.IssuedAt.Before(from) || !e.Receipt.IssuedAt.Before(to) {
			continue
		}
		switch e.Record.Status {
		case recon.StatusMatched:
			sum.MatchedCount++
			if e.Payment == nil {
				continue
			}
			sum.TotalSales = sum.TotalSales.Add(e.Payment.Amount)
			sum.TotalTips = sum.TotalTips.Add(e.Payment.Tip)
			sum.ByChannel[e.Payment.Method] = sum.ByChannel[e.Payment.Method].Add(e.Payment.Amount)
		case recon.StatusFlagged:
			sum.FlaggedCount++
		case recon.StatusExpired:
			sum.ExpiredCount++
		case recon.StatusPending:
			sum.PendingCount++
		}
	}
	return sum
}

// Daily groups matched revenue by UTC calendar day of the receipt, oldest
// day first. Days without matched sales are omitted.
func Daily(snap recon.Snapshot) []recon.DailyStat {
	type bucket struct {
		revenue decimal.Decimal
		count   int
	}
	days := make(map[string]*bucket)
	for _, e := range snap.Entries {
		if e.Record == nil || e.Record.IsSuperseded() || e.Record.Status != recon.StatusMatched || e.Payment == nil || e.Receipt == nil {
			continue
		}
		day := e.Receipt.IssuedAt.UTC().Format(time.DateOnly)
		b, ok := days[day]
		if !ok {
			b = &bucket{revenue: decimal.Zero}
			days[day] = b
		}
		b.revenue = b.revenue.Add(e.Payment.Amount)
		b.count++
	}

	out := make([]recon.DailyStat, 0, len(days))
	for day, b := range days {
		out = append(out, recon.DailyStat{Date: day, Revenue: b.revenue.StringFixed(2), Transactions: b.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
