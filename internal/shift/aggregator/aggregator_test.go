package aggregator

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recon "tally/internal/reconciliation/models"
	id "tally/pkg/domain"
)

var (
	tenant = id.NewTenantID()
	waiter = id.NewWaiterID()
	start  = time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)
	end    = start.Add(8 * time.Hour)
)

func entry(status recon.Status, amount, tip string, method recon.PaymentMethod, at time.Time) recon.LedgerEntry {
	rec := &recon.Record{ID: id.NewRecordID(), TenantID: tenant, Status: status}
	receipt := &recon.Receipt{ID: id.NewReceiptID(), TenantID: tenant, WaiterID: waiter, Amount: decimal.RequireFromString(amount), IssuedAt: at}
	payment := &recon.PaymentEvent{
		ID:         id.NewPaymentID(),
		TenantID:   tenant,
		Amount:     decimal.RequireFromString(amount),
		Tip:        decimal.RequireFromString(tip),
		Method:     method,
		OccurredAt: at.Add(time.Minute),
	}
	return recon.LedgerEntry{Record: rec, Receipt: receipt, Payment: payment}
}

func TestSummarize(t *testing.T) {
	superseded := entry(recon.StatusExpired, "999", "0", recon.MethodCard, start.Add(time.Hour))
	survivor := id.NewRecordID()
	superseded.Record.SupersededBy = &survivor

	otherWaiter := entry(recon.StatusMatched, "500", "0", recon.MethodCash, start.Add(time.Hour))
	otherWaiter.Receipt.WaiterID = id.NewWaiterID()

	snap := recon.Snapshot{
		Cutoff: 42,
		Entries: []recon.LedgerEntry{
			entry(recon.StatusMatched, "1250", "50", recon.MethodTelebirr, start.Add(time.Hour)),
			entry(recon.StatusMatched, "300.50", "0", recon.MethodTelebirr, start.Add(2*time.Hour)),
			entry(recon.StatusMatched, "80", "10", recon.MethodCash, start.Add(3*time.Hour)),
			entry(recon.StatusFlagged, "1150", "0", recon.MethodMPesa, start.Add(4*time.Hour)),
			entry(recon.StatusExpired, "20", "0", recon.MethodCard, start.Add(5*time.Hour)),
			entry(recon.StatusMatched, "700", "0", recon.MethodCard, end),
			superseded,
			otherWaiter,
		},
	}

	sum := Summarize(tenant, waiter, start, end, snap)

	assert.True(t, sum.TotalSales.Equal(decimal.RequireFromString("1630.50")), sum.TotalSales.String())
	assert.True(t, sum.TotalTips.Equal(decimal.NewFromInt(60)))
	assert.True(t, sum.ByChannel[recon.MethodTelebirr].Equal(decimal.RequireFromString("1550.50")))
	assert.True(t, sum.ByChannel[recon.MethodCash].Equal(decimal.NewFromInt(80)))
	_, hasMPesa := sum.ByChannel[recon.MethodMPesa]
	assert.False(t, hasMPesa)
	assert.Equal(t, 3, sum.MatchedCount)
	assert.Equal(t, 1, sum.FlaggedCount)
	assert.Equal(t, 1, sum.ExpiredCount)
	assert.Equal(t, int64(42), sum.Cutoff)
}

func TestSummarize_OrderIndependent(t *testing.T) {
	var entries []recon.LedgerEntry
	want := decimal.Zero
	for i := range 50 {
		amount := decimal.NewFromInt(int64(10 + i))
		e := entry(recon.StatusMatched, amount.String(), "1", recon.AllPaymentMethods[i%len(recon.AllPaymentMethods)], start.Add(time.Duration(i)*time.Minute))
		entries = append(entries, e)
		want = want.Add(amount)
	}

	rng := rand.New(rand.NewPCG(7, 11))
	for range 10 {
		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		sum := Summarize(tenant, waiter, start, end, recon.Snapshot{Entries: entries})
		require.True(t, sum.TotalSales.Equal(want))
		require.True(t, sum.TotalTips.Equal(decimal.NewFromInt(50)))
		require.Equal(t, 50, sum.MatchedCount)
	}
}

func TestSummarize_EmptyPeriod(t *testing.T) {
	sum := Summarize(tenant, waiter, start, end, recon.Snapshot{})
	assert.True(t, sum.TotalSales.IsZero())
	assert.Empty(t, sum.ByChannel)
	assert.Zero(t, sum.MatchedCount)
}

func TestDaily(t *testing.T) {
	day2 := start.Add(24 * time.Hour)
	snap := recon.Snapshot{Entries: []recon.LedgerEntry{
		entry(recon.StatusMatched, "100", "0", recon.MethodCard, day2),
		entry(recon.StatusMatched, "50.25", "5", recon.MethodCash, start),
		entry(recon.StatusMatched, "25", "0", recon.MethodCash, start.Add(time.Hour)),
		entry(recon.StatusFlagged, "999", "0", recon.MethodCash, start),
	}}

	stats := Daily(snap)

	require.Len(t, stats, 2)
	assert.Equal(t, recon.DailyStat{Date: "2024-06-01", Revenue: "75.25", Transactions: 2}, stats[0])
	assert.Equal(t, recon.DailyStat{Date: "2024-06-02", Revenue: "100.00", Transactions: 1}, stats[1])
}
