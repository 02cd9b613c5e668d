package handler

import (
	"time"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
)

// SummaryResponse renders money as fixed two-decimal strings.
type SummaryResponse struct {
	TenantID     string            `json:"tenant_id"`
	WaiterID     string            `json:"waiter_id"`
	PeriodStart  time.Time         `json:"period_start"`
	PeriodEnd    time.Time         `json:"period_end"`
	TotalSales   string            `json:"total_sales"`
	TotalTips    string            `json:"total_tips"`
	ByChannel    map[string]string `json:"by_channel"`
	MatchedCount int               `json:"matched_count"`
	FlaggedCount int               `json:"flagged_count"`
	ExpiredCount int               `json:"expired_count"`
	PendingCount int               `json:"pending_count"`
	Cutoff       int64             `json:"cutoff"`
}

type ShiftResponse struct {
	ShiftID  string           `json:"shift_id"`
	TenantID string           `json:"tenant_id"`
	WaiterID string           `json:"waiter_id"`
	Status   string           `json:"status"`
	OpenedAt time.Time        `json:"opened_at"`
	ClosedAt *time.Time       `json:"closed_at,omitempty"`
	Summary  *SummaryResponse `json:"summary,omitempty"`
}

type DailyStatsResponse struct {
	Days []recon.DailyStat `json:"days"`
}

func toSummary(s *models.Summary) *SummaryResponse {
	if s == nil {
		return nil
	}
	channels := make(map[string]string, len(s.ByChannel))
	for method, amount := range s.ByChannel {
		channels[string(method)] = amount.StringFixed(2)
	}
	return &SummaryResponse{
		TenantID:     s.TenantID.String(),
		WaiterID:     s.WaiterID.String(),
		PeriodStart:  s.PeriodStart,
		PeriodEnd:    s.PeriodEnd,
		TotalSales:   s.TotalSales.StringFixed(2),
		TotalTips:    s.TotalTips.StringFixed(2),
		ByChannel:    channels,
		MatchedCount: s.MatchedCount,
		FlaggedCount: s.FlaggedCount,
		ExpiredCount: s.ExpiredCount,
		PendingCount: s.PendingCount,
		Cutoff:       s.Cutoff,
	}
}

func toShift(sh *models.Shift) ShiftResponse {
	return ShiftResponse{
		ShiftID:  sh.ID.String(),
		TenantID: sh.TenantID.String(),
		WaiterID: sh.WaiterID.String(),
		Status:   string(sh.Status),
		OpenedAt: sh.OpenedAt,
		ClosedAt: sh.ClosedAt,
		Summary:  toSummary(sh.Summary),
	}
}

func toShifts(shifts []*models.Shift) []ShiftResponse {
	out := make([]ShiftResponse, 0, len(shifts))
	for _, sh := range shifts {
		out = append(out, toShift(sh))
	}
	return out
}

func toDaily(days []recon.DailyStat) DailyStatsResponse {
	if days == nil {
		days = []recon.DailyStat{}
	}
	return DailyStatsResponse{Days: days}
}
