package handler

import (
	"time"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
	"tally/internal/reconciliation/risk"
	"tally/internal/reconciliation/service"
)

type RecordResponse struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	ReceiptID    *string    `json:"receipt_id,omitempty"`
	PaymentID    *string    `json:"payment_id,omitempty"`
	Status       string     `json:"status"`
	RiskScore    int        `json:"risk_score"`
	RiskLevel    string     `json:"risk_level"`
	Ambiguous    bool       `json:"ambiguous"`
	SupersededBy *string    `json:"superseded_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type DiscrepancyResponse struct {
	ID          string    `json:"id"`
	RecordID    string    `json:"reconciliation_id"`
	Type        string    `json:"type"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
}

type RecordViewResponse struct {
	Record        RecordResponse        `json:"record"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
}

type SubmitResponse struct {
	RecordViewResponse
	Duplicate bool `json:"duplicate"`
}

func toRecord(rec *models.Record, cfg config.Config) RecordResponse {
	out := RecordResponse{
		ID:         rec.ID.String(),
		TenantID:   rec.TenantID.String(),
		Status:     string(rec.Status),
		RiskScore:  rec.RiskScore,
		RiskLevel:  string(risk.Classify(rec.RiskScore, cfg)),
		Ambiguous:  rec.Ambiguous,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
		ResolvedAt: rec.ResolvedAt,
	}
	if rec.ReceiptID != nil {
		v := rec.ReceiptID.String()
		out.ReceiptID = &v
	}
	if rec.PaymentID != nil {
		v := rec.PaymentID.String()
		out.PaymentID = &v
	}
	if rec.SupersededBy != nil {
		v := rec.SupersededBy.String()
		out.SupersededBy = &v
	}
	return out
}

func toRecords(recs []*models.Record, cfg config.Config) []RecordResponse {
	out := make([]RecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecord(rec, cfg))
	}
	return out
}

func toDiscrepancies(discs []*models.Discrepancy) []DiscrepancyResponse {
	out := make([]DiscrepancyResponse, 0, len(discs))
	for _, d := range discs {
		out = append(out, DiscrepancyResponse{
			ID:          d.ID.String(),
			RecordID:    d.ReconciliationID.String(),
			Type:        string(d.Type),
			Severity:    string(d.Severity),
			Description: d.Description,
			DetectedAt:  d.DetectedAt,
		})
	}
	return out
}

func toView(view *service.RecordView, cfg config.Config) RecordViewResponse {
	return RecordViewResponse{
		Record:        toRecord(view.Record, cfg),
		Discrepancies: toDiscrepancies(view.Discrepancies),
	}
}

func toSubmit(res *service.SubmitResult, cfg config.Config) SubmitResponse {
	return SubmitResponse{
		RecordViewResponse: RecordViewResponse{
			Record:        toRecord(res.Record, cfg),
			Discrepancies: toDiscrepancies(res.Discrepancies),
		},
		Duplicate: res.Duplicate,
	}
}
