package handler

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
)

// SubmitReceiptRequest is the body of POST /v1/tenants/{tenantID}/receipts.
// Amounts are decimal strings.
type SubmitReceiptRequest struct {
	WaiterID   string    `json:"waiter_id" validate:"required,uuid"`
	Amount     string    `json:"amount" validate:"required"`
	IssuedAt   time.Time `json:"issued_at" validate:"required"`
	RawSource  string    `json:"raw_source" validate:"max=8192"`
	ExternalID string    `json:"external_id" validate:"required,max=128"`

	parsedWaiterID id.WaiterID
	parsedAmount   decimal.Decimal
}

func (r *SubmitReceiptRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	waiterID, err := id.ParseWaiterID(strings.TrimSpace(r.WaiterID))
	if err != nil {
		return err
	}
	r.parsedWaiterID = waiterID
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return err
	}
	r.parsedAmount = amount
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	return nil
}

// SubmitPaymentRequest is the body of POST /v1/tenants/{tenantID}/payments.
type SubmitPaymentRequest struct {
	Amount     string    `json:"amount" validate:"required"`
	Tip        string    `json:"tip"`
	Method     string    `json:"method" validate:"required"`
	OccurredAt time.Time `json:"occurred_at" validate:"required"`
	ChannelRef string    `json:"channel_ref" validate:"max=128"`
	ExternalID string    `json:"external_id" validate:"required,max=128"`

	parsedAmount decimal.Decimal
	parsedTip    decimal.Decimal
	parsedMethod models.PaymentMethod
}

func (r *SubmitPaymentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return err
	}
	r.parsedAmount = amount
	r.parsedTip = decimal.Zero
	if strings.TrimSpace(r.Tip) != "" {
		tip, err := parseAmount("tip", r.Tip)
		if err != nil {
			return err
		}
		r.parsedTip = tip
	}
	method, err := models.ParsePaymentMethod(r.Method)
	if err != nil {
		return err
	}
	r.parsedMethod = method
	r.ExternalID = strings.TrimSpace(r.ExternalID)
	return nil
}

// EscalateRequest is the body of POST /v1/records/{recordID}/escalations.
type EscalateRequest struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"max=1024"`

	parsedType models.DiscrepancyType
}

func (r *EscalateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	t := models.DiscrepancyType(strings.ToLower(strings.TrimSpace(r.Type)))
	if !t.IsValid() {
		return dErrors.New(dErrors.CodeValidation,
			"type must be one of amount_mismatch, duplicate_receipt, invalid_merchant, unmatched_after_window, elevated_risk")
	}
	r.parsedType = t
	return nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, field+" must be a decimal number")
	}
	if amount.IsNegative() {
		return decimal.Zero, dErrors.New(dErrors.CodeValidation, field+" must not be negative")
	}
	return amount, nil
}

// optionalTime reads an RFC 3339 query parameter; absent means zero.
func optionalTime(q url.Values, key string) (time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, key+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

// parseStatuses accepts a comma separated status list.
func parseStatuses(raw string) ([]models.Status, error) {
	var out []models.Status
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		st, err := models.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
