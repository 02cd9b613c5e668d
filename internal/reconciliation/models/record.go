package models

import (
	"fmt"
	"time"

	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
)

// Record is the aggregate that owns one receipt/payment pairing.
//
// Invariants:
//   - at least one side is bound; Matched requires both
//   - a receipt or payment belongs to at most one non-expired record
//   - Expired records never change again
//   - Version increases by one on every persisted update
type Record struct {
	ID           id.RecordID   `json:"id"`
	TenantID     id.TenantID   `json:"tenant_id"`
	ReceiptID    *id.ReceiptID `json:"receipt_id,omitempty"`
	PaymentID    *id.PaymentID `json:"payment_id,omitempty"`
	Status       Status        `json:"status"`
	RiskScore    int           `json:"risk_score"`
	Ambiguous    bool          `json:"ambiguous"`
	SupersededBy *id.RecordID  `json:"superseded_by,omitempty"`
	Version      int64         `json:"version"`
	Seq          int64         `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`
}

// NewPendingRecord opens a record for a solo item.
func NewPendingRecord(item Item, now time.Time) *Record {
	rec := &Record{
		ID:        id.NewRecordID(),
		TenantID:  item.TenantID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.bindItem(item)
	return rec
}

func (r *Record) bindItem(item Item) {
	switch item.Kind {
	case KindReceipt:
		rid := id.ReceiptID(item.ID)
		r.ReceiptID = &rid
	case KindPayment:
		pid := id.PaymentID(item.ID)
		r.PaymentID = &pid
	}
}

func (r *Record) IsPaired() bool {
	return r.ReceiptID != nil && r.PaymentID != nil
}

// IsSuperseded reports whether the record was absorbed by another during a sweep.
func (r *Record) IsSuperseded() bool {
	return r.SupersededBy != nil
}

// SoloKind returns which side is bound on an unpaired record.
func (r *Record) SoloKind() (ItemKind, bool) {
	switch {
	case r.IsPaired():
		return "", false
	case r.ReceiptID != nil:
		return KindReceipt, true
	case r.PaymentID != nil:
		return KindPayment, true
	}
	return "", false
}

// CanBind checks that item can fill the open side of a pending record.
func (r *Record) CanBind(item Item) error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidTransition, fmt.Sprintf("record is %s, only pending records accept a counterpart", r.Status))
	}
	if item.TenantID != r.TenantID {
		return dErrors.New(dErrors.CodeInvariantViolation, "counterpart belongs to another tenant")
	}
	if (item.Kind == KindReceipt && r.ReceiptID != nil) || (item.Kind == KindPayment && r.PaymentID != nil) {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("record already has a %s bound", item.Kind))
	}
	return nil
}

// ApplyBind fills the open side. Call CanBind first.
func (r *Record) ApplyBind(item Item, ambiguous bool, now time.Time) {
	r.bindItem(item)
	r.Ambiguous = ambiguous
	r.UpdatedAt = now
}

// CanTransitionTo validates a status change against the state machine.
func (r *Record) CanTransitionTo(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition record from %s to %s", r.Status, next))
	}
	if next == StatusMatched && !r.IsPaired() {
		return dErrors.New(dErrors.CodeInvalidTransition, "record needs both a receipt and a payment to be matched")
	}
	return nil
}

// ApplyTransition sets the new status and score. Call CanTransitionTo first.
func (r *Record) ApplyTransition(next Status, score int, now time.Time) {
	r.Status = next
	r.RiskScore = score
	r.UpdatedAt = now
	if next.IsSettled() && r.ResolvedAt == nil {
		resolved := now
		r.ResolvedAt = &resolved
	}
}

// ApplySupersede retires a pending record whose item moved to survivor.
func (r *Record) ApplySupersede(survivor id.RecordID, now time.Time) {
	r.SupersededBy = &survivor
	r.ApplyTransition(StatusExpired, r.RiskScore, now)
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ReceiptID != nil {
		v := *r.ReceiptID
		c.ReceiptID = &v
	}
	if r.PaymentID != nil {
		v := *r.PaymentID
		c.PaymentID = &v
	}
	if r.SupersededBy != nil {
		v := *r.SupersededBy
		c.SupersededBy = &v
	}
	if r.ResolvedAt != nil {
		v := *r.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}
