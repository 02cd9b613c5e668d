package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	id "tally/pkg/domain"
)

// Receipt is a parsed bill submitted by the receipt-capture collaborator.
// Only MatchedWith changes after creation.
type Receipt struct {
	ID          id.ReceiptID    `json:"id"`
	TenantID    id.TenantID     `json:"tenant_id"`
	WaiterID    id.WaiterID     `json:"waiter_id"`
	ExternalID  string          `json:"external_id"`
	Amount      decimal.Decimal `json:"amount"`
	IssuedAt    time.Time       `json:"issued_at"`
	RawSource   string          `json:"raw_source"`
	Fingerprint string          `json:"fingerprint"`
	MatchedWith *id.RecordID    `json:"matched_with,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentEvent is a transaction observed by the payment gateway.
// MatchedWith is a weak back-reference maintained by the ledger.
type PaymentEvent struct {
	ID          id.PaymentID    `json:"id"`
	TenantID    id.TenantID     `json:"tenant_id"`
	ExternalID  string          `json:"external_id"`
	Amount      decimal.Decimal `json:"amount"`
	Tip         decimal.Decimal `json:"tip"`
	Method      PaymentMethod   `json:"method"`
	OccurredAt  time.Time       `json:"occurred_at"`
	ChannelRef  string          `json:"channel_ref"`
	MatchedWith *id.RecordID    `json:"matched_with,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Fingerprint identifies a physical bill regardless of how the scan was
// spaced or cased: BLAKE2b-256 over the lower-cased, whitespace-collapsed text.
// A blank scan has no fingerprint.
func Fingerprint(rawSource string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(rawSource), " "))
	if normalized == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

type ItemKind string

const (
	KindReceipt ItemKind = "receipt"
	KindPayment ItemKind = "payment"
)

func (k ItemKind) Opposite() ItemKind {
	if k == KindReceipt {
		return KindPayment
	}
	return KindReceipt
}

// Item is the matcher's view of a receipt or payment: what it is, how much,
// when, and which record currently owns it.
type Item struct {
	Kind     ItemKind
	ID       uuid.UUID
	TenantID id.TenantID
	RecordID id.RecordID
	Amount   decimal.Decimal
	At       time.Time
}

// Key is the deterministic tie-break key.
func (i Item) Key() string {
	return i.ID.String()
}

func ReceiptItem(r *Receipt) Item {
	it := Item{Kind: KindReceipt, ID: uuid.UUID(r.ID), TenantID: r.TenantID, Amount: r.Amount, At: r.IssuedAt}
	if r.MatchedWith != nil {
		it.RecordID = *r.MatchedWith
	}
	return it
}

func PaymentItem(p *PaymentEvent) Item {
	it := Item{Kind: KindPayment, ID: uuid.UUID(p.ID), TenantID: p.TenantID, Amount: p.Amount, At: p.OccurredAt}
	if p.MatchedWith != nil {
		it.RecordID = *p.MatchedWith
	}
	return it
}
