// Package domain holds the typed identifiers shared across bounded contexts.
//
// Every ID is a distinct named type over uuid.UUID so a WaiterID can never be
// passed where a TenantID is expected. Parse functions are the trust boundary:
// they reject malformed and nil UUIDs with CodeInvalidInput.
package domain

import (
	"github.com/google/uuid"

	dErrors "tally/pkg/domain-errors"
)

type (
	TenantID      uuid.UUID
	WaiterID      uuid.UUID
	MerchantID    uuid.UUID
	ReceiptID     uuid.UUID
	PaymentID     uuid.UUID
	RecordID      uuid.UUID
	DiscrepancyID uuid.UUID
	ShiftID       uuid.UUID
)

func (id TenantID) String() string      { return uuid.UUID(id).String() }
func (id WaiterID) String() string      { return uuid.UUID(id).String() }
func (id MerchantID) String() string    { return uuid.UUID(id).String() }
func (id ReceiptID) String() string     { return uuid.UUID(id).String() }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }
func (id RecordID) String() string      { return uuid.UUID(id).String() }
func (id DiscrepancyID) String() string { return uuid.UUID(id).String() }
func (id ShiftID) String() string       { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id WaiterID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ReceiptID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id TenantID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id WaiterID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id MerchantID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ReceiptID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id PaymentID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id RecordID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id DiscrepancyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ShiftID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

// UnmarshalText accepts the plain UUID form written by MarshalText.
func (id *TenantID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *WaiterID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MerchantID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReceiptID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PaymentID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RecordID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DiscrepancyID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ShiftID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }

func NewTenantID() TenantID           { return TenantID(uuid.New()) }
func NewWaiterID() WaiterID           { return WaiterID(uuid.New()) }
func NewMerchantID() MerchantID       { return MerchantID(uuid.New()) }
func NewReceiptID() ReceiptID         { return ReceiptID(uuid.New()) }
func NewPaymentID() PaymentID         { return PaymentID(uuid.New()) }
func NewRecordID() RecordID           { return RecordID(uuid.New()) }
func NewDiscrepancyID() DiscrepancyID { return DiscrepancyID(uuid.New()) }
func NewShiftID() ShiftID             { return ShiftID(uuid.New()) }

func parseID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parseID("tenant ID", s)
	return TenantID(u), err
}

func ParseWaiterID(s string) (WaiterID, error) {
	u, err := parseID("waiter ID", s)
	return WaiterID(u), err
}

func ParseMerchantID(s string) (MerchantID, error) {
	u, err := parseID("merchant ID", s)
	return MerchantID(u), err
}

func ParseReceiptID(s string) (ReceiptID, error) {
	u, err := parseID("receipt ID", s)
	return ReceiptID(u), err
}

func ParsePaymentID(s string) (PaymentID, error) {
	u, err := parseID("payment ID", s)
	return PaymentID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseID("record ID", s)
	return RecordID(u), err
}

func ParseShiftID(s string) (ShiftID, error) {
	u, err := parseID("shift ID", s)
	return ShiftID(u), err
}
