package models

import (
	"strings"
	"time"

	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
)

const (
	maxNameLength       = 128
	maxChannelRefLength = 128
)

// Tenant is one restaurant account. Every receipt, payment and record is
// scoped to exactly one tenant.
type Tenant struct {
	ID        id.TenantID `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewTenant(tenantID id.TenantID, name string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if err := checkName("tenant", name); err != nil {
		return nil, err
	}
	return &Tenant{ID: tenantID, Name: name, CreatedAt: now}, nil
}

// Waiter belongs to one tenant. ActiveShift is set while the waiter has an
// open shift.
type Waiter struct {
	ID          id.WaiterID `json:"id"`
	TenantID    id.TenantID `json:"tenant_id"`
	Name        string      `json:"name"`
	ActiveShift *id.ShiftID `json:"active_shift,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewWaiter(waiterID id.WaiterID, tenantID id.TenantID, name string, now time.Time) (*Waiter, error) {
	name = strings.TrimSpace(name)
	if err := checkName("waiter", name); err != nil {
		return nil, err
	}
	return &Waiter{ID: waiterID, TenantID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

func (w *Waiter) OnShift() bool {
	return w.ActiveShift != nil
}

// Merchant is a registered sub-merchant reference on a payment channel.
// Payments whose channel ref is not registered are flagged as
// invalid_merchant.
type Merchant struct {
	ID         id.MerchantID `json:"id"`
	TenantID   id.TenantID   `json:"tenant_id"`
	ChannelRef string        `json:"channel_ref"`
	Label      string        `json:"label,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

func NewMerchant(merchantID id.MerchantID, tenantID id.TenantID, channelRef, label string, now time.Time) (*Merchant, error) {
	channelRef = strings.TrimSpace(channelRef)
	if channelRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "channel ref cannot be empty")
	}
	if len(channelRef) > maxChannelRefLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "channel ref must be 128 characters or less")
	}
	return &Merchant{
		ID:         merchantID,
		TenantID:   tenantID,
		ChannelRef: channelRef,
		Label:      strings.TrimSpace(label),
		CreatedAt:  now,
	}, nil
}

func checkName(kind, name string) error {
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, kind+" name cannot be empty")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, kind+" name must be 128 characters or less")
	}
	return nil
}
