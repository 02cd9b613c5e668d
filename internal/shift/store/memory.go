// Package store persists waiter shifts. At most one shift per waiter is
// open at any time; both stores enforce it.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

type waiterKey struct {
	tenant id.TenantID
	waiter id.WaiterID
}

type InMemory struct {
	mu     sync.RWMutex
	shifts map[id.ShiftID]*models.Shift
	open   map[waiterKey]id.ShiftID
}

func NewInMemory() *InMemory {
	return &InMemory{
		shifts: make(map[id.ShiftID]*models.Shift),
		open:   make(map[waiterKey]id.ShiftID),
	}
}

// Create returns ErrConflict when the waiter already has an open shift.
func (s *InMemory) Create(_ context.Context, sh *models.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := waiterKey{sh.TenantID, sh.WaiterID}
	if _, busy := s.open[key]; busy && sh.IsOpen() {
		return sentinel.ErrConflict
	}
	s.shifts[sh.ID] = copyShift(sh)
	if sh.IsOpen() {
		s.open[key] = sh.ID
	}
	return nil
}

func (s *InMemory) Get(_ context.Context, shiftID id.ShiftID) (*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shifts[shiftID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyShift(sh), nil
}

func (s *InMemory) FindOpen(_ context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shiftID, ok := s.open[waiterKey{tenantID, waiterID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyShift(s.shifts[shiftID]), nil
}

// Close persists a closed shift. It returns ErrInvalidState when the stored
// shift is no longer open, so only one of two racing closes wins.
func (s *InMemory) Close(_ context.Context, sh *models.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.shifts[sh.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !existing.IsOpen() {
		return sentinel.ErrInvalidState
	}
	s.shifts[sh.ID] = copyShift(sh)
	delete(s.open, waiterKey{sh.TenantID, sh.WaiterID})
	return nil
}

// ListByWaiter returns the waiter's shifts, newest first.
func (s *InMemory) ListByWaiter(_ context.Context, tenantID id.TenantID, waiterID id.WaiterID) ([]*models.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Shift{}
	for _, sh := range s.shifts {
		if sh.TenantID == tenantID && sh.WaiterID == waiterID {
			out = append(out, copyShift(sh))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return out, nil
}

func copyShift(sh *models.Shift) *models.Shift {
	c := *sh
	if sh.ClosedAt != nil {
		t := *sh.ClosedAt
		c.ClosedAt = &t
	}
	if sh.Summary != nil {
		sum := *sh.Summary
		sum.ByChannel = make(map[recon.PaymentMethod]decimal.Decimal, len(sh.Summary.ByChannel))
		for k, v := range sh.Summary.ByChannel {
			sum.ByChannel[k] = v
		}
		c.Summary = &sum
	}
	return &c
}
