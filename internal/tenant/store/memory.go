// Package store persists the tenant directory: tenants, waiters and the
// sub-merchant allow-list.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

// InMemory is a thread-safe directory for tests and single-node runs.
type InMemory struct {
	mu        sync.RWMutex
	tenants   map[id.TenantID]*models.Tenant
	names     map[string]id.TenantID
	waiters   map[id.WaiterID]*models.Waiter
	merchants map[id.TenantID]map[string]*models.Merchant
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants:   make(map[id.TenantID]*models.Tenant),
		names:     make(map[string]id.TenantID),
		waiters:   make(map[id.WaiterID]*models.Waiter),
		merchants: make(map[id.TenantID]map[string]*models.Merchant),
	}
}

// CreateTenant returns ErrConflict when the name is taken, ignoring case.
func (s *InMemory) CreateTenant(_ context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(t.Name)
	if _, taken := s.names[key]; taken {
		return sentinel.ErrConflict
	}
	c := *t
	s.tenants[t.ID] = &c
	s.names[key] = t.ID
	return nil
}

func (s *InMemory) FindTenant(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (s *InMemory) CreateWaiter(_ context.Context, w *models.Waiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[w.TenantID]; !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := s.waiters[w.ID]; exists {
		return sentinel.ErrConflict
	}
	s.waiters[w.ID] = copyWaiter(w)
	return nil
}

// FindWaiter only finds waiters of the given tenant.
func (s *InMemory) FindWaiter(_ context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Waiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.waiters[waiterID]
	if !ok || w.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return copyWaiter(w), nil
}

func (s *InMemory) ListWaiters(_ context.Context, tenantID id.TenantID) ([]*models.Waiter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Waiter
	for _, w := range s.waiters {
		if w.TenantID == tenantID {
			out = append(out, copyWaiter(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SetActiveShift records or clears the waiter's open shift.
func (s *InMemory) SetActiveShift(_ context.Context, w *models.Waiter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.waiters[w.ID]
	if !ok || existing.TenantID != w.TenantID {
		return sentinel.ErrNotFound
	}
	existing.ActiveShift = copyShift(w.ActiveShift)
	existing.UpdatedAt = w.UpdatedAt
	return nil
}

// AddMerchant returns ErrConflict when the channel ref is already registered
// for the tenant.
func (s *InMemory) AddMerchant(_ context.Context, m *models.Merchant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[m.TenantID]; !ok {
		return sentinel.ErrNotFound
	}
	refs, ok := s.merchants[m.TenantID]
	if !ok {
		refs = make(map[string]*models.Merchant)
		s.merchants[m.TenantID] = refs
	}
	if _, taken := refs[m.ChannelRef]; taken {
		return sentinel.ErrConflict
	}
	c := *m
	refs[m.ChannelRef] = &c
	return nil
}

func (s *InMemory) HasMerchant(_ context.Context, tenantID id.TenantID, channelRef string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.merchants[tenantID][channelRef]
	return ok, nil
}

func (s *InMemory) ListMerchants(_ context.Context, tenantID id.TenantID) ([]*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Merchant, 0, len(s.merchants[tenantID]))
	for _, m := range s.merchants[tenantID] {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelRef < out[j].ChannelRef })
	return out, nil
}

func copyWaiter(w *models.Waiter) *models.Waiter {
	c := *w
	c.ActiveShift = copyShift(w.ActiveShift)
	return &c
}

func copyShift(s *id.ShiftID) *id.ShiftID {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
