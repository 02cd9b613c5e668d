package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) newTenant(name string) *models.Tenant {
	t, err := models.NewTenant(id.NewTenantID(), name, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateTenant(s.ctx, t))
	return t
}

func (s *InMemorySuite) TestTenants() {
	s.Run("finds created tenant", func() {
		t := s.newTenant("Lucy Cafe")
		found, err := s.store.FindTenant(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Equal("Lucy Cafe", found.Name)
	})

	s.Run("unknown tenant is not found", func() {
		_, err := s.store.FindTenant(s.ctx, id.NewTenantID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("names are unique ignoring case", func() {
		s.newTenant("Habesha House")
		dup, err := models.NewTenant(id.NewTenantID(), "HABESHA HOUSE", s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateTenant(s.ctx, dup), sentinel.ErrConflict)
	})
}

func (s *InMemorySuite) TestWaiters() {
	t := s.newTenant("Kaldi")
	other := s.newTenant("Tomoca")

	w, err := models.NewWaiter(id.NewWaiterID(), t.ID, "Abebe", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateWaiter(s.ctx, w))

	s.Run("scoped to tenant", func() {
		_, err := s.store.FindWaiter(s.ctx, t.ID, w.ID)
		s.NoError(err)
		_, err = s.store.FindWaiter(s.ctx, other.ID, w.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("requires an existing tenant", func() {
		orphan, err := models.NewWaiter(id.NewWaiterID(), id.NewTenantID(), "Ghost", s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.CreateWaiter(s.ctx, orphan), sentinel.ErrNotFound)
	})

	s.Run("active shift round trips without aliasing", func() {
		shift := id.NewShiftID()
		w.ActiveShift = &shift
		w.UpdatedAt = s.now.Add(time.Hour)
		s.Require().NoError(s.store.SetActiveShift(s.ctx, w))

		found, err := s.store.FindWaiter(s.ctx, t.ID, w.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.ActiveShift)
		s.Equal(shift, *found.ActiveShift)

		*found.ActiveShift = id.NewShiftID()
		again, err := s.store.FindWaiter(s.ctx, t.ID, w.ID)
		s.Require().NoError(err)
		s.Equal(shift, *again.ActiveShift)
	})

	s.Run("lists only the tenant's waiters", func() {
		list, err := s.store.ListWaiters(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Len(list, 1)
		list, err = s.store.ListWaiters(s.ctx, other.ID)
		s.Require().NoError(err)
		s.Empty(list)
	})
}

func (s *InMemorySuite) TestMerchants() {
	t := s.newTenant("Yod Abyssinia")
	m, err := models.NewMerchant(id.NewMerchantID(), t.ID, "till-1", "front", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddMerchant(s.ctx, m))

	ok, err := s.store.HasMerchant(s.ctx, t.ID, "till-1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.HasMerchant(s.ctx, t.ID, "till-2")
	s.Require().NoError(err)
	s.False(ok)

	dup, err := models.NewMerchant(id.NewMerchantID(), t.ID, "till-1", "", s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.AddMerchant(s.ctx, dup), sentinel.ErrConflict)

	list, err := s.store.ListMerchants(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("front", list[0].Label)
}
