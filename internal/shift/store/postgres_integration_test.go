//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
	"tally/internal/shift/store"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
	"tally/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(s.postgres.Migrate(context.Background(), store.Schema))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "shifts"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) TestLifecycle() {
	ctx := context.Background()
	tenant, waiter := id.NewTenantID(), id.NewWaiterID()

	sh := models.NewShift(tenant, waiter, s.now)
	s.Require().NoError(s.store.Create(ctx, sh))
	s.ErrorIs(s.store.Create(ctx, models.NewShift(tenant, waiter, s.now)), sentinel.ErrConflict)

	open, err := s.store.FindOpen(ctx, tenant, waiter)
	s.Require().NoError(err)
	s.Equal(sh.ID, open.ID)
	s.Nil(open.Summary)

	sh.ApplyClose(s.now.Add(6*time.Hour), &models.Summary{
		TenantID:     tenant,
		WaiterID:     waiter,
		PeriodStart:  s.now,
		PeriodEnd:    s.now.Add(6 * time.Hour),
		TotalSales:   decimal.RequireFromString("410.50"),
		TotalTips:    decimal.RequireFromString("20.00"),
		ByChannel:    map[recon.PaymentMethod]decimal.Decimal{recon.MethodTelebirr: decimal.RequireFromString("410.50")},
		MatchedCount: 3,
		Cutoff:       42,
	})
	s.Require().NoError(s.store.Close(ctx, sh))
	s.ErrorIs(s.store.Close(ctx, sh), sentinel.ErrInvalidState)

	got, err := s.store.Get(ctx, sh.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, got.Status)
	s.Require().NotNil(got.Summary)
	s.Equal(waiter, got.Summary.WaiterID)
	s.True(got.Summary.TotalSales.Equal(decimal.RequireFromString("410.50")))
	s.True(got.Summary.ByChannel[recon.MethodTelebirr].Equal(decimal.RequireFromString("410.50")))
	s.Equal(3, got.Summary.MatchedCount)

	list, err := s.store.ListByWaiter(ctx, tenant, waiter)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.store.FindOpen(ctx, tenant, waiter)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
