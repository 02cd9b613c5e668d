package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/metrics"
	"tally/internal/shift/models"
	"tally/internal/shift/service/mocks"
	"tally/internal/shift/store"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	roster  *mocks.MockRoster
	ledger  *mocks.MockLedger
	store   *store.InMemory
	metrics *metrics.Metrics
	service *Service
	tenant  id.TenantID
	waiter  id.WaiterID
	t0      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.roster = mocks.NewMockRoster(s.ctrl)
	s.ledger = mocks.NewMockLedger(s.ctrl)
	s.store = store.NewInMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	svc, err := New(s.store, s.roster, s.ledger,
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
	s.service = svc
	s.tenant = id.NewTenantID()
	s.waiter = id.NewWaiterID()
	s.t0 = time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)

	s.roster.EXPECT().CheckWaiter(gomock.Any(), s.tenant, s.waiter).Return(nil).AnyTimes()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.t0.Add(d))
}

func (s *ServiceSuite) summary(from, to time.Time) *models.Summary {
	return &models.Summary{
		TenantID:     s.tenant,
		WaiterID:     s.waiter,
		PeriodStart:  from,
		PeriodEnd:    to,
		TotalSales:   decimal.RequireFromString("300.00"),
		TotalTips:    decimal.RequireFromString("15.00"),
		ByChannel:    map[recon.PaymentMethod]decimal.Decimal{recon.MethodCash: decimal.RequireFromString("300.00")},
		MatchedCount: 2,
	}
}

// =============================================================================
// Shift lifecycle
// =============================================================================

func (s *ServiceSuite) TestOpenAndClose() {
	gomock.InOrder(
		s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Not(gomock.Nil())).Return(nil),
		s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Nil()).Return(nil),
	)
	opened, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.Require().NoError(err)
	s.True(opened.IsOpen())

	end := s.t0.Add(8 * time.Hour)
	s.ledger.EXPECT().Summarize(gomock.Any(), s.tenant, s.waiter, s.t0, end).Return(s.summary(s.t0, end), nil)

	closed, err := s.service.CloseShift(s.at(8*time.Hour), s.tenant, s.waiter)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, closed.Status)
	s.Require().NotNil(closed.ClosedAt)
	s.Equal(end, *closed.ClosedAt)
	s.Equal("300.00", closed.Summary.TotalSales.StringFixed(2))

	stored, err := s.service.GetShift(s.at(0), opened.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, stored.Status)

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Opened))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Closed))
}

func (s *ServiceSuite) TestSecondOpenConflicts() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(nil)
	_, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.Require().NoError(err)

	_, err = s.service.OpenShift(s.at(time.Minute), s.tenant, s.waiter)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestCloseWithoutOpenShift() {
	_, err := s.service.CloseShift(s.at(0), s.tenant, s.waiter)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestCloseTwice() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(nil).Times(2)
	s.ledger.EXPECT().Summarize(gomock.Any(), s.tenant, s.waiter, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.TenantID, _ id.WaiterID, from, to time.Time) (*models.Summary, error) {
			return s.summary(from, to), nil
		})

	_, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.Require().NoError(err)
	_, err = s.service.CloseShift(s.at(time.Hour), s.tenant, s.waiter)
	s.Require().NoError(err)

	_, err = s.service.CloseShift(s.at(2*time.Hour), s.tenant, s.waiter)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ServiceSuite) TestConcurrentOpensLeaveOneShift() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(nil).Times(1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, success)
}

func (s *ServiceSuite) TestSameInstantCloseCoversOpeningInstant() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(nil).Times(2)
	s.ledger.EXPECT().Summarize(gomock.Any(), s.tenant, s.waiter, s.t0, s.t0.Add(time.Nanosecond)).
		Return(s.summary(s.t0, s.t0.Add(time.Nanosecond)), nil)

	_, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.Require().NoError(err)
	_, err = s.service.CloseShift(s.at(0), s.tenant, s.waiter)
	s.NoError(err)
}

func (s *ServiceSuite) TestRosterFailuresDoNotFailShift() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(errors.New("directory down"))
	_, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.NoError(err)
}

func (s *ServiceSuite) TestLedgerFailureKeepsShiftOpen() {
	s.roster.EXPECT().SetActiveShift(gomock.Any(), s.tenant, s.waiter, gomock.Any()).Return(nil)
	s.ledger.EXPECT().Summarize(gomock.Any(), s.tenant, s.waiter, gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "ledger snapshot unavailable"))

	_, err := s.service.OpenShift(s.at(0), s.tenant, s.waiter)
	s.Require().NoError(err)
	_, err = s.service.CloseShift(s.at(time.Hour), s.tenant, s.waiter)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	open, err := s.store.FindOpen(context.Background(), s.tenant, s.waiter)
	s.Require().NoError(err)
	s.True(open.IsOpen())
}

func (s *ServiceSuite) TestUnknownWaiter() {
	stranger := id.NewWaiterID()
	s.roster.EXPECT().CheckWaiter(gomock.Any(), s.tenant, stranger).
		Return(dErrors.New(dErrors.CodeUnknownWaiter, "waiter does not exist"))
	_, err := s.service.OpenShift(s.at(0), s.tenant, stranger)
	s.True(dErrors.HasCode(err, dErrors.CodeUnknownWaiter))
}

func (s *ServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.roster, s.ledger)
	s.Error(err)
	_, err = New(s.store, nil, s.ledger)
	s.Error(err)
	_, err = New(s.store, s.roster, nil)
	s.Error(err)
}
