package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	reconconfig "tally/internal/reconciliation/config"
	recon "tally/internal/reconciliation/models"
	reconservice "tally/internal/reconciliation/service"
	reconstore "tally/internal/reconciliation/store"
	"tally/internal/shift/service"
	"tally/internal/shift/store"
	tenantservice "tally/internal/tenant/service"
	tenantstore "tally/internal/tenant/store"
	id "tally/pkg/domain"
	"tally/pkg/platform/middleware/requesttime"
	"tally/pkg/requestcontext"
)

// HandlerSuite runs shifts end to end: directory, reconciliation ledger and
// shift service are all real and in memory.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	recon  *reconservice.Service
	now    time.Time
	t0     time.Time
	tenant id.TenantID
	waiter id.WaiterID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.t0 = time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)
	s.now = s.t0
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := requestcontext.WithTime(context.Background(), s.t0)

	tenants, err := tenantservice.New(tenantstore.NewInMemory(), tenantservice.WithLogger(logger))
	s.Require().NoError(err)
	tenant, err := tenants.CreateTenant(ctx, "Kaldi")
	s.Require().NoError(err)
	waiter, err := tenants.CreateWaiter(ctx, tenant.ID, "Abebe")
	s.Require().NoError(err)
	_, err = tenants.AddMerchant(ctx, tenant.ID, "till-1", "")
	s.Require().NoError(err)
	s.tenant, s.waiter = tenant.ID, waiter.ID

	s.recon, err = reconservice.New(reconstore.NewInMemory(), reconconfig.DefaultConfig(),
		reconservice.WithDirectory(tenants),
		reconservice.WithMerchantVerifier(tenants),
		reconservice.WithLogger(logger),
	)
	s.Require().NoError(err)

	shifts, err := service.New(store.NewInMemory(), tenants, s.recon, service.WithLogger(logger))
	s.Require().NoError(err)

	r := chi.NewRouter()
	r.Use(requesttime.MiddlewareWithClock(func() time.Time { return s.now }))
	r.Route("/v1", New(shifts, logger).Register)
	s.router = r
}

func (s *HandlerSuite) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) waiterPath(suffix string) string {
	return "/v1/tenants/" + s.tenant.String() + "/waiters/" + s.waiter.String() + suffix
}

// sell records a matched sale issued at offset from t0.
func (s *HandlerSuite) sell(ext string, offset time.Duration, amount, tip string) {
	ctx := requestcontext.WithTime(context.Background(), s.t0.Add(offset+5*time.Minute))
	_, err := s.recon.SubmitReceipt(ctx, reconservice.ReceiptInput{
		TenantID:   s.tenant,
		WaiterID:   s.waiter,
		Amount:     decimal.RequireFromString(amount),
		IssuedAt:   s.t0.Add(offset),
		RawSource:  "bill " + ext,
		ExternalID: "r-" + ext,
	})
	s.Require().NoError(err)
	res, err := s.recon.SubmitPayment(ctx, reconservice.PaymentInput{
		TenantID:   s.tenant,
		Amount:     decimal.RequireFromString(amount),
		Tip:        decimal.RequireFromString(tip),
		Method:     recon.MethodTelebirr,
		OccurredAt: s.t0.Add(offset + 2*time.Minute),
		ChannelRef: "till-1",
		ExternalID: "p-" + ext,
	})
	s.Require().NoError(err)
	s.Require().Equal(recon.StatusMatched, res.Record.Status)
}

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	var out T
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (s *HandlerSuite) TestShiftCloseCarriesSummary() {
	rec := s.do(http.MethodPost, s.waiterPath("/shifts"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	opened := decode[ShiftResponse](s, rec)
	s.Equal("open", opened.Status)
	s.Nil(opened.Summary)

	rec = s.do(http.MethodPost, s.waiterPath("/shifts"))
	s.Equal(http.StatusConflict, rec.Code)

	s.sell("1", 10*time.Minute, "450.00", "20")
	s.sell("2", 40*time.Minute, "300.50", "0")

	s.now = s.t0.Add(2 * time.Hour)
	rec = s.do(http.MethodPost, s.waiterPath("/shifts/close"))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[ShiftResponse](s, rec)
	s.Equal("closed", closed.Status)
	s.Require().NotNil(closed.Summary)
	s.Equal("750.50", closed.Summary.TotalSales)
	s.Equal("20.00", closed.Summary.TotalTips)
	s.Equal("750.50", closed.Summary.ByChannel["Telebirr"])
	s.Equal(2, closed.Summary.MatchedCount)

	rec = s.do(http.MethodPost, s.waiterPath("/shifts/close"))
	s.Equal(http.StatusConflict, rec.Code, "closing a closed shift is an invalid transition")

	rec = s.do(http.MethodGet, s.waiterPath("/shifts"))
	s.Require().Equal(http.StatusOK, rec.Code)
	list := decode[struct {
		Shifts []ShiftResponse `json:"shifts"`
	}](s, rec)
	s.Len(list.Shifts, 1)
}

func (s *HandlerSuite) TestSummaryAndDailyStats() {
	s.sell("1", 10*time.Minute, "100", "5")
	s.sell("2", 26*time.Hour, "250", "0")

	period := "?from=" + s.t0.Format(time.RFC3339) + "&to=" + s.t0.Add(48*time.Hour).Format(time.RFC3339)

	rec := s.do(http.MethodGet, s.waiterPath("/summary"+period))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[SummaryResponse](s, rec)
	s.Equal("350.00", summary.TotalSales)
	s.Equal("5.00", summary.TotalTips)

	rec = s.do(http.MethodGet, "/v1/tenants/"+s.tenant.String()+"/stats/daily"+period)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	daily := decode[DailyStatsResponse](s, rec)
	s.Require().Len(daily.Days, 2)
	s.Equal("2024-06-01", daily.Days[0].Date)
	s.Equal("100.00", daily.Days[0].Revenue)
	s.Equal("2024-06-02", daily.Days[1].Date)
	s.Equal(1, daily.Days[1].Transactions)
}

func (s *HandlerSuite) TestRejections() {
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"close without open shift", http.MethodPost, s.waiterPath("/shifts/close"), http.StatusConflict},
		{"summary without period", http.MethodGet, s.waiterPath("/summary"), http.StatusBadRequest},
		{"summary with bad timestamp", http.MethodGet, s.waiterPath("/summary?from=yesterday&to=today"), http.StatusBadRequest},
		{"malformed waiter id", http.MethodPost, "/v1/tenants/" + s.tenant.String() + "/waiters/nope/shifts", http.StatusBadRequest},
		{"unknown waiter", http.MethodPost, "/v1/tenants/" + s.tenant.String() + "/waiters/" + id.NewWaiterID().String() + "/shifts", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(tt.method, tt.path)
			s.Equal(tt.want, rec.Code, rec.Body.String())
		})
	}
}
