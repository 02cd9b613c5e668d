package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/service"
	"tally/internal/reconciliation/store"
	id "tally/pkg/domain"
	"tally/pkg/platform/middleware/requesttime"
)

// HandlerSuite drives the HTTP surface against a real service over the
// in-memory ledger. It checks parsing, status codes and response shapes.
type HandlerSuite struct {
	suite.Suite
	router http.Handler
	now    time.Time
	tenant id.TenantID
	waiter id.WaiterID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	s.tenant = id.NewTenantID()
	s.waiter = id.NewWaiterID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(store.NewInMemory(), config.DefaultConfig(), service.WithLogger(logger))
	s.Require().NoError(err)
	h := New(svc, logger)

	r := chi.NewRouter()
	r.Use(requesttime.MiddlewareWithClock(func() time.Time { return s.now }))
	r.Route("/v1", func(r chi.Router) {
		h.Register(r)
		h.RegisterAdmin(r)
	})
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) tenantPath(suffix string) string {
	return "/v1/tenants/" + s.tenant.String() + suffix
}

func (s *HandlerSuite) receiptBody(ext, amount string) map[string]any {
	return map[string]any{
		"waiter_id":   s.waiter.String(),
		"amount":      amount,
		"issued_at":   s.now.Format(time.RFC3339),
		"raw_source":  "TOTAL " + amount,
		"external_id": ext,
	}
}

func (s *HandlerSuite) paymentBody(ext, amount string) map[string]any {
	return map[string]any{
		"amount":      amount,
		"tip":         "20",
		"method":      "telebirr",
		"occurred_at": s.now.Add(2 * time.Minute).Format(time.RFC3339),
		"channel_ref": "till-1",
		"external_id": ext,
	}
}

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	var out T
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// Ingest
// =============================================================================

func (s *HandlerSuite) TestSubmitAndMatch() {
	rec := s.do(http.MethodPost, s.tenantPath("/receipts"), s.receiptBody("r-1", "1250.00"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	pending := decode[SubmitResponse](s, rec)
	s.Equal("pending", pending.Record.Status)
	s.False(pending.Duplicate)

	rec = s.do(http.MethodPost, s.tenantPath("/payments"), s.paymentBody("p-1", "1250"))
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	matched := decode[SubmitResponse](s, rec)
	s.Equal(pending.Record.ID, matched.Record.ID)
	s.Equal("matched", matched.Record.Status)
	s.Equal("low", matched.Record.RiskLevel)
	s.Empty(matched.Discrepancies)

	rec = s.do(http.MethodPost, s.tenantPath("/payments"), s.paymentBody("p-1", "1250"))
	s.Require().Equal(http.StatusOK, rec.Code)
	replay := decode[SubmitResponse](s, rec)
	s.True(replay.Duplicate)
	s.Equal(matched.Record.ID, replay.Record.ID)

	rec = s.do(http.MethodGet, "/v1/records/"+matched.Record.ID, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	view := decode[RecordViewResponse](s, rec)
	s.Equal("matched", view.Record.Status)
	s.NotNil(view.Record.ReceiptID)
	s.NotNil(view.Record.PaymentID)
}

func (s *HandlerSuite) TestSubmitRejectsBadInput() {
	cases := []struct {
		name string
		path string
		body any
	}{
		{"malformed json", s.tenantPath("/receipts"), "not json"},
		{"unknown field", s.tenantPath("/receipts"), map[string]any{"waiter_id": s.waiter.String(), "tips": 1}},
		{"missing external id", s.tenantPath("/receipts"), func() map[string]any {
			b := s.receiptBody("", "10")
			return b
		}()},
		{"non numeric amount", s.tenantPath("/receipts"), s.receiptBody("r-1", "ten")},
		{"negative amount", s.tenantPath("/payments"), s.paymentBody("p-1", "-5")},
		{"bad tenant", "/v1/tenants/nope/receipts", s.receiptBody("r-1", "10")},
		{"unknown method", s.tenantPath("/payments"), func() map[string]any {
			b := s.paymentBody("p-1", "10")
			b["method"] = "bitcoin"
			return b
		}()},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.do(http.MethodPost, tc.path, tc.body)
			s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// Queries and Escalation
// =============================================================================

func (s *HandlerSuite) TestMismatchQueriesAndEscalation() {
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, s.tenantPath("/receipts"), s.receiptBody("r-1", "1250")).Code)
	rec := s.do(http.MethodPost, s.tenantPath("/payments"), s.paymentBody("p-1", "1150"))
	s.Require().Equal(http.StatusCreated, rec.Code)
	flagged := decode[SubmitResponse](s, rec)
	s.Equal("flagged", flagged.Record.Status)
	s.Require().Len(flagged.Discrepancies, 1)
	s.Equal("amount_mismatch", flagged.Discrepancies[0].Type)
	s.Equal("high", flagged.Discrepancies[0].Severity)

	s.Run("records by status", func() {
		rec := s.do(http.MethodGet, s.tenantPath("/records?status=flagged,expired"), nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		body := decode[struct {
			Records []RecordResponse `json:"records"`
		}](s, rec)
		s.Len(body.Records, 1)

		rec = s.do(http.MethodGet, s.tenantPath("/records?status=settled"), nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("discrepancies and counts", func() {
		rec := s.do(http.MethodGet, s.tenantPath("/discrepancies?since="+s.now.Add(-time.Hour).Format(time.RFC3339)), nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		list := decode[struct {
			Discrepancies []DiscrepancyResponse `json:"discrepancies"`
		}](s, rec)
		s.Len(list.Discrepancies, 1)

		rec = s.do(http.MethodGet, s.tenantPath("/discrepancies/counts"), nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		counts := decode[struct {
			Counts map[string]int `json:"counts"`
		}](s, rec)
		s.Equal(1, counts.Counts["amount_mismatch"])
		s.Equal(0, counts.Counts["duplicate_receipt"])

		rec = s.do(http.MethodGet, s.tenantPath("/discrepancies?since=yesterday"), nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("escalate adds a discrepancy", func() {
		rec := s.do(http.MethodPost, "/v1/records/"+flagged.Record.ID+"/escalations",
			map[string]any{"type": "invalid_merchant", "description": "manual review"})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		view := decode[RecordViewResponse](s, rec)
		s.Equal("flagged", view.Record.Status)
		s.Len(view.Discrepancies, 2)

		rec = s.do(http.MethodPost, "/v1/records/"+flagged.Record.ID+"/escalations", map[string]any{"type": "vibes"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown record", func() {
		rec := s.do(http.MethodGet, "/v1/records/"+id.NewRecordID().String(), nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

// =============================================================================
// Admin
// =============================================================================

func (s *HandlerSuite) TestManualSweep() {
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, s.tenantPath("/receipts"), s.receiptBody("r-1", "1500")).Code)

	s.now = s.now.Add(45 * time.Minute)
	rec := s.do(http.MethodPost, "/v1/admin/sweep", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	report := decode[service.SweepReport](s, rec)
	s.Equal(1, report.Examined)
	s.Equal(1, report.Flagged)

	rec = s.do(http.MethodGet, s.tenantPath("/records?status=flagged"), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
}
