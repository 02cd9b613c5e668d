package detector

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"tally/internal/reconciliation/config"
	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
)

type DetectorSuite struct {
	suite.Suite
	cfg config.Config
	now time.Time
}

func TestDetectorSuite(t *testing.T) {
	suite.Run(t, new(DetectorSuite))
}

func (s *DetectorSuite) SetupTest() {
	s.cfg = config.DefaultConfig()
	s.now = time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
}

func (s *DetectorSuite) receipt(amount int64) *models.Receipt {
	return &models.Receipt{
		ID:          id.NewReceiptID(),
		Amount:      decimal.NewFromInt(amount),
		IssuedAt:    s.now,
		Fingerprint: models.Fingerprint("bill"),
	}
}

func (s *DetectorSuite) payment(amount int64, method models.PaymentMethod) *models.PaymentEvent {
	return &models.PaymentEvent{
		ID:         id.NewPaymentID(),
		Amount:     decimal.NewFromInt(amount),
		Method:     method,
		OccurredAt: s.now.Add(time.Minute),
		ChannelRef: "till-7",
	}
}

func known(v bool) *bool { return &v }

// =============================================================================
// Rules
// =============================================================================

func (s *DetectorSuite) TestAmountMismatch() {
	s.Run("fires beyond the band with High severity", func() {
		findings := Detect(Input{Receipt: s.receipt(1250), Payment: s.payment(1150, models.MethodTelebirr)}, s.cfg)
		s.Require().Len(findings, 1)
		s.Equal(models.DiscrepancyAmountMismatch, findings[0].Type)
		s.Equal(models.SeverityHigh, findings[0].Severity)
		s.Contains(findings[0].Description, "1250.00")
	})

	s.Run("silent inside the band", func() {
		findings := Detect(Input{Receipt: s.receipt(1250), Payment: s.payment(1240, models.MethodCard)}, s.cfg)
		s.Empty(findings)
	})

	s.Run("needs both sides", func() {
		s.Empty(Detect(Input{Receipt: s.receipt(1250)}, s.cfg))
	})
}

func (s *DetectorSuite) TestDuplicateReceipt() {
	rec := id.NewRecordID()
	r := s.receipt(400)
	prior := func(status models.Status, ago time.Duration) models.ReceiptBinding {
		return models.ReceiptBinding{ReceiptID: id.NewReceiptID(), RecordID: id.NewRecordID(), RecordStatus: status, IssuedAt: s.now.Add(-ago)}
	}

	s.Run("same fingerprint bound elsewhere within lookback", func() {
		findings := Detect(Input{RecordID: rec, Receipt: r, PriorBindings: []models.ReceiptBinding{prior(models.StatusMatched, time.Hour)}}, s.cfg)
		s.Require().Len(findings, 1)
		s.Equal(models.DiscrepancyDuplicateReceipt, findings[0].Type)
		s.Equal(models.SeverityLow, findings[0].Severity)
	})

	s.Run("ignores expired records", func() {
		findings := Detect(Input{RecordID: rec, Receipt: r, PriorBindings: []models.ReceiptBinding{prior(models.StatusExpired, time.Hour)}}, s.cfg)
		s.Empty(findings)
	})

	s.Run("ignores bindings outside the lookback", func() {
		findings := Detect(Input{RecordID: rec, Receipt: r, PriorBindings: []models.ReceiptBinding{prior(models.StatusMatched, 25*time.Hour)}}, s.cfg)
		s.Empty(findings)
	})

	s.Run("ignores the receipt itself and its own record", func() {
		self := models.ReceiptBinding{ReceiptID: r.ID, RecordID: id.NewRecordID(), RecordStatus: models.StatusMatched, IssuedAt: s.now}
		sameRecord := models.ReceiptBinding{ReceiptID: id.NewReceiptID(), RecordID: rec, RecordStatus: models.StatusPending, IssuedAt: s.now}
		s.Empty(Detect(Input{RecordID: rec, Receipt: r, PriorBindings: []models.ReceiptBinding{self, sameRecord}}, s.cfg))
	})

	s.Run("a receipt without a scan is never a duplicate", func() {
		unscanned := s.receipt(400)
		unscanned.Fingerprint = ""
		findings := Detect(Input{RecordID: rec, Receipt: unscanned, PriorBindings: []models.ReceiptBinding{prior(models.StatusMatched, time.Hour)}}, s.cfg)
		s.Empty(findings)
	})
}

func (s *DetectorSuite) TestInvalidMerchant() {
	p := s.payment(100, models.MethodMPesa)

	s.Run("fires when the allow-list rejects the channel", func() {
		findings := Detect(Input{Payment: p, MerchantKnown: known(false)}, s.cfg)
		s.Require().Len(findings, 1)
		s.Equal(models.DiscrepancyInvalidMerchant, findings[0].Type)
		s.Equal(models.SeverityMedium, findings[0].Severity)
	})

	s.Run("silent when known or not consulted", func() {
		s.Empty(Detect(Input{Payment: p, MerchantKnown: known(true)}, s.cfg))
		s.Empty(Detect(Input{Payment: p}, s.cfg))
	})
}

func (s *DetectorSuite) TestAllApplicableRulesFire() {
	r := s.receipt(1250)
	findings := Detect(Input{
		RecordID:      id.NewRecordID(),
		Receipt:       r,
		Payment:       s.payment(1150, models.MethodTelebirr),
		PriorBindings: []models.ReceiptBinding{{ReceiptID: id.NewReceiptID(), RecordID: id.NewRecordID(), RecordStatus: models.StatusFlagged, IssuedAt: s.now}},
		MerchantKnown: known(false),
	}, s.cfg)

	s.Require().Len(findings, 3)
	s.Equal(models.SeverityHigh, models.HighestSeverity(findings))
}

// =============================================================================
// Decisions
// =============================================================================

func (s *DetectorSuite) TestDecide() {
	s.Run("low score without findings matches", func() {
		d := Decide(5, nil, s.cfg)
		s.Equal(models.StatusMatched, d.Status)
		s.Empty(d.Findings)
	})

	s.Run("High finding forces flagged whatever the score", func() {
		d := Decide(10, []models.Finding{{Type: models.DiscrepancyAmountMismatch, Severity: models.SeverityHigh}}, s.cfg)
		s.Equal(models.StatusFlagged, d.Status)
	})

	s.Run("Medium and Low findings are advisory below highRiskMin", func() {
		findings := []models.Finding{
			{Type: models.DiscrepancyInvalidMerchant, Severity: models.SeverityMedium},
			{Type: models.DiscrepancyDuplicateReceipt, Severity: models.SeverityLow},
		}
		d := Decide(45, findings, s.cfg)
		s.Equal(models.StatusMatched, d.Status)
		s.Len(d.Findings, 2)
	})

	s.Run("Medium finding flags once the score is high", func() {
		d := Decide(70, []models.Finding{{Type: models.DiscrepancyInvalidMerchant, Severity: models.SeverityMedium}}, s.cfg)
		s.Equal(models.StatusFlagged, d.Status)
		s.Len(d.Findings, 1)
	})

	s.Run("score alone flags with an elevated risk discrepancy", func() {
		d := Decide(85, nil, s.cfg)
		s.Equal(models.StatusFlagged, d.Status)
		s.Require().Len(d.Findings, 1)
		s.Equal(models.DiscrepancyElevatedRisk, d.Findings[0].Type)
	})
}

func (s *DetectorSuite) TestDecideUnmatched() {
	s.Run("high value receipt is flagged", func() {
		d := DecideUnmatched(40, Input{Receipt: s.receipt(1500)}, nil, s.cfg)
		s.Equal(models.StatusFlagged, d.Status)
		s.Equal(40, d.Score)
		s.Require().Len(d.Findings, 1)
		s.Equal(models.DiscrepancyUnmatchedAfterWindow, d.Findings[0].Type)
		s.Equal(models.SeverityHigh, d.Findings[0].Severity)
	})

	s.Run("low value low risk receipt expires", func() {
		d := DecideUnmatched(40, Input{Receipt: s.receipt(200)}, nil, s.cfg)
		s.Equal(models.StatusExpired, d.Status)
		s.Empty(d.Findings)
	})

	s.Run("threshold is inclusive", func() {
		d := DecideUnmatched(40, Input{Payment: s.payment(1000, models.MethodCard)}, nil, s.cfg)
		s.Equal(models.StatusFlagged, d.Status)
	})

	s.Run("high score flags a low value item", func() {
		cfg := s.cfg
		cfg.HighRiskMin = 45
		cfg.LowRiskMax = 20
		d := DecideUnmatched(50, Input{Payment: s.payment(30, models.MethodCash)}, nil, cfg)
		s.Equal(models.StatusFlagged, d.Status)
	})

	s.Run("advisory findings ride along on expiry", func() {
		findings := []models.Finding{{Type: models.DiscrepancyInvalidMerchant, Severity: models.SeverityMedium}}
		d := DecideUnmatched(40, Input{Payment: s.payment(30, models.MethodCard)}, findings, s.cfg)
		s.Equal(models.StatusExpired, d.Status)
		s.Len(d.Findings, 1)
	})
}
