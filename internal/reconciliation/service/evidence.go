package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/reconciliation/detector"
	"tally/internal/reconciliation/models"
	"tally/internal/reconciliation/risk"
)

const evidenceTimeout = 3 * time.Second

// evidence is everything scoring and detection need about one record.
type evidence struct {
	receipt  *models.Receipt
	payment  *models.PaymentEvent
	bindings []models.ReceiptBinding
	known    *bool
}

func (e *evidence) detectorInput(rec *models.Record) detector.Input {
	return detector.Input{
		RecordID:      rec.ID,
		Receipt:       e.receipt,
		Payment:       e.payment,
		PriorBindings: e.bindings,
		MerchantKnown: e.known,
	}
}

func (e *evidence) riskInput(rec *models.Record) risk.Input {
	return risk.InputFor(rec, e.receipt, e.payment)
}

// gatherEvidence loads the record's items, then fetches fingerprint
// bindings and the merchant verdict in parallel.
func (s *Service) gatherEvidence(ctx context.Context, rec *models.Record) (*evidence, error) {
	ctx, cancel := context.WithTimeout(ctx, evidenceTimeout)
	defer cancel()

	ev := &evidence{}
	g, gctx := errgroup.WithContext(ctx)
	if rec.ReceiptID != nil {
		g.Go(func() error {
			r, err := s.store.GetReceipt(gctx, *rec.ReceiptID)
			if err != nil {
				return err
			}
			ev.receipt = r
			return nil
		})
	}
	if rec.PaymentID != nil {
		g.Go(func() error {
			p, err := s.store.GetPayment(gctx, *rec.PaymentID)
			if err != nil {
				return err
			}
			ev.payment = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	if ev.receipt != nil && ev.receipt.Fingerprint != "" {
		g.Go(func() error {
			lookback := s.cfg.DuplicateLookback()
			bindings, err := s.store.ListReceiptBindings(gctx, rec.TenantID, ev.receipt.Fingerprint,
				ev.receipt.IssuedAt.Add(-lookback), ev.receipt.IssuedAt.Add(lookback))
			if err != nil {
				return err
			}
			ev.bindings = bindings
			return nil
		})
	}
	if ev.payment != nil {
		g.Go(func() error {
			ev.known = s.verifyMerchant(gctx, ev.payment)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ev, nil
}

// verifyMerchant returns nil when the rule does not apply: cash payments,
// no configured allow-list, or an allow-list that could not be reached.
func (s *Service) verifyMerchant(ctx context.Context, p *models.PaymentEvent) *bool {
	if !p.Method.UsesMerchantChannel() || s.merchants == nil {
		return nil
	}
	known := false
	if p.ChannelRef == "" {
		return &known
	}
	ok, err := s.merchants.IsKnownMerchant(ctx, p.TenantID, p.ChannelRef)
	if err != nil {
		s.logger.WarnContext(ctx, "merchant allow-list unavailable, skipping merchant check",
			"tenant_id", p.TenantID,
			"payment_id", p.ID,
			"error", err,
		)
		return nil
	}
	known = ok
	return &known
}
