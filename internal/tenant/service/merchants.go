package service

import (
	"context"
	"errors"
	"strings"

	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

const (
	sourceCache = "cache"
	sourceStore = "store"
)

// AddMerchant registers a channel ref on the tenant's allow-list. The store
// is the source of truth; a cache write failure is logged, not returned.
func (s *Service) AddMerchant(ctx context.Context, tenantID id.TenantID, channelRef, label string) (*models.Merchant, error) {
	if err := s.CheckTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	m, err := models.NewMerchant(id.NewMerchantID(), tenantID, channelRef, label, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.AddMerchant(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "channel ref is already registered")
		}
		return nil, wrapErr(err, dErrors.CodeUnknownTenant, "tenant does not exist")
	}
	s.remember(ctx, tenantID, m.ChannelRef)
	s.metrics.IncrementMerchantAdded()
	s.logAudit(ctx, "merchant_added",
		"tenant_id", tenantID,
		"merchant_id", m.ID,
		"channel_ref", m.ChannelRef,
	)
	return m, nil
}

func (s *Service) ListMerchants(ctx context.Context, tenantID id.TenantID) ([]*models.Merchant, error) {
	if err := s.CheckTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	merchants, err := s.store.ListMerchants(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list merchants")
	}
	return merchants, nil
}

// IsKnownMerchant answers from the cache when it holds the ref and from the
// store otherwise. A cache outage degrades to store lookups.
func (s *Service) IsKnownMerchant(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error) {
	channelRef = strings.TrimSpace(channelRef)
	if channelRef == "" {
		return false, nil
	}
	if s.cache != nil {
		hit, err := s.cache.Contains(ctx, tenantID, channelRef)
		if err != nil {
			s.logger.WarnContext(ctx, "merchant cache unavailable, using store",
				"tenant_id", tenantID,
				"error", err,
			)
		} else if hit {
			s.metrics.IncrementMerchantLookup(sourceCache, true)
			return true, nil
		}
	}

	known, err := s.store.HasMerchant(ctx, tenantID, channelRef)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "merchant allow-list unavailable")
	}
	s.metrics.IncrementMerchantLookup(sourceStore, known)
	if known {
		s.remember(ctx, tenantID, channelRef)
	}
	return known, nil
}

func (s *Service) remember(ctx context.Context, tenantID id.TenantID, channelRef string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Add(ctx, tenantID, channelRef); err != nil {
		s.logger.WarnContext(ctx, "failed to cache merchant",
			"tenant_id", tenantID,
			"channel_ref", channelRef,
			"error", err,
		)
	}
}
