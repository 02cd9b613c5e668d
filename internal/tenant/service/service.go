// Package service owns the tenant directory: who the tenants are, which
// waiters work for them and which sub-merchant references they accept.
// The reconciliation engine consults it through CheckTenant, CheckWaiter
// and IsKnownMerchant.
package service

import (
	"context"
	"errors"
	"log/slog"

	"tally/internal/tenant/metrics"
	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	dErrors "tally/pkg/domain-errors"
	"tally/pkg/platform/sentinel"
	"tally/pkg/requestcontext"
)

type Store interface {
	CreateTenant(ctx context.Context, t *models.Tenant) error
	FindTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	CreateWaiter(ctx context.Context, w *models.Waiter) error
	FindWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Waiter, error)
	ListWaiters(ctx context.Context, tenantID id.TenantID) ([]*models.Waiter, error)
	SetActiveShift(ctx context.Context, w *models.Waiter) error
	AddMerchant(ctx context.Context, m *models.Merchant) error
	HasMerchant(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error)
	ListMerchants(ctx context.Context, tenantID id.TenantID) ([]*models.Merchant, error)
}

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks MerchantCache

// MerchantCache holds known channel refs only; a miss is not an answer.
type MerchantCache interface {
	Add(ctx context.Context, tenantID id.TenantID, channelRefs ...string) error
	Contains(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error)
}

type Service struct {
	store   Store
	cache   MerchantCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMerchantCache(c MerchantCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("tenant store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) CreateTenant(ctx context.Context, name string) (*models.Tenant, error) {
	t, err := models.NewTenant(id.NewTenantID(), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "tenant name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}
	s.metrics.IncrementTenantCreated()
	s.logAudit(ctx, "tenant_created", "tenant_id", t.ID)
	return t, nil
}

func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	t, err := s.store.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, wrapErr(err, dErrors.CodeNotFound, "tenant not found")
	}
	return t, nil
}

func (s *Service) CreateWaiter(ctx context.Context, tenantID id.TenantID, name string) (*models.Waiter, error) {
	if err := s.CheckTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	w, err := models.NewWaiter(id.NewWaiterID(), tenantID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, asValidation(err)
	}
	if err := s.store.CreateWaiter(ctx, w); err != nil {
		return nil, wrapErr(err, dErrors.CodeUnknownTenant, "tenant does not exist")
	}
	s.metrics.IncrementWaiterCreated()
	s.logAudit(ctx, "waiter_created", "tenant_id", tenantID, "waiter_id", w.ID)
	return w, nil
}

func (s *Service) GetWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Waiter, error) {
	if err := s.CheckTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	w, err := s.store.FindWaiter(ctx, tenantID, waiterID)
	if err != nil {
		return nil, wrapErr(err, dErrors.CodeUnknownWaiter, "waiter does not exist")
	}
	return w, nil
}

func (s *Service) ListWaiters(ctx context.Context, tenantID id.TenantID) ([]*models.Waiter, error) {
	if err := s.CheckTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	waiters, err := s.store.ListWaiters(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list waiters")
	}
	return waiters, nil
}

// SetActiveShift points the waiter at shiftID, or clears it when nil.
func (s *Service) SetActiveShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, shiftID *id.ShiftID) error {
	w, err := s.GetWaiter(ctx, tenantID, waiterID)
	if err != nil {
		return err
	}
	w.ActiveShift = shiftID
	w.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.SetActiveShift(ctx, w); err != nil {
		return wrapErr(err, dErrors.CodeUnknownWaiter, "waiter does not exist")
	}
	return nil
}

// CheckTenant fails with CodeUnknownTenant for a tenant that was never
// created.
func (s *Service) CheckTenant(ctx context.Context, tenantID id.TenantID) error {
	if _, err := s.store.FindTenant(ctx, tenantID); err != nil {
		return wrapErr(err, dErrors.CodeUnknownTenant, "tenant does not exist")
	}
	return nil
}

// CheckWaiter fails with CodeUnknownWaiter unless the waiter belongs to the
// tenant.
func (s *Service) CheckWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) error {
	if _, err := s.store.FindWaiter(ctx, tenantID, waiterID); err != nil {
		return wrapErr(err, dErrors.CodeUnknownWaiter, "waiter does not exist")
	}
	return nil
}

func wrapErr(err error, notFound dErrors.Code, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(notFound, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "tenant directory lookup failed")
}

// asValidation reports model invariant failures as request validation errors.
func asValidation(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
