// Package tenant wires the tenant directory: tenants, their waiters and
// their sub-merchant allow-lists.
package tenant

import (
	"log/slog"

	"tally/internal/tenant/handler"
	"tally/internal/tenant/service"
)

// Service exposes tenant directory orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the tenant service.
type Handler = handler.Handler

// NewService constructs the tenant service over store.
func NewService(store service.Store, opts ...service.Option) (*Service, error) {
	return service.New(store, opts...)
}

// NewHandler constructs an HTTP handler for admin-facing tenant routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
