package service

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Roster,Ledger

import (
	"context"
	"time"

	recon "tally/internal/reconciliation/models"
	"tally/internal/shift/models"
	id "tally/pkg/domain"
)

type Store interface {
	Create(ctx context.Context, sh *models.Shift) error
	Get(ctx context.Context, shiftID id.ShiftID) (*models.Shift, error)
	FindOpen(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error)
	Close(ctx context.Context, sh *models.Shift) error
	ListByWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) ([]*models.Shift, error)
}

// Roster is the tenant directory's view of waiters.
type Roster interface {
	CheckWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) error
	SetActiveShift(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, shiftID *id.ShiftID) error
}

// Ledger folds reconciled records into totals.
type Ledger interface {
	Summarize(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID, from, to time.Time) (*models.Summary, error)
	DailyStats(ctx context.Context, tenantID id.TenantID, from, to time.Time) ([]recon.DailyStat, error)
}
