package service

import (
	"context"
	"time"

	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
)

// Store is the ledger. Implementations: store.InMemoryStore, store.PostgresStore.
type Store interface {
	PutReceipt(ctx context.Context, r *models.Receipt) (*models.Receipt, bool, error)
	PutPayment(ctx context.Context, p *models.PaymentEvent) (*models.PaymentEvent, bool, error)
	GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*models.Receipt, error)
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.PaymentEvent, error)
	GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	FindRecordByItem(ctx context.Context, item models.Item) (*models.Record, error)
	ListPendingCandidates(ctx context.Context, tenantID id.TenantID, kind models.ItemKind, from, to time.Time) ([]models.Item, error)
	ListPending(ctx context.Context, tenantID id.TenantID, olderThan time.Time) ([]*models.Record, error)
	TenantsWithPending(ctx context.Context) ([]id.TenantID, error)
	ListRecordsByStatus(ctx context.Context, tenantID id.TenantID, statuses ...models.Status) ([]*models.Record, error)
	ListDiscrepancies(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Discrepancy, error)
	ListRecordDiscrepancies(ctx context.Context, recordID id.RecordID) ([]*models.Discrepancy, error)
	DiscrepancyCounts(ctx context.Context, tenantID id.TenantID, since time.Time) (map[models.DiscrepancyType]int, error)
	ListReceiptBindings(ctx context.Context, tenantID id.TenantID, fingerprint string, from, to time.Time) ([]models.ReceiptBinding, error)
	ApplyChangeset(ctx context.Context, cs *models.Changeset) error
	Snapshot(ctx context.Context, q models.SnapshotQuery) (models.Snapshot, error)
}

// Locker grants single-writer access to a key until unlock is called.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Directory answers whether a tenant or waiter exists. Errors carry
// CodeUnknownTenant / CodeUnknownWaiter.
type Directory interface {
	CheckTenant(ctx context.Context, tenantID id.TenantID) error
	CheckWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) error
}

// MerchantVerifier is the tenant's sub-merchant allow-list.
type MerchantVerifier interface {
	IsKnownMerchant(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, events []models.Event) error
}
