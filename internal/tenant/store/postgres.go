package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tally/internal/tenant/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

// Schema creates the directory tables. It is idempotent.
//
//go:embed schema.sql
var Schema string

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore persists the directory in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		uuid.UUID(t.ID), t.Name, t.CreatedAt,
	)
	if err != nil {
		return translate(err, "create tenant")
	}
	return nil
}

func (s *PostgresStore) FindTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	var (
		t   models.Tenant
		tid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, uuid.UUID(tenantID),
	).Scan(&tid, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	t.ID = id.TenantID(tid)
	return &t, nil
}

func (s *PostgresStore) CreateWaiter(ctx context.Context, w *models.Waiter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO waiters (id, tenant_id, name, active_shift, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(w.ID), uuid.UUID(w.TenantID), w.Name, nullShift(w.ActiveShift), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return translate(err, "create waiter")
	}
	return nil
}

const waiterColumns = `id, tenant_id, name, active_shift, created_at, updated_at`

func (s *PostgresStore) FindWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Waiter, error) {
	w, err := scanWaiter(s.db.QueryRowContext(ctx,
		`SELECT `+waiterColumns+` FROM waiters WHERE id = $1 AND tenant_id = $2`,
		uuid.UUID(waiterID), uuid.UUID(tenantID),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find waiter: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) ListWaiters(ctx context.Context, tenantID id.TenantID) ([]*models.Waiter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+waiterColumns+` FROM waiters WHERE tenant_id = $1 ORDER BY created_at, name`,
		uuid.UUID(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("list waiters: %w", err)
	}
	defer rows.Close()

	var out []*models.Waiter
	for rows.Next() {
		w, err := scanWaiter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waiter: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetActiveShift(ctx context.Context, w *models.Waiter) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE waiters SET active_shift = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		nullShift(w.ActiveShift), w.UpdatedAt, uuid.UUID(w.ID), uuid.UUID(w.TenantID),
	)
	if err != nil {
		return fmt.Errorf("set active shift: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddMerchant(ctx context.Context, m *models.Merchant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, tenant_id, channel_ref, label, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(m.ID), uuid.UUID(m.TenantID), m.ChannelRef, m.Label, m.CreatedAt,
	)
	if err != nil {
		return translate(err, "add merchant")
	}
	return nil
}

func (s *PostgresStore) HasMerchant(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM merchants WHERE tenant_id = $1 AND channel_ref = $2)`,
		uuid.UUID(tenantID), channelRef,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check merchant: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListMerchants(ctx context.Context, tenantID id.TenantID) ([]*models.Merchant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, channel_ref, label, created_at
		FROM merchants WHERE tenant_id = $1 ORDER BY channel_ref`,
		uuid.UUID(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	out := []*models.Merchant{}
	for rows.Next() {
		var (
			m        models.Merchant
			mid, tid uuid.UUID
		)
		if err := rows.Scan(&mid, &tid, &m.ChannelRef, &m.Label, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan merchant: %w", err)
		}
		m.ID = id.MerchantID(mid)
		m.TenantID = id.TenantID(tid)
		out = append(out, &m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWaiter(row rowScanner) (*models.Waiter, error) {
	var (
		w        models.Waiter
		wid, tid uuid.UUID
		shift    uuid.NullUUID
	)
	if err := row.Scan(&wid, &tid, &w.Name, &shift, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.ID = id.WaiterID(wid)
	w.TenantID = id.TenantID(tid)
	if shift.Valid {
		sid := id.ShiftID(shift.UUID)
		w.ActiveShift = &sid
	}
	return &w, nil
}

func nullShift(s *id.ShiftID) uuid.NullUUID {
	if s == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*s), Valid: true}
}

// translate maps key violations onto sentinels: a duplicate is a conflict
// and a missing parent tenant is not found.
func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return sentinel.ErrConflict
		case pgForeignKeyViolation:
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
