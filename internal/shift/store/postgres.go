package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tally/internal/shift/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
	"tally/pkg/platform/tx"
)

// Schema creates the shifts table. It is idempotent.
//
//go:embed schema.sql
var Schema string

const pgUniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const shiftColumns = `id, tenant_id, waiter_id, status, opened_at, closed_at, summary`

func (s *PostgresStore) Create(ctx context.Context, sh *models.Shift) error {
	summary, err := encodeSummary(sh.Summary)
	if err != nil {
		return err
	}
	_, err = tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(sh.ID), uuid.UUID(sh.TenantID), uuid.UUID(sh.WaiterID), string(sh.Status),
		sh.OpenedAt, sh.ClosedAt, summary,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, shiftID id.ShiftID) (*models.Shift, error) {
	sh, err := scanShift(tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, uuid.UUID(shiftID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shift: %w", err)
	}
	return sh, nil
}

func (s *PostgresStore) FindOpen(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) (*models.Shift, error) {
	sh, err := scanShift(tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE tenant_id = $1 AND waiter_id = $2 AND status = 'open'`,
		uuid.UUID(tenantID), uuid.UUID(waiterID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open shift: %w", err)
	}
	return sh, nil
}

func (s *PostgresStore) Close(ctx context.Context, sh *models.Shift) error {
	summary, err := encodeSummary(sh.Summary)
	if err != nil {
		return err
	}
	return tx.Run(ctx, s.db, func(ctx context.Context, q tx.Querier) error {
		res, err := q.ExecContext(ctx, `
			UPDATE shifts SET status = $1, closed_at = $2, summary = $3
			WHERE id = $4 AND status = 'open'`,
			string(sh.Status), sh.ClosedAt, summary, uuid.UUID(sh.ID),
		)
		if err != nil {
			return fmt.Errorf("close shift: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("close shift: %w", err)
		}
		if n == 0 {
			// Either the shift does not exist or a concurrent close won.
			if _, err := s.Get(ctx, sh.ID); err != nil {
				return err
			}
			return sentinel.ErrInvalidState
		}
		return nil
	})
}

func (s *PostgresStore) ListByWaiter(ctx context.Context, tenantID id.TenantID, waiterID id.WaiterID) ([]*models.Shift, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE tenant_id = $1 AND waiter_id = $2 ORDER BY opened_at DESC`,
		uuid.UUID(tenantID), uuid.UUID(waiterID))
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	out := []*models.Shift{}
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*models.Shift, error) {
	var (
		sh            models.Shift
		sid, tid, wid uuid.UUID
		status        string
		closedAt      sql.NullTime
		summary       []byte
	)
	if err := row.Scan(&sid, &tid, &wid, &status, &sh.OpenedAt, &closedAt, &summary); err != nil {
		return nil, err
	}
	sh.ID = id.ShiftID(sid)
	sh.TenantID = id.TenantID(tid)
	sh.WaiterID = id.WaiterID(wid)
	sh.Status = models.Status(status)
	if closedAt.Valid {
		t := closedAt.Time
		sh.ClosedAt = &t
	}
	if len(summary) > 0 {
		var sum models.Summary
		if err := json.Unmarshal(summary, &sum); err != nil {
			return nil, fmt.Errorf("decode shift summary: %w", err)
		}
		sh.Summary = &sum
	}
	return &sh, nil
}

// encodeSummary returns nil for an open shift so the column stays NULL.
func encodeSummary(sum *models.Summary) (any, error) {
	if sum == nil {
		return nil, nil
	}
	b, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("encode shift summary: %w", err)
	}
	return string(b), nil
}
