package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
	txcontext "tally/pkg/platform/tx"
)

// Schema creates the ledger tables. It is idempotent.
//
//go:embed schema.sql
var Schema string

const pgUniqueViolation = "23505"

type querier = txcontext.Querier

// PostgresStore persists the ledger in PostgreSQL. Writes that span several
// rows run in one transaction; a transaction already carried by the context
// is joined instead.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	return txcontext.Conn(ctx, s.db)
}

const receiptColumns = `id, tenant_id, waiter_id, external_id, amount, issued_at, raw_source, fingerprint, record_id, created_at`

func (s *PostgresStore) PutReceipt(ctx context.Context, r *models.Receipt) (*models.Receipt, bool, error) {
	query := `
		INSERT INTO receipts (id, tenant_id, waiter_id, external_id, amount, issued_at, raw_source, fingerprint, record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)
		ON CONFLICT (tenant_id, external_id) DO NOTHING
		RETURNING ` + receiptColumns
	stored, err := scanReceipt(s.conn(ctx).QueryRowContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.TenantID), uuid.UUID(r.WaiterID), r.ExternalID,
		r.Amount, r.IssuedAt, r.RawSource, r.Fingerprint, r.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if isUniqueViolation(err) {
		return nil, false, sentinel.ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("put receipt: %w", err)
	}
	existing, err := scanReceipt(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE tenant_id = $1 AND external_id = $2`,
		uuid.UUID(r.TenantID), r.ExternalID,
	))
	if err != nil {
		return nil, false, fmt.Errorf("load existing receipt: %w", err)
	}
	return existing, false, nil
}

const paymentColumns = `id, tenant_id, external_id, amount, tip, method, occurred_at, channel_ref, record_id, created_at`

func (s *PostgresStore) PutPayment(ctx context.Context, p *models.PaymentEvent) (*models.PaymentEvent, bool, error) {
	query := `
		INSERT INTO payments (id, tenant_id, external_id, amount, tip, method, occurred_at, channel_ref, record_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)
		ON CONFLICT (tenant_id, external_id) DO NOTHING
		RETURNING ` + paymentColumns
	stored, err := scanPayment(s.conn(ctx).QueryRowContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.TenantID), p.ExternalID,
		p.Amount, p.Tip, string(p.Method), p.OccurredAt, p.ChannelRef, p.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if isUniqueViolation(err) {
		return nil, false, sentinel.ErrConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("put payment: %w", err)
	}
	existing, err := scanPayment(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = $1 AND external_id = $2`,
		uuid.UUID(p.TenantID), p.ExternalID,
	))
	if err != nil {
		return nil, false, fmt.Errorf("load existing payment: %w", err)
	}
	return existing, false, nil
}

func (s *PostgresStore) GetReceipt(ctx context.Context, receiptID id.ReceiptID) (*models.Receipt, error) {
	r, err := scanReceipt(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, uuid.UUID(receiptID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) GetPayment(ctx context.Context, paymentID id.PaymentID) (*models.PaymentEvent, error) {
	p, err := scanPayment(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, uuid.UUID(paymentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

const recordColumns = `id, tenant_id, receipt_id, payment_id, status, risk_score, ambiguous, superseded_by, version, seq, created_at, updated_at, resolved_at`

func (s *PostgresStore) GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	rec, err := scanRecord(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, uuid.UUID(recordID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindRecordByItem(ctx context.Context, item models.Item) (*models.Record, error) {
	var query string
	switch item.Kind {
	case models.KindReceipt:
		query = `SELECT ` + prefixed("r", recordColumns) + ` FROM receipts x JOIN records r ON r.id = x.record_id WHERE x.id = $1`
	case models.KindPayment:
		query = `SELECT ` + prefixed("r", recordColumns) + ` FROM payments x JOIN records r ON r.id = x.record_id WHERE x.id = $1`
	default:
		return nil, sentinel.ErrNotFound
	}
	rec, err := scanRecord(s.conn(ctx).QueryRowContext(ctx, query, item.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record by item: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListPendingCandidates(ctx context.Context, tenantID id.TenantID, kind models.ItemKind, from, to time.Time) ([]models.Item, error) {
	var query string
	switch kind {
	case models.KindReceipt:
		query = `
			SELECT x.id, x.amount, x.issued_at, r.id
			FROM records r JOIN receipts x ON x.id = r.receipt_id
			WHERE r.tenant_id = $1 AND r.status = 'pending' AND r.payment_id IS NULL
			  AND x.issued_at BETWEEN $2 AND $3
			ORDER BY x.id`
	case models.KindPayment:
		query = `
			SELECT x.id, x.amount, x.occurred_at, r.id
			FROM records r JOIN payments x ON x.id = r.payment_id
			WHERE r.tenant_id = $1 AND r.status = 'pending' AND r.receipt_id IS NULL
			  AND x.occurred_at BETWEEN $2 AND $3
			ORDER BY x.id`
	default:
		return nil, nil
	}
	rows, err := s.conn(ctx).QueryContext(ctx, query, uuid.UUID(tenantID), from, to)
	if err != nil {
		return nil, fmt.Errorf("list pending candidates: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var itemID, recordID uuid.UUID
		item := models.Item{Kind: kind, TenantID: tenantID}
		if err := rows.Scan(&itemID, &item.Amount, &item.At, &recordID); err != nil {
			return nil, fmt.Errorf("scan pending candidate: %w", err)
		}
		item.ID = itemID
		item.RecordID = id.RecordID(recordID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending candidates: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListPending(ctx context.Context, tenantID id.TenantID, olderThan time.Time) ([]*models.Record, error) {
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE tenant_id = $1 AND status = 'pending' AND created_at <= $2
		ORDER BY created_at, id`, uuid.UUID(tenantID), olderThan)
}

func (s *PostgresStore) TenantsWithPending(ctx context.Context) ([]id.TenantID, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT DISTINCT tenant_id FROM records WHERE status = 'pending' ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants with pending records: %w", err)
	}
	defer rows.Close()

	var out []id.TenantID
	for rows.Next() {
		var t uuid.UUID
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		out = append(out, id.TenantID(t))
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListRecordsByStatus(ctx context.Context, tenantID id.TenantID, statuses ...models.Status) ([]*models.Record, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}
	return s.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM records
		WHERE tenant_id = $1 AND status = ANY($2)
		ORDER BY created_at, id`, uuid.UUID(tenantID), pq.Array(names))
}

func (s *PostgresStore) queryRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

const discrepancyColumns = `id, tenant_id, record_id, type, severity, description, detected_at`

func (s *PostgresStore) ListDiscrepancies(ctx context.Context, tenantID id.TenantID, since time.Time) ([]*models.Discrepancy, error) {
	return s.queryDiscrepancies(ctx, `
		SELECT `+discrepancyColumns+` FROM discrepancies
		WHERE tenant_id = $1 AND detected_at >= $2
		ORDER BY detected_at, seq`, uuid.UUID(tenantID), since)
}

func (s *PostgresStore) ListRecordDiscrepancies(ctx context.Context, recordID id.RecordID) ([]*models.Discrepancy, error) {
	return s.queryDiscrepancies(ctx, `
		SELECT `+discrepancyColumns+` FROM discrepancies
		WHERE record_id = $1
		ORDER BY seq`, uuid.UUID(recordID))
}

func (s *PostgresStore) queryDiscrepancies(ctx context.Context, query string, args ...any) ([]*models.Discrepancy, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query discrepancies: %w", err)
	}
	defer rows.Close()

	var out []*models.Discrepancy
	for rows.Next() {
		var d models.Discrepancy
		var discID, tenantID, recordID uuid.UUID
		var typ, severity string
		if err := rows.Scan(&discID, &tenantID, &recordID, &typ, &severity, &d.Description, &d.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		d.ID = id.DiscrepancyID(discID)
		d.TenantID = id.TenantID(tenantID)
		d.ReconciliationID = id.RecordID(recordID)
		d.Type = models.DiscrepancyType(typ)
		d.Severity = models.Severity(severity)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discrepancies: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DiscrepancyCounts(ctx context.Context, tenantID id.TenantID, since time.Time) (map[models.DiscrepancyType]int, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT d.type, COUNT(*)
		FROM discrepancies d JOIN records r ON r.id = d.record_id
		WHERE d.tenant_id = $1 AND d.detected_at >= $2 AND r.superseded_by IS NULL
		GROUP BY d.type`, uuid.UUID(tenantID), since)
	if err != nil {
		return nil, fmt.Errorf("count discrepancies: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DiscrepancyType]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan discrepancy count: %w", err)
		}
		counts[models.DiscrepancyType(typ)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) ListReceiptBindings(ctx context.Context, tenantID id.TenantID, fingerprint string, from, to time.Time) ([]models.ReceiptBinding, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT x.id, r.id, r.status, x.issued_at
		FROM receipts x JOIN records r ON r.id = x.record_id
		WHERE x.tenant_id = $1 AND x.fingerprint = $2 AND x.issued_at BETWEEN $3 AND $4
		ORDER BY x.issued_at`, uuid.UUID(tenantID), fingerprint, from, to)
	if err != nil {
		return nil, fmt.Errorf("list receipt bindings: %w", err)
	}
	defer rows.Close()

	var out []models.ReceiptBinding
	for rows.Next() {
		var receiptID, recordID uuid.UUID
		var status string
		var b models.ReceiptBinding
		if err := rows.Scan(&receiptID, &recordID, &status, &b.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan receipt binding: %w", err)
		}
		b.ReceiptID = id.ReceiptID(receiptID)
		b.RecordID = id.RecordID(recordID)
		b.RecordStatus = models.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateRecord(ctx context.Context, rec *models.Record) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Create: []*models.Record{rec}})
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, rec *models.Record) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Update: []*models.Record{rec}})
}

func (s *PostgresStore) AddDiscrepancies(ctx context.Context, discrepancies ...*models.Discrepancy) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Discrepancies: discrepancies})
}

// ApplyChangeset writes the changeset in one transaction. Updates that
// retire a record run first so the live-item unique indexes never see an
// item held twice mid-transaction.
func (s *PostgresStore) ApplyChangeset(ctx context.Context, cs *models.Changeset) error {
	if cs == nil || cs.IsEmpty() {
		return nil
	}
	updates := append([]*models.Record(nil), cs.Update...)
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Status == models.StatusExpired && updates[j].Status != models.StatusExpired
	})

	return txcontext.Run(ctx, s.db, func(ctx context.Context, q querier) error {
		for _, rec := range updates {
			if err := s.updateRecord(ctx, q, rec); err != nil {
				return err
			}
		}
		for _, rec := range cs.Create {
			if err := s.insertRecord(ctx, q, rec); err != nil {
				return err
			}
		}
		for receiptID, recordID := range cs.ReceiptLinks {
			if err := link(ctx, q, `UPDATE receipts SET record_id = $2 WHERE id = $1`, uuid.UUID(receiptID), recordID); err != nil {
				return err
			}
		}
		for paymentID, recordID := range cs.PaymentLinks {
			if err := link(ctx, q, `UPDATE payments SET record_id = $2 WHERE id = $1`, uuid.UUID(paymentID), recordID); err != nil {
				return err
			}
		}
		for _, d := range cs.Discrepancies {
			_, err := q.ExecContext(ctx, `
				INSERT INTO discrepancies (`+discrepancyColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.UUID(d.ID), uuid.UUID(d.TenantID), uuid.UUID(d.ReconciliationID),
				string(d.Type), string(d.Severity), d.Description, d.DetectedAt,
			)
			if err != nil {
				return translateWriteErr("insert discrepancy", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) updateRecord(ctx context.Context, q querier, rec *models.Record) error {
	row := q.QueryRowContext(ctx, `
		UPDATE records SET
			receipt_id = $2, payment_id = $3, status = $4, risk_score = $5, ambiguous = $6,
			superseded_by = $7, updated_at = $8, resolved_at = $9,
			version = version + 1, seq = nextval('ledger_seq')
		WHERE id = $1 AND version = $10 AND status <> 'expired'
		RETURNING version, seq`,
		uuid.UUID(rec.ID), nullReceipt(rec.ReceiptID), nullPayment(rec.PaymentID), string(rec.Status),
		rec.RiskScore, rec.Ambiguous, nullRecord(rec.SupersededBy), rec.UpdatedAt, rec.ResolvedAt,
		rec.Version,
	)
	var version, seq int64
	err := row.Scan(&version, &seq)
	if err == nil {
		rec.Version, rec.Seq = version, seq
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return translateWriteErr("update record", err)
	}
	var status string
	if err := q.QueryRowContext(ctx, `SELECT status FROM records WHERE id = $1`, uuid.UUID(rec.ID)).Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("inspect record after failed update: %w", err)
	}
	if models.Status(status) == models.StatusExpired {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) insertRecord(ctx context.Context, q querier, rec *models.Record) error {
	row := q.QueryRowContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, nextval('ledger_seq'), $9, $10, $11)
		RETURNING version, seq`,
		uuid.UUID(rec.ID), uuid.UUID(rec.TenantID), nullReceipt(rec.ReceiptID), nullPayment(rec.PaymentID),
		string(rec.Status), rec.RiskScore, rec.Ambiguous, nullRecord(rec.SupersededBy),
		rec.CreatedAt, rec.UpdatedAt, rec.ResolvedAt,
	)
	var version, seq int64
	if err := row.Scan(&version, &seq); err != nil {
		return translateWriteErr("insert record", err)
	}
	rec.Version, rec.Seq = version, seq
	return nil
}

func link(ctx context.Context, q querier, query string, itemID uuid.UUID, recordID id.RecordID) error {
	res, err := q.ExecContext(ctx, query, itemID, uuid.UUID(recordID))
	if err != nil {
		return translateWriteErr("link item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link item rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Snapshot reads the entries and the cutoff in one repeatable-read
// transaction so both describe the same ledger state.
func (s *PostgresStore) Snapshot(ctx context.Context, q models.SnapshotQuery) (models.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var snap models.Snapshot
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM records WHERE tenant_id = $1`,
		uuid.UUID(q.TenantID)).Scan(&snap.Cutoff); err != nil {
		return models.Snapshot{}, fmt.Errorf("read snapshot cutoff: %w", err)
	}

	var waiter uuid.NullUUID
	if q.WaiterID != nil {
		waiter = uuid.NullUUID{UUID: uuid.UUID(*q.WaiterID), Valid: true}
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT `+prefixed("r", recordColumns)+`,
			x.id, x.waiter_id, x.external_id, x.amount, x.issued_at, x.fingerprint,
			p.id, p.external_id, p.amount, p.tip, p.method, p.occurred_at, p.channel_ref
		FROM records r
		LEFT JOIN receipts x ON x.id = r.receipt_id
		LEFT JOIN payments p ON p.id = r.payment_id
		WHERE r.tenant_id = $1 AND r.superseded_by IS NULL
		  AND ($2::uuid IS NULL OR x.waiter_id = $2)
		  AND COALESCE(x.issued_at, p.occurred_at) >= $3
		  AND COALESCE(x.issued_at, p.occurred_at) < $4
		ORDER BY COALESCE(x.issued_at, p.occurred_at), r.id`,
		uuid.UUID(q.TenantID), waiter, q.From, q.To)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("scan snapshot entry: %w", err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("iterate snapshot: %w", err)
	}
	return snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*models.Receipt, error) {
	var r models.Receipt
	var receiptID, tenantID, waiterID uuid.UUID
	var recordID uuid.NullUUID
	if err := row.Scan(&receiptID, &tenantID, &waiterID, &r.ExternalID, &r.Amount, &r.IssuedAt,
		&r.RawSource, &r.Fingerprint, &recordID, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ID = id.ReceiptID(receiptID)
	r.TenantID = id.TenantID(tenantID)
	r.WaiterID = id.WaiterID(waiterID)
	r.MatchedWith = recordPtr(recordID)
	return &r, nil
}

func scanPayment(row rowScanner) (*models.PaymentEvent, error) {
	var p models.PaymentEvent
	var paymentID, tenantID uuid.UUID
	var recordID uuid.NullUUID
	var method string
	if err := row.Scan(&paymentID, &tenantID, &p.ExternalID, &p.Amount, &p.Tip, &method,
		&p.OccurredAt, &p.ChannelRef, &recordID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ID = id.PaymentID(paymentID)
	p.TenantID = id.TenantID(tenantID)
	p.Method = models.PaymentMethod(method)
	p.MatchedWith = recordPtr(recordID)
	return &p, nil
}

type recordRow struct {
	id, tenantID         uuid.UUID
	receiptID, paymentID uuid.NullUUID
	supersededBy         uuid.NullUUID
	status               string
	resolvedAt           sql.NullTime
}

func (row *recordRow) targets(rec *models.Record) []any {
	return []any{&row.id, &row.tenantID, &row.receiptID, &row.paymentID, &row.status, &rec.RiskScore,
		&rec.Ambiguous, &row.supersededBy, &rec.Version, &rec.Seq, &rec.CreatedAt, &rec.UpdatedAt, &row.resolvedAt}
}

func (row *recordRow) apply(rec *models.Record) {
	rec.ID = id.RecordID(row.id)
	rec.TenantID = id.TenantID(row.tenantID)
	rec.Status = models.Status(row.status)
	if row.receiptID.Valid {
		v := id.ReceiptID(row.receiptID.UUID)
		rec.ReceiptID = &v
	}
	if row.paymentID.Valid {
		v := id.PaymentID(row.paymentID.UUID)
		rec.PaymentID = &v
	}
	rec.SupersededBy = recordPtr(row.supersededBy)
	if row.resolvedAt.Valid {
		t := row.resolvedAt.Time
		rec.ResolvedAt = &t
	}
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var raw recordRow
	if err := row.Scan(raw.targets(&rec)...); err != nil {
		return nil, err
	}
	raw.apply(&rec)
	return &rec, nil
}

func scanLedgerEntry(row rowScanner) (models.LedgerEntry, error) {
	var rec models.Record
	var raw recordRow
	var (
		receiptID, waiterID, paymentID uuid.NullUUID
		receiptExt, fingerprint        sql.NullString
		paymentExt, method, channelRef sql.NullString
		receiptAmount, amount, tip     decimal.NullDecimal
		issuedAt, occurredAt           sql.NullTime
	)
	dest := append(raw.targets(&rec),
		&receiptID, &waiterID, &receiptExt, &receiptAmount, &issuedAt, &fingerprint,
		&paymentID, &paymentExt, &amount, &tip, &method, &occurredAt, &channelRef,
	)
	if err := row.Scan(dest...); err != nil {
		return models.LedgerEntry{}, err
	}
	raw.apply(&rec)

	entry := models.LedgerEntry{Record: &rec}
	if receiptID.Valid {
		entry.Receipt = &models.Receipt{
			ID:          id.ReceiptID(receiptID.UUID),
			TenantID:    rec.TenantID,
			WaiterID:    id.WaiterID(waiterID.UUID),
			ExternalID:  receiptExt.String,
			Amount:      receiptAmount.Decimal,
			IssuedAt:    issuedAt.Time,
			Fingerprint: fingerprint.String,
			MatchedWith: &rec.ID,
		}
	}
	if paymentID.Valid {
		entry.Payment = &models.PaymentEvent{
			ID:          id.PaymentID(paymentID.UUID),
			TenantID:    rec.TenantID,
			ExternalID:  paymentExt.String,
			Amount:      amount.Decimal,
			Tip:         tip.Decimal,
			Method:      models.PaymentMethod(method.String),
			OccurredAt:  occurredAt.Time,
			ChannelRef:  channelRef.String,
			MatchedWith: &rec.ID,
		}
	}
	return entry, nil
}

func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func recordPtr(v uuid.NullUUID) *id.RecordID {
	if !v.Valid {
		return nil
	}
	r := id.RecordID(v.UUID)
	return &r
}

func nullReceipt(v *id.ReceiptID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullPayment(v *id.PaymentID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullRecord(v *id.RecordID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func translateWriteErr(op string, err error) error {
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
