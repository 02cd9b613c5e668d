// Package store persists the reconciliation ledger: receipts, payment
// events, records and discrepancies.
//
// Stores are pure I/O. State machine rules live on models.Record and the
// service; stores only enforce what must hold regardless of caller:
// idempotent ingest, optimistic versioning, and single ownership of an item
// by a non-expired record.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"tally/internal/reconciliation/models"
	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

type externalKey struct {
	tenant id.TenantID
	ext    string
}

// InMemoryStore keeps the ledger in process memory. All writes take the
// single mutex, so a Snapshot under the read lock is consistent.
type InMemoryStore struct {
	mu  sync.RWMutex
	seq int64

	receipts      map[id.ReceiptID]*models.Receipt
	receiptsByExt map[externalKey]id.ReceiptID
	payments      map[id.PaymentID]*models.PaymentEvent
	paymentsByExt map[externalKey]id.PaymentID

	records       map[id.RecordID]*models.Record
	receiptOwner  map[id.ReceiptID]id.RecordID
	paymentOwner  map[id.PaymentID]id.RecordID
	discrepancies []*models.Discrepancy
	byRecord      map[id.RecordID][]*models.Discrepancy
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		receipts:      make(map[id.ReceiptID]*models.Receipt),
		receiptsByExt: make(map[externalKey]id.ReceiptID),
		payments:      make(map[id.PaymentID]*models.PaymentEvent),
		paymentsByExt: make(map[externalKey]id.PaymentID),
		records:       make(map[id.RecordID]*models.Record),
		receiptOwner:  make(map[id.ReceiptID]id.RecordID),
		paymentOwner:  make(map[id.PaymentID]id.RecordID),
		byRecord:      make(map[id.RecordID][]*models.Discrepancy),
	}
}

// PutReceipt stores r unless a receipt with the same external id exists for
// the tenant, in which case the stored one is returned with created=false.
func (s *InMemoryStore) PutReceipt(_ context.Context, r *models.Receipt) (*models.Receipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := externalKey{tenant: r.TenantID, ext: r.ExternalID}
	if existing, ok := s.receiptsByExt[key]; ok {
		return cloneReceipt(s.receipts[existing]), false, nil
	}
	if _, ok := s.receipts[r.ID]; ok {
		return nil, false, sentinel.ErrConflict
	}
	stored := cloneReceipt(r)
	s.receipts[r.ID] = stored
	s.receiptsByExt[key] = r.ID
	s.seq++
	return cloneReceipt(stored), true, nil
}

func (s *InMemoryStore) PutPayment(_ context.Context, p *models.PaymentEvent) (*models.PaymentEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := externalKey{tenant: p.TenantID, ext: p.ExternalID}
	if existing, ok := s.paymentsByExt[key]; ok {
		return clonePayment(s.payments[existing]), false, nil
	}
	if _, ok := s.payments[p.ID]; ok {
		return nil, false, sentinel.ErrConflict
	}
	stored := clonePayment(p)
	s.payments[p.ID] = stored
	s.paymentsByExt[key] = p.ID
	s.seq++
	return clonePayment(stored), true, nil
}

func (s *InMemoryStore) GetReceipt(_ context.Context, receiptID id.ReceiptID) (*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[receiptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReceipt(r), nil
}

func (s *InMemoryStore) GetPayment(_ context.Context, paymentID id.PaymentID) (*models.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *InMemoryStore) GetRecord(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// FindRecordByItem follows the item's back-reference to the record that
// last owned it, expired or not.
func (s *InMemoryStore) FindRecordByItem(_ context.Context, item models.Item) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owner *id.RecordID
	switch item.Kind {
	case models.KindReceipt:
		if r, ok := s.receipts[id.ReceiptID(item.ID)]; ok {
			owner = r.MatchedWith
		}
	case models.KindPayment:
		if p, ok := s.payments[id.PaymentID(item.ID)]; ok {
			owner = p.MatchedWith
		}
	}
	if owner == nil {
		return nil, sentinel.ErrNotFound
	}
	rec, ok := s.records[*owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// ListPendingCandidates returns solo items of the given kind sitting on
// pending records whose timestamp falls in [from, to].
func (s *InMemoryStore) ListPendingCandidates(_ context.Context, tenantID id.TenantID, kind models.ItemKind, from, to time.Time) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.Item
	for _, rec := range s.records {
		if rec.TenantID != tenantID || rec.Status != models.StatusPending {
			continue
		}
		solo, ok := rec.SoloKind()
		if !ok || solo != kind {
			continue
		}
		item, ok := s.itemFor(rec)
		if !ok || item.At.Before(from) || item.At.After(to) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key() < items[j].Key() })
	return items, nil
}

func (s *InMemoryStore) itemFor(rec *models.Record) (models.Item, bool) {
	switch {
	case rec.ReceiptID != nil:
		r, ok := s.receipts[*rec.ReceiptID]
		if !ok {
			return models.Item{}, false
		}
		item := models.ReceiptItem(r)
		item.RecordID = rec.ID
		return item, true
	case rec.PaymentID != nil:
		p, ok := s.payments[*rec.PaymentID]
		if !ok {
			return models.Item{}, false
		}
		item := models.PaymentItem(p)
		item.RecordID = rec.ID
		return item, true
	}
	return models.Item{}, false
}

// ListPending returns pending records created at or before olderThan,
// oldest first.
func (s *InMemoryStore) ListPending(_ context.Context, tenantID id.TenantID, olderThan time.Time) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, rec := range s.records {
		if rec.TenantID == tenantID && rec.Status == models.StatusPending && !rec.CreatedAt.After(olderThan) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

// TenantsWithPending lists tenants that have at least one pending record.
func (s *InMemoryStore) TenantsWithPending(_ context.Context) ([]id.TenantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[id.TenantID]struct{})
	for _, rec := range s.records {
		if rec.Status == models.StatusPending {
			seen[rec.TenantID] = struct{}{}
		}
	}
	out := make([]id.TenantID, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// ListRecordsByStatus returns the tenant's records in any of the given
// statuses, oldest first.
func (s *InMemoryStore) ListRecordsByStatus(_ context.Context, tenantID id.TenantID, statuses ...models.Status) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, rec := range s.records {
		if rec.TenantID == tenantID && slices.Contains(statuses, rec.Status) {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *InMemoryStore) ListDiscrepancies(_ context.Context, tenantID id.TenantID, since time.Time) ([]*models.Discrepancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Discrepancy
	for _, d := range s.discrepancies {
		if d.TenantID == tenantID && !d.DetectedAt.Before(since) {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRecordDiscrepancies(_ context.Context, recordID id.RecordID) ([]*models.Discrepancy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Discrepancy, 0, len(s.byRecord[recordID]))
	for _, d := range s.byRecord[recordID] {
		c := *d
		out = append(out, &c)
	}
	return out, nil
}

// DiscrepancyCounts tallies discrepancies by type, skipping those attached
// to superseded records.
func (s *InMemoryStore) DiscrepancyCounts(_ context.Context, tenantID id.TenantID, since time.Time) (map[models.DiscrepancyType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.DiscrepancyType]int)
	for _, d := range s.discrepancies {
		if d.TenantID != tenantID || d.DetectedAt.Before(since) {
			continue
		}
		if rec, ok := s.records[d.ReconciliationID]; ok && rec.IsSuperseded() {
			continue
		}
		counts[d.Type]++
	}
	return counts, nil
}

// ListReceiptBindings returns receipts with the given fingerprint issued in
// [from, to] that are bound to a record.
func (s *InMemoryStore) ListReceiptBindings(_ context.Context, tenantID id.TenantID, fingerprint string, from, to time.Time) ([]models.ReceiptBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ReceiptBinding
	for _, r := range s.receipts {
		if r.TenantID != tenantID || r.Fingerprint != fingerprint || r.MatchedWith == nil {
			continue
		}
		if r.IssuedAt.Before(from) || r.IssuedAt.After(to) {
			continue
		}
		rec, ok := s.records[*r.MatchedWith]
		if !ok {
			continue
		}
		out = append(out, models.ReceiptBinding{
			ReceiptID:    r.ID,
			RecordID:     rec.ID,
			RecordStatus: rec.Status,
			IssuedAt:     r.IssuedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

// CreateRecord persists a single new record.
func (s *InMemoryStore) CreateRecord(ctx context.Context, rec *models.Record) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Create: []*models.Record{rec}})
}

// UpdateRecord persists rec if its Version still matches the stored one.
func (s *InMemoryStore) UpdateRecord(ctx context.Context, rec *models.Record) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Update: []*models.Record{rec}})
}

func (s *InMemoryStore) AddDiscrepancies(ctx context.Context, discrepancies ...*models.Discrepancy) error {
	return s.ApplyChangeset(ctx, &models.Changeset{Discrepancies: discrepancies})
}

// ApplyChangeset validates the whole changeset before mutating anything.
// On success the Version and Seq of every passed record reflect what was
// stored.
func (s *InMemoryStore) ApplyChangeset(_ context.Context, cs *models.Changeset) error {
	if cs == nil || cs.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[id.RecordID]*models.Record, len(cs.Create)+len(cs.Update))
	for _, rec := range cs.Update {
		cur, ok := s.records[rec.ID]
		if !ok {
			return sentinel.ErrNotFound
		}
		if cur.Version != rec.Version {
			return sentinel.ErrConflict
		}
		if cur.Status == models.StatusExpired {
			return sentinel.ErrInvalidState
		}
		next := rec.Clone()
		next.Version = cur.Version + 1
		staged[rec.ID] = next
	}
	for _, rec := range cs.Create {
		if _, ok := s.records[rec.ID]; ok {
			return sentinel.ErrConflict
		}
		if _, ok := staged[rec.ID]; ok {
			return sentinel.ErrConflict
		}
		next := rec.Clone()
		next.Version = 1
		staged[rec.ID] = next
	}
	if err := s.checkOwnership(staged); err != nil {
		return err
	}
	for receiptID := range cs.ReceiptLinks {
		if _, ok := s.receipts[receiptID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for paymentID := range cs.PaymentLinks {
		if _, ok := s.payments[paymentID]; !ok {
			return sentinel.ErrNotFound
		}
	}
	for _, d := range cs.Discrepancies {
		if _, ok := staged[d.ReconciliationID]; ok {
			continue
		}
		if _, ok := s.records[d.ReconciliationID]; !ok {
			return sentinel.ErrNotFound
		}
	}

	for _, next := range staged {
		s.seq++
		next.Seq = s.seq
		if prev, ok := s.records[next.ID]; ok {
			s.release(prev)
		}
		s.records[next.ID] = next
		s.claim(next)
	}
	for receiptID, recordID := range cs.ReceiptLinks {
		owner := recordID
		s.receipts[receiptID].MatchedWith = &owner
	}
	for paymentID, recordID := range cs.PaymentLinks {
		owner := recordID
		s.payments[paymentID].MatchedWith = &owner
	}
	for _, d := range cs.Discrepancies {
		c := *d
		s.seq++
		s.discrepancies = append(s.discrepancies, &c)
		s.byRecord[c.ReconciliationID] = append(s.byRecord[c.ReconciliationID], &c)
	}

	for _, rec := range cs.Update {
		rec.Version = staged[rec.ID].Version
		rec.Seq = staged[rec.ID].Seq
	}
	for _, rec := range cs.Create {
		rec.Version = staged[rec.ID].Version
		rec.Seq = staged[rec.ID].Seq
	}
	return nil
}

// checkOwnership rejects a changeset that would leave an item owned by two
// non-expired records. Must be called while holding s.mu.
func (s *InMemoryStore) checkOwnership(staged map[id.RecordID]*models.Record) error {
	receipts := make(map[id.ReceiptID]id.RecordID)
	payments := make(map[id.PaymentID]id.RecordID)
	for _, rec := range staged {
		if rec.Status == models.StatusExpired {
			continue
		}
		if rec.ReceiptID != nil {
			if other, dup := receipts[*rec.ReceiptID]; dup && other != rec.ID {
				return sentinel.ErrConflict
			}
			receipts[*rec.ReceiptID] = rec.ID
		}
		if rec.PaymentID != nil {
			if other, dup := payments[*rec.PaymentID]; dup && other != rec.ID {
				return sentinel.ErrConflict
			}
			payments[*rec.PaymentID] = rec.ID
		}
	}
	for receiptID, recordID := range receipts {
		if cur, ok := s.receiptOwner[receiptID]; ok && cur != recordID {
			if _, restaged := staged[cur]; !restaged {
				return sentinel.ErrConflict
			}
		}
	}
	for paymentID, recordID := range payments {
		if cur, ok := s.paymentOwner[paymentID]; ok && cur != recordID {
			if _, restaged := staged[cur]; !restaged {
				return sentinel.ErrConflict
			}
		}
	}
	return nil
}

func (s *InMemoryStore) release(rec *models.Record) {
	if rec.ReceiptID != nil && s.receiptOwner[*rec.ReceiptID] == rec.ID {
		delete(s.receiptOwner, *rec.ReceiptID)
	}
	if rec.PaymentID != nil && s.paymentOwner[*rec.PaymentID] == rec.ID {
		delete(s.paymentOwner, *rec.PaymentID)
	}
}

func (s *InMemoryStore) claim(rec *models.Record) {
	if rec.Status == models.StatusExpired {
		return
	}
	if rec.ReceiptID != nil {
		s.receiptOwner[*rec.ReceiptID] = rec.ID
	}
	if rec.PaymentID != nil {
		s.paymentOwner[*rec.PaymentID] = rec.ID
	}
}

// Snapshot returns every non-superseded record of the tenant whose anchor
// time lies in [From, To), joined with its items. The anchor is the receipt's
// IssuedAt, or the payment's OccurredAt for payment-only records. A waiter
// filter keeps only records carrying that waiter's receipt.
func (s *InMemoryStore) Snapshot(_ context.Context, q models.SnapshotQuery) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{Cutoff: s.seq}
	for _, rec := range s.records {
		if rec.TenantID != q.TenantID || rec.IsSuperseded() {
			continue
		}
		entry := models.LedgerEntry{Record: rec.Clone()}
		if rec.ReceiptID != nil {
			entry.Receipt = cloneReceipt(s.receipts[*rec.ReceiptID])
		}
		if rec.PaymentID != nil {
			entry.Payment = clonePayment(s.payments[*rec.PaymentID])
		}
		if !inSnapshot(entry, q) {
			continue
		}
		snap.Entries = append(snap.Entries, entry)
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		return anchor(snap.Entries[i]).Before(anchor(snap.Entries[j]))
	})
	return snap, nil
}

func inSnapshot(e models.LedgerEntry, q models.SnapshotQuery) bool {
	if q.WaiterID != nil && (e.Receipt == nil || e.Receipt.WaiterID != *q.WaiterID) {
		return false
	}
	at := anchor(e)
	if at.IsZero() {
		return false
	}
	return !at.Before(q.From) && at.Before(q.To)
}

func anchor(e models.LedgerEntry) time.Time {
	switch {
	case e.Receipt != nil:
		return e.Receipt.IssuedAt
	case e.Payment != nil:
		return e.Payment.OccurredAt
	}
	return time.Time{}
}

func sortRecords(recs []*models.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}

func cloneReceipt(r *models.Receipt) *models.Receipt {
	if r == nil {
		return nil
	}
	c := *r
	if r.MatchedWith != nil {
		v := *r.MatchedWith
		c.MatchedWith = &v
	}
	return &c
}

func clonePayment(p *models.PaymentEvent) *models.PaymentEvent {
	if p == nil {
		return nil
	}
	c := *p
	if p.MatchedWith != nil {
		v := *p.MatchedWith
		c.MatchedWith = &v
	}
	return &c
}
