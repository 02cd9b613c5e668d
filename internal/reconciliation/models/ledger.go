package models

import (
	"time"

	id "tally/pkg/domain"
)

// ReceiptBinding is a prior receipt sharing a fingerprint, with the status
// of the record that owns it.
type ReceiptBinding struct {
	ReceiptID    id.ReceiptID
	RecordID     id.RecordID
	RecordStatus Status
	IssuedAt     time.Time
}

// LedgerEntry is a record joined with its bound items.
type LedgerEntry struct {
	Record  *Record
	Receipt *Receipt
	Payment *PaymentEvent
}

type SnapshotQuery struct {
	TenantID id.TenantID
	WaiterID *id.WaiterID
	From     time.Time
	To       time.Time
}

// Snapshot is a consistent read of the ledger. Cutoff is the highest ledger
// sequence number visible to the read.
type Snapshot struct {
	Entries []LedgerEntry
	Cutoff  int64
}

// Changeset is applied atomically by the store. Updates are checked against
// the Version the caller loaded.
type Changeset struct {
	Create        []*Record
	Update        []*Record
	Discrepancies []*Discrepancy
	ReceiptLinks  map[id.ReceiptID]id.RecordID
	PaymentLinks  map[id.PaymentID]id.RecordID
}

// Link records that item now belongs to recordID.
func (c *Changeset) Link(item Item, recordID id.RecordID) {
	switch item.Kind {
	case KindReceipt:
		if c.ReceiptLinks == nil {
			c.ReceiptLinks = make(map[id.ReceiptID]id.RecordID)
		}
		c.ReceiptLinks[id.ReceiptID(item.ID)] = recordID
	case KindPayment:
		if c.PaymentLinks == nil {
			c.PaymentLinks = make(map[id.PaymentID]id.RecordID)
		}
		c.PaymentLinks[id.PaymentID(item.ID)] = recordID
	}
}

func (c *Changeset) IsEmpty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Discrepancies) == 0 &&
		len(c.ReceiptLinks) == 0 && len(c.PaymentLinks) == 0
}

// DailyStat is matched revenue for one calendar day (UTC).
type DailyStat struct {
	Date         string `json:"date"`
	Revenue      string `json:"revenue"`
	Transactions int    `json:"transactions"`
}
