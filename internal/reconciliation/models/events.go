package models

import (
	"time"

	id "tally/pkg/domain"
)

type EventType string

const (
	EventRecordMatched       EventType = "record.matched"
	EventRecordFlagged       EventType = "record.flagged"
	EventRecordExpired       EventType = "record.expired"
	EventDiscrepancyDetected EventType = "discrepancy.detected"
)

// Event is published after a ledger change commits. Consumers key on RecordID.
type Event struct {
	Type        EventType    `json:"type"`
	TenantID    id.TenantID  `json:"tenant_id"`
	RecordID    id.RecordID  `json:"record_id"`
	Status      Status       `json:"status"`
	RiskScore   int          `json:"risk_score"`
	Discrepancy *Discrepancy `json:"discrepancy,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// EventsFor derives the outbound events for a committed record change.
func EventsFor(rec *Record, discrepancies []*Discrepancy, now time.Time) []Event {
	var events []Event
	base := Event{TenantID: rec.TenantID, RecordID: rec.ID, Status: rec.Status, RiskScore: rec.RiskScore, OccurredAt: now}
	switch rec.Status {
	case StatusMatched:
		e := base
		e.Type = EventRecordMatched
		events = append(events, e)
	case StatusFlagged:
		e := base
		e.Type = EventRecordFlagged
		events = append(events, e)
	case StatusExpired:
		e := base
		e.Type = EventRecordExpired
		events = append(events, e)
	}
	for _, d := range discrepancies {
		e := base
		e.Type = EventDiscrepancyDetected
		e.Discrepancy = d
		events = append(events, e)
	}
	return events
}
