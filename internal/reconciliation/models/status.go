package models

import (
	dErrors "tally/pkg/domain-errors"
)

// Status is the lifecycle state of a ReconciliationRecord.
//
//	pending -> matched | flagged | expired
//	matched -> flagged
//	flagged -> flagged
//
// Expired is terminal. Flagged only moves to Flagged again (an additional
// discrepancy); resolving it happens outside this service.
type Status string

const (
	StatusPending Status = "pending"
	StatusMatched Status = "matched"
	StatusFlagged Status = "flagged"
	StatusExpired Status = "expired"
)

var validTransitions = map[Status][]Status{
	StatusPending: {StatusMatched, StatusFlagged, StatusExpired},
	StatusMatched: {StatusFlagged},
	StatusFlagged: {StatusFlagged},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusFlagged, StatusExpired:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusExpired
}

// IsSettled reports whether the record has left Pending.
func (s Status) IsSettled() bool {
	return s != StatusPending
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of pending, matched, flagged, expired")
	}
	return s, nil
}
