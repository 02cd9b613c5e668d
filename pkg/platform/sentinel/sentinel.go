package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, locks and brokers return
// these (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a write lost an optimistic version check or hit a unique key
//   - ErrInvalidState: entity is in the wrong state for the requested operation
//   - ErrUnavailable: backing service is temporarily unreachable
//   - ErrLockNotObtained: another writer holds the record lock
//
// Validation failures belong in pkg/domain-errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
	ErrLockNotObtained = errors.New("lock not obtained")
)
