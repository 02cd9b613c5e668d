package service

import (
	"tally/internal/platform/lock"
	"tally/internal/reconciliation/service/mocks"
)

// Both lock backends wired by the server must satisfy the port.
var (
	_ Locker = (*lock.Keyed)(nil)
	_ Locker = (*lock.Redis)(nil)
	_ Locker = (*mocks.MockLocker)(nil)
)
