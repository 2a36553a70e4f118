package admin

import (
	"errors"
)

var (
	ErrLedgerConflict = errors.New("ledger already exists")
	ErrLedgerNotFound = errors.New("ledger not found")
)
