package query

import (
	"errors"
)

var (
	ErrLedgerNotFound = errors.New("ledger not found")
	ErrTicketNotFound = errors.New("ticket not found")
)
