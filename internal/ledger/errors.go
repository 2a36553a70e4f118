package ledger

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid ledger configuration")
	ErrNotAdministrator     = errors.New("caller is not the administrator")
	ErrSoldOut              = errors.New("sold out")
	ErrNotOwner             = errors.New("caller does not hold the ticket")
	ErrNotResellable        = errors.New("ticket is not resellable")
	ErrInvalidRecipient     = errors.New("invalid recipient")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrUnknownTicket        = errors.New("unknown ticket")
	ErrAlreadyAdmitted      = errors.New("ticket already admitted")
	ErrUnknownLedger        = errors.New("unknown ledger")
	ErrLedgerExists         = errors.New("ledger already registered")
	// ErrOutOfSync is returned by a Committer when the durable ledger has moved
	// past the in-memory copy, e.g. after a commit whose outcome was lost.
	ErrOutOfSync = errors.New("ledger out of sync with journal")
)
