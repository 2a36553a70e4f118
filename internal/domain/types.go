package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is an opaque holder/caller identity (wallet address, account id, ...).
type Identity string

func (i Identity) IsZero() bool {
	return strings.TrimSpace(string(i)) == ""
}

type TicketID uint64

type NotificationKind string

const (
	KindIssued    NotificationKind = "issued"
	KindResold    NotificationKind = "resold"
	KindValidated NotificationKind = "validated"
	KindRefunded  NotificationKind = "refunded"
)

type PayoutReason string

const (
	PayoutRoyalty PayoutReason = "royalty"
	PayoutRefund  PayoutReason = "refund"
)

type LedgerConfig struct {
	EventName     string
	Administrator Identity
	TotalSupply   uint64
	EventAt       time.Time
	BasePrice     int64
	RoyaltyRate   uint8
}

type Ticket struct {
	ID         TicketID `json:"id"`
	Price      int64    `json:"price"`
	Holder     Identity `json:"holder"`
	Resellable bool     `json:"resellable"`
	Category   string   `json:"category"`
	Admitted   bool     `json:"admitted"`
}

type LedgerInfo struct {
	ID            uuid.UUID `json:"id"`
	EventName     string    `json:"event_name"`
	Administrator Identity  `json:"administrator"`
	TotalSupply   uint64    `json:"total_supply"`
	IssuedCount   uint64    `json:"issued_count"`
	EventAt       time.Time `json:"event_at"`
	BasePrice     int64     `json:"base_price"`
	RoyaltyRate   uint8     `json:"royalty_rate"`
	LastSeq       uint64    `json:"last_seq"`
}

// Payout is a fund transfer the ledger owes to Recipient as part of a transition.
type Payout struct {
	LedgerID  uuid.UUID    `json:"ledger_id"`
	Seq       uint64       `json:"seq"`
	Recipient Identity     `json:"recipient"`
	Amount    int64        `json:"amount"`
	Reason    PayoutReason `json:"reason"`
	CreatedAt time.Time    `json:"created_at"`
}

// Notification is the append-only record emitted by every ledger operation.
type Notification struct {
	LedgerID   uuid.UUID        `json:"ledger_id"`
	Seq        uint64           `json:"seq"`
	Kind       NotificationKind `json:"kind"`
	TicketID   TicketID         `json:"ticket_id"`
	From       Identity         `json:"from,omitempty"`
	To         Identity         `json:"to,omitempty"`
	Amount     int64            `json:"amount"`
	Royalty    int64            `json:"royalty,omitempty"`
	Category   string           `json:"category,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
