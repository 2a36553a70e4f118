package redis

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
)

const ns = "tixledger:v1"

func KeyLedgerInfo(ledgerID uuid.UUID) string {
	return fmt.Sprintf("%s:ledger:%s:info", ns, ledgerID)
}

func KeyTicket(ledgerID uuid.UUID, id domain.TicketID) string {
	return fmt.Sprintf("%s:ledger:%s:ticket:%d", ns, ledgerID, id)
}

func KeyHolderTickets(ledgerID uuid.UUID, holder domain.Identity) string {
	return fmt.Sprintf("%s:ledger:%s:holder:%s", ns, ledgerID, holder)
}

func ChannelLedgerEvents() string {
	return ns + ":ledger:events"
}
