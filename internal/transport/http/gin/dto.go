package httpgin

import (
	"time"

	"github.com/kirinyoku/tix-ledger/internal/domain"
)

type CreateLedgerRequest struct {
	EventName     string `json:"event_name" binding:"required"`
	Administrator string `json:"administrator" binding:"required"`
	TotalSupply   uint64 `json:"total_supply"`
	EventAt       string `json:"event_at" binding:"required"`
	BasePrice     int64  `json:"base_price"`
	RoyaltyRate   uint8  `json:"royalty_rate"`
}

type IssueTicketRequest struct {
	Buyer      string `json:"buyer"`
	Category   string `json:"category"`
	Resellable bool   `json:"resellable"`
}

// ResellRequest leaves validation of both fields to the ledger so that
// ownership errors take precedence over malformed input.
type ResellRequest struct {
	NewHolder string `json:"new_holder"`
	Price     int64  `json:"price"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateLedgerResponse struct {
	LedgerID string `json:"ledger_id"`
}

type IssueTicketResponse struct {
	TicketID domain.TicketID `json:"ticket_id"`
	Price    int64           `json:"price"`
}

type ResellResponse struct {
	TicketID       domain.TicketID `json:"ticket_id"`
	PreviousHolder domain.Identity `json:"previous_holder"`
	Holder         domain.Identity `json:"holder"`
	Price          int64           `json:"price"`
	Royalty        int64           `json:"royalty"`
	SellerProceeds int64           `json:"seller_proceeds"`
}

type ValidateResponse struct {
	TicketID domain.TicketID `json:"ticket_id"`
	Holder   domain.Identity `json:"holder"`
	Admitted bool            `json:"admitted"`
}

type RefundResponse struct {
	TicketID domain.TicketID `json:"ticket_id"`
	Holder   domain.Identity `json:"holder"`
	Refund   int64           `json:"refund"`
}

type PriceResponse struct {
	LedgerID string `json:"ledger_id"`
	Price    int64  `json:"price"`
}

type HolderTicketsResponse struct {
	Holder    domain.Identity   `json:"holder"`
	TicketIDs []domain.TicketID `json:"ticket_ids"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
