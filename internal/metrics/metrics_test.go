package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "rejected", Status(fmt.Errorf("service.resale.Resell: %w", ledger.ErrNotOwner)))
	assert.Equal(t, "rejected", Status(ledger.ErrSoldOut))
	assert.Equal(t, "error", Status(errors.New("db down")))
}

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(ledgerOperations.WithLabelValues("refund", "rejected"))

	ObserveOperation("refund", ledger.ErrUnknownTicket)

	assert.Equal(t, before+1, testutil.ToFloat64(ledgerOperations.WithLabelValues("refund", "rejected")))
}

func TestObserveCommit_SumsPayouts(t *testing.T) {
	before := testutil.ToFloat64(payoutAmount.WithLabelValues("royalty"))

	ObserveCommit(domain.KindResold, 3*time.Millisecond, []domain.Payout{
		{Amount: 20, Reason: domain.PayoutRoyalty},
		{Amount: 5, Reason: domain.PayoutRoyalty},
	})

	assert.Equal(t, before+25, testutil.ToFloat64(payoutAmount.WithLabelValues("royalty")))
}

func TestSetLedgersServed(t *testing.T) {
	SetLedgersServed(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(ledgersServed))
}
