package metrics

import (
	"errors"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ledgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by outcome",
		},
		[]string{"operation", "status"},
	)

	payoutAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_payout_amount_total",
			Help: "Sum of amounts transferred by the ledger",
		},
		[]string{"reason"},
	)

	commitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_commit_duration_seconds",
			Help:    "Duration of journal commits",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"kind"},
	)

	ledgersServed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgers_served",
			Help: "Ledgers held in memory by this instance",
		},
	)
)

var rejections = []error{
	ledger.ErrInvalidConfiguration,
	ledger.ErrNotAdministrator,
	ledger.ErrSoldOut,
	ledger.ErrNotOwner,
	ledger.ErrNotResellable,
	ledger.ErrInvalidRecipient,
	ledger.ErrInvalidPrice,
	ledger.ErrUnknownTicket,
	ledger.ErrAlreadyAdmitted,
	ledger.ErrUnknownLedger,
}

// Status classifies an operation outcome: "ok", "rejected" for a ledger
// rule violation, "error" for anything else.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return "rejected"
		}
	}
	return "error"
}

func ObserveOperation(operation string, err error) {
	ledgerOperations.WithLabelValues(operation, Status(err)).Inc()
}

func ObserveCommit(kind domain.NotificationKind, d time.Duration, payouts []domain.Payout) {
	commitDuration.WithLabelValues(string(kind)).Observe(d.Seconds())

	for _, p := range payouts {
		payoutAmount.WithLabelValues(string(p.Reason)).Add(float64(p.Amount))
	}
}

func SetLedgersServed(n int) {
	ledgersServed.Set(float64(n))
}
