package resale

import (
	"errors"
	"fmt"
	"time"
)

var ErrLedgerNotFound = errors.New("ledger not found")

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
