package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

const idemNS = ns + ":idem"

func KeyIdemIssue(ledgerID uuid.UUID, caller domain.Identity, idemKey string) string {
	return fmt.Sprintf("%s:issue:%s:%s:%s", idemNS, ledgerID, caller, idemKey)
}

// Fingerprint identifies a request body so a key replayed with a different
// body can be told apart from a retry.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:16])
}

// ClaimState says what the caller holding an idempotency key should do next.
type ClaimState int

const (
	// Claimed: the caller owns the key and must Complete or Abandon it.
	Claimed ClaimState = iota
	// InProgress: another request with the same key has not finished yet.
	InProgress
	// Replay: the key already holds a response; Body carries it.
	Replay
	// Mismatch: the key was used for a different request body.
	Mismatch
)

type Claim struct {
	State ClaimState
	Body  []byte
}

const (
	recordPending = "pending"
	recordDone    = "done"
)

type idemRecord struct {
	State       string          `json:"state"`
	Fingerprint string          `json:"fp"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// IdempotencyStore remembers the response of a keyed request. A key is first
// claimed with a pending record that expires after lockTTL, then replaced by
// the finished response kept for ttl.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: time.Minute}
}

// Begin claims key for a request with the given fingerprint, or reports why
// it cannot be claimed.
//
// Parameters:
//   - ctx: request-scoped context.
//   - key: storage key, see KeyIdemIssue.
//   - fingerprint: Fingerprint of the request body.
//
// Returns:
//   - Claim: Claimed, InProgress, Replay with the stored body, or Mismatch.
//   - error: if redis fails or holds an unreadable record.
func (s *IdempotencyStore) Begin(ctx context.Context, key, fingerprint string) (Claim, error) {
	const op = "redis.IdempotencyStore.Begin"

	pending, err := json.Marshal(idemRecord{State: recordPending, Fingerprint: fingerprint})
	if err != nil {
		return Claim{}, fmt.Errorf("%s:%w", op, err)
	}

	ok, err := s.rdb.SetNX(ctx, key, string(pending), s.lockTTL).Result()
	if err != nil {
		return Claim{}, fmt.Errorf("%s:%w", op, err)
	}
	if ok {
		return Claim{State: Claimed}, nil
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// pending record expired between the two calls
		return Claim{State: InProgress}, nil
	}
	if err != nil {
		return Claim{}, fmt.Errorf("%s:%w", op, err)
	}

	var rec idemRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Claim{}, fmt.Errorf("%s: decode record: %w", op, err)
	}

	switch {
	case rec.Fingerprint != fingerprint:
		return Claim{State: Mismatch}, nil
	case rec.State == recordDone:
		return Claim{State: Replay, Body: rec.Body}, nil
	default:
		return Claim{State: InProgress}, nil
	}
}

// Complete stores the response body of a claimed key. When the write fails
// the pending claim is stretched to the full ttl, so a retry with the same
// key keeps getting InProgress instead of running the request again.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, body []byte) error {
	const op = "redis.IdempotencyStore.Complete"

	done, err := json.Marshal(idemRecord{State: recordDone, Fingerprint: fingerprint, Body: body})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.rdb.Set(ctx, key, string(done), s.ttl).Err(); err != nil {
		if xerr := s.rdb.Expire(ctx, key, s.ttl).Err(); xerr != nil {
			return fmt.Errorf("%s:%w", op, errors.Join(err, xerr))
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Abandon drops a claim so the request can be retried with the same key.
func (s *IdempotencyStore) Abandon(ctx context.Context, key string) error {
	const op = "redis.IdempotencyStore.Abandon"

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
