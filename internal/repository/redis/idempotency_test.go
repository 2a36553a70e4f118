package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIdemIssue(t *testing.T) {
	key := KeyIdemIssue(uuid.MustParse("7b0a4f38-3f5e-4b7c-9d55-0f0a3c6f1e11"), "admin", "abc")
	assert.Equal(t, "tixledger:v1:idem:issue:7b0a4f38-3f5e-4b7c-9d55-0f0a3c6f1e11:admin:abc", key)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte(`{"buyer":"alice"}`))
	assert.Len(t, a, 32)
	assert.Equal(t, a, Fingerprint([]byte(`{"buyer":"alice"}`)))
	assert.NotEqual(t, a, Fingerprint([]byte(`{"buyer":"bob"}`)))
}

func TestIdempotencyStore_ClaimThenComplete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, 2*time.Hour)
	ctx := context.Background()

	mock.ExpectSetNX("k", `{"state":"pending","fp":"f1"}`, time.Minute).SetVal(true)
	mock.ExpectSet("k", `{"state":"done","fp":"f1","body":{"ticket_id":1}}`, 2*time.Hour).SetVal("OK")

	c, err := s.Begin(ctx, "k", "f1")
	require.NoError(t, err)
	assert.Equal(t, Claimed, c.State)

	require.NoError(t, s.Complete(ctx, "k", "f1", []byte(`{"ticket_id":1}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Begin(t *testing.T) {
	cases := []struct {
		name   string
		stored string
		nilGet bool
		want   ClaimState
		body   string
	}{
		{name: "replay", stored: `{"state":"done","fp":"f1","body":{"ticket_id":1}}`, want: Replay, body: `{"ticket_id":1}`},
		{name: "pending", stored: `{"state":"pending","fp":"f1"}`, want: InProgress},
		{name: "other body", stored: `{"state":"done","fp":"f2","body":{}}`, want: Mismatch},
		{name: "expired", nilGet: true, want: InProgress},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			s := NewIdempotencyStore(db, time.Hour)

			mock.ExpectSetNX("k", `{"state":"pending","fp":"f1"}`, time.Minute).SetVal(false)
			if tc.nilGet {
				mock.ExpectGet("k").RedisNil()
			} else {
				mock.ExpectGet("k").SetVal(tc.stored)
			}

			c, err := s.Begin(context.Background(), "k", "f1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.State)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, string(c.Body))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIdempotencyStore_CorruptRecord(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, time.Hour)

	mock.ExpectSetNX("k", `{"state":"pending","fp":"f1"}`, time.Minute).SetVal(false)
	mock.ExpectGet("k").SetVal("LOCK")

	_, err := s.Begin(context.Background(), "k", "f1")
	assert.Error(t, err)
}

func TestIdempotencyStore_CompleteFailureHoldsClaim(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, 2*time.Hour)

	mock.ExpectSet("k", `{"state":"done","fp":"f1","body":{"ticket_id":1}}`, 2*time.Hour).SetErr(errors.New("READONLY"))
	mock.ExpectExpire("k", 2*time.Hour).SetVal(true)

	err := s.Complete(context.Background(), "k", "f1", []byte(`{"ticket_id":1}`))
	assert.ErrorContains(t, err, "READONLY")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyStore_Abandon(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewIdempotencyStore(db, time.Hour)

	mock.ExpectDel("k").SetVal(1)

	require.NoError(t, s.Abandon(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
