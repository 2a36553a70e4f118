package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsPubSub_Publish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	p := NewNotificationsPubSub(db)

	n := domain.Notification{
		LedgerID:   uuid.New(),
		Seq:        2,
		Kind:       domain.KindRefunded,
		TicketID:   3,
		From:       "carol",
		Amount:     200,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(n)
	require.NoError(t, err)

	mock.ExpectPublish("tixledger:v1:ledger:events", b).SetVal(1)

	require.NoError(t, p.Publish(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeNotification(t *testing.T) {
	id := uuid.New()

	n, ok := decodeNotification(`{"ledger_id":"` + id.String() + `","seq":4,"kind":"issued","ticket_id":4,"to":"alice","amount":100}`)
	require.True(t, ok)
	assert.Equal(t, id, n.LedgerID)
	assert.Equal(t, uint64(4), n.Seq)
	assert.Equal(t, domain.KindIssued, n.Kind)
	assert.Equal(t, domain.Identity("alice"), n.To)

	_, ok = decodeNotification(`not json`)
	assert.False(t, ok)

	_, ok = decodeNotification(`{"seq":1}`)
	assert.False(t, ok)

	_, ok = decodeNotification(`{"ledger_id":"` + id.String() + `"}`)
	assert.False(t, ok)
}
