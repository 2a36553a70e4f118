package redis

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NotificationsPubSub fans ledger notifications out to external observers
// and to the other instances of the service.
type NotificationsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewNotificationsPubSub(rdb *redis.Client) *NotificationsPubSub {
	return &NotificationsPubSub{
		rdb:     rdb,
		channel: ChannelLedgerEvents(),
	}
}

func (p *NotificationsPubSub) Publish(ctx context.Context, n domain.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *NotificationsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, n domain.Notification)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if n, ok := decodeNotification(m.Payload); ok {
				handler(ctx, n)
			}
		}
	}
}

func decodeNotification(payload string) (domain.Notification, bool) {
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return domain.Notification{}, false
	}
	if n.LedgerID == uuid.Nil || n.Seq == 0 {
		return domain.Notification{}, false
	}
	return n, true
}
