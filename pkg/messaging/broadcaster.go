package messaging

import (
	"context"
	"fmt"
	"time"
)

// AdminBroadcaster publishes events on the channel admin sessions subscribe to.
type AdminBroadcaster struct {
	broker  Broker
	channel string
	now     func() time.Time
}

func NewAdminBroadcaster(broker Broker, channel string) *AdminBroadcaster {
	return &AdminBroadcaster{broker: broker, channel: channel, now: time.Now}
}

func (b *AdminBroadcaster) BroadcastToAdministrators(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = b.now().UTC()
	}
	if err := b.broker.Publish(ctx, b.channel, event); err != nil {
		return fmt.Errorf("broadcast %s: %w", event.Type, err)
	}
	return nil
}
