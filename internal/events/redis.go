package events

import (
	"context"
	"fmt"

	"github.com/metinatakli/seat-reservation-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher publishes each event on the pub/sub channel of its show, so
// a seat map can follow one show without filtering.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{
		client: client,
	}
}

func ShowChannel(showID int) string {
	return fmt.Sprintf("events:show:%d", showID)
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	err = p.client.Publish(ctx, ShowChannel(event.ShowID), body).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s event to redis: %w", event.Type, err)
	}

	return nil
}
