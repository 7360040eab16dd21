package sink

import (
	"context"

	"github.com/mosaicnetworks/attest/src/ledger"
	"github.com/redis/go-redis/v9"
)

// redisClient is the part of redis.UniversalClient the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes the JSON encoding of each event to a Redis
// channel.
type RedisPublisher struct {
	channel string
	client  redisClient
}

// NewRedisPublisher connects to the Redis server at addr and checks that it
// answers.
func NewRedisPublisher(ctx context.Context, addr string, channel string) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return &RedisPublisher{
		channel: channel,
		client:  rdb,
	}, nil
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, e *ledger.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Close implements Publisher.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
