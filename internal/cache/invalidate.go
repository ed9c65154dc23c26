package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel carrying calendar ids whose
// snapshots changed.
const DefaultChannel = "worldcal:calendar:invalidate"

// Invalidator fans calendar invalidations out to every process sharing a
// Redis server. Each process runs one Invalidator around its own Cache.
type Invalidator struct {
	client  *redis.Client
	cache   *Cache
	channel string
	logger  *slog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// InvalidatorOption configures an Invalidator.
type InvalidatorOption func(*Invalidator)

// WithChannel overrides DefaultChannel.
func WithChannel(ch string) InvalidatorOption {
	return func(i *Invalidator) { i.channel = ch }
}

// WithInvalidatorLogger sets the logger.
func WithInvalidatorLogger(l *slog.Logger) InvalidatorOption {
	return func(i *Invalidator) { i.logger = l }
}

// NewInvalidator wires a Redis client to a cache.
func NewInvalidator(client *redis.Client, cache *Cache, opts ...InvalidatorOption) *Invalidator {
	i := &Invalidator{
		client:  client,
		cache:   cache,
		channel: DefaultChannel,
		logger:  slog.Default(),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewRedisClient parses a Redis URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Publish drops id from the local cache and notifies the other processes.
func (i *Invalidator) Publish(ctx context.Context, id string) error {
	i.cache.Invalidate(id)
	if err := i.client.Publish(ctx, i.channel, id).Err(); err != nil {
		return fmt.Errorf("publish invalidation for %q: %w", id, err)
	}
	return nil
}

// Ready is closed once Run has subscribed to the channel.
func (i *Invalidator) Ready() <-chan struct{} {
	return i.ready
}

// Run subscribes to the invalidation channel and evicts every calendar id
// it receives until ctx is cancelled.
func (i *Invalidator) Run(ctx context.Context) error {
	sub := i.client.Subscribe(ctx, i.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", i.channel, err)
	}
	i.readyOnce.Do(func() { close(i.ready) })
	i.logger.Info("invalidation listener started", "channel", i.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			i.logger.Info("invalidation listener stopping: context cancelled")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			dropped := i.cache.Invalidate(msg.Payload)
			i.logger.Debug("calendar invalidated",
				"calendar", msg.Payload,
				"dropped", dropped,
			)
		}
	}
}
