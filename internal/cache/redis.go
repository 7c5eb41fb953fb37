package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lifedash-api/pkg/uid"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultBusChannel is used when RedisBusConfig.Channel is empty.
const DefaultBusChannel = "lifedash:cache:invalidate"

// RedisBusConfig holds configuration for the invalidation bus.
type RedisBusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// invalidationMessage is the pub/sub payload.
type invalidationMessage struct {
	Origin string   `json:"origin"`
	Tags   []string `json:"tags"`
}

// RedisInvalidationBus fans tag invalidations out to every instance sharing
// the channel, so each process drops its local copies of stale reads.
// Messages published by this instance are ignored on receipt.
type RedisInvalidationBus struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	channel  string
	origin   string
	local    Invalidator
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewRedisInvalidationBus connects to Redis, subscribes to the channel and
// starts applying remote invalidations to local.
func NewRedisInvalidationBus(cfg RedisBusConfig, local Invalidator, logger *zap.Logger) (*RedisInvalidationBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = DefaultBusChannel
	}

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	b := &RedisInvalidationBus{
		client:  client,
		pubsub:  pubsub,
		channel: channel,
		origin:  uid.Instance(),
		local:   local,
		logger:  logger.Named("cache_bus"),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go b.listen()

	b.logger.Info("invalidation bus started",
		zap.String("channel", channel),
		zap.String("origin", b.origin),
	)
	return b, nil
}

// Publish announces that tags were invalidated on this instance.
func (b *RedisInvalidationBus) Publish(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	payload, err := json.Marshal(invalidationMessage{Origin: b.origin, Tags: tags})
	if err != nil {
		return fmt.Errorf("failed to encode invalidation: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

func (b *RedisInvalidationBus) listen() {
	defer close(b.done)

	ch := b.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle(msg.Payload)
		case <-b.stop:
			return
		}
	}
}

// handle applies one received payload and returns the number of entries removed.
func (b *RedisInvalidationBus) handle(payload string) int {
	var msg invalidationMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Warn("discarding malformed invalidation", zap.Error(err))
		return 0
	}
	if msg.Origin == b.origin {
		return 0
	}

	removed := b.local.InvalidateByTags(msg.Tags...)
	b.logger.Debug("applied remote invalidation",
		zap.String("origin", msg.Origin),
		zap.Strings("tags", msg.Tags),
		zap.Int("removed", removed),
	)
	return removed
}

// Close stops the listener and releases the Redis connection.
func (b *RedisInvalidationBus) Close() error {
	var err error
	b.stopOnce.Do(func() {
		close(b.stop)
		if b.pubsub != nil {
			err = b.pubsub.Close()
		}
		if b.done != nil {
			<-b.done
		}
		if b.client != nil {
			if cerr := b.client.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
