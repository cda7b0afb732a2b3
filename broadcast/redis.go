package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Swind/go-feed-agent/core"
)

// DefaultRedisChannel is the Pub/Sub channel error events are published on.
const DefaultRedisChannel = "feedagent:errors"

// RedisSink publishes error events on a Redis Pub/Sub channel so that other
// processes (UI backends, alerting) can follow them.
type RedisSink struct {
	client     redis.UniversalClient
	channel    string
	serializer core.Serializer
	retry      core.RetryPolicy
	logger     core.Logger
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithChannel overrides DefaultRedisChannel.
func WithChannel(channel string) RedisOption {
	return func(s *RedisSink) { s.channel = channel }
}

// WithSerializer overrides the JSON serializer.
func WithSerializer(ser core.Serializer) RedisOption {
	return func(s *RedisSink) { s.serializer = ser }
}

// WithRetryPolicy sets how failed publishes are retried.
func WithRetryPolicy(p core.RetryPolicy) RedisOption {
	return func(s *RedisSink) { s.retry = p }
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l core.Logger) RedisOption {
	return func(s *RedisSink) { s.logger = l }
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisSink publishes through client.
func NewRedisSink(client redis.UniversalClient, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		client:     client,
		channel:    DefaultRedisChannel,
		serializer: core.NewJSONSerializer(),
		retry:      core.DefaultRetryPolicy(),
		logger:     core.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Channel returns the Pub/Sub channel name.
func (s *RedisSink) Channel() string {
	return s.channel
}

// Send publishes ev, retrying according to the sink's policy.
func (s *RedisSink) Send(ctx context.Context, ev ErrorEvent) error {
	data, err := s.serializer.Serialize(ev)
	if err != nil {
		return fmt.Errorf("encode error event: %w", err)
	}
	return s.retry.Do(ctx, func(ctx context.Context) error {
		return s.client.Publish(ctx, s.channel, data).Err()
	})
}

// Subscribe streams events published on the sink's channel until ctx is done.
func (s *RedisSink) Subscribe(ctx context.Context) (<-chan ErrorEvent, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", s.channel, err)
	}

	out := make(chan ErrorEvent)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev ErrorEvent
				if err := s.serializer.Deserialize([]byte(msg.Payload), &ev); err != nil {
					s.logger.Warn("malformed error event", core.F("error", err))
					continue
				}

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Relay forwards every event received on the sink's channel to dst until ctx
// is done.
func (s *RedisSink) Relay(ctx context.Context, dst Sink) error {
	events, err := s.Subscribe(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		if err := dst.Send(ctx, ev); err != nil {
			s.logger.Warn("relay error event failed", core.F("error", err))
		}
	}
	return nil
}
