package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/urovital/clinic-api/pkg/circuitbreaker"
	"github.com/urovital/clinic-api/pkg/messaging"
)

type RedisBroker struct {
	client *redis.Client
	cb     *circuitbreaker.CircuitBreaker
	logger zerolog.Logger
}

type Config struct {
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

func NewRedisBroker(ctx context.Context, config Config, logger zerolog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pooling
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newBroker(client, logger), nil
}

func newBroker(client *redis.Client, logger zerolog.Logger) *RedisBroker {
	logger = logger.With().Str("component", "redis-broker").Logger()
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:                "redis-broker",
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             5 * time.Second,
		ConsecutiveFailures: 5,
		OnStateChange: func(name, from, to string) {
			logger.Warn().Str("from", from).Str("to", to).Msg("circuit breaker state changed")
		},
	})

	return &RedisBroker{
		client: client,
		cb:     cb,
		logger: logger,
	}
}

// Publish fans the message out on a pub/sub channel. While the breaker is
// open publishes fail fast with circuitbreaker.ErrOpen.
func (b *RedisBroker) Publish(ctx context.Context, channel string, msg messaging.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.cb.Execute(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
