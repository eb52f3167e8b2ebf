package celery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/geobim/geobim/internal/logger"
)

// Config contains broker configuration.
type Config struct {
	// URL is a redis:// connection URL. When set it takes precedence over
	// the discrete fields below.
	URL string `mapstructure:"url" yaml:"url"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == 0 {
			c.Port = 6379
		}
	}
}

const (
	maxAttempts    = 3
	backoffStep    = 50 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// Client dispatches tasks to the worker fleet and reads their results.
//
// The underlying Redis connection is established lazily on first use and is
// safe for concurrent use. Transient failures are retried per operation with
// capped backoff (min(n*50ms, 2s), up to 3 attempts).
type Client struct {
	rdb   *redis.Client
	queue string
}

// New creates a broker client. No connection is made until the first
// operation.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()

	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid broker url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	return NewWithRedis(redis.NewClient(opts)), nil
}

// NewWithRedis wraps an existing Redis client. Useful for tests.
func NewWithRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb, queue: DefaultQueue}
}

// Dispatch enqueues taskName with positional args and returns the task ID.
// On broker failure no task ID exists and the error must surface to the
// caller; a lost enqueue cannot be detected later.
func (c *Client) Dispatch(ctx context.Context, taskName string, args ...any) (string, error) {
	taskID := uuid.NewString()

	msg, err := NewMessage(taskName, taskID, args)
	if err != nil {
		return "", err
	}
	if err := c.Enqueue(ctx, msg); err != nil {
		return "", err
	}

	logger.Debug("task dispatched",
		logger.KeyTaskID, taskID,
		logger.KeyTaskName, taskName,
		logger.KeyQueue, c.queue,
	)
	return taskID, nil
}

// Enqueue pushes a prebuilt envelope onto the task queue.
func (c *Client) Enqueue(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode task envelope: %w", err)
	}

	return c.withRetry(ctx, func() error {
		return c.rdb.LPush(ctx, c.queue, payload).Err()
	})
}

// GetResult reads the result-backend entry for taskID. A missing key
// synthesizes PENDING; the core never writes result keys itself.
func (c *Client) GetResult(ctx context.Context, taskID string) (*TaskResult, error) {
	var raw string
	err := c.withRetry(ctx, func() error {
		var err error
		raw, err = c.rdb.Get(ctx, ResultKey(taskID)).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PendingResult(taskID), nil
		}
		return nil, fmt.Errorf("failed to read task result: %w", err)
	}

	var result TaskResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to decode task result: %w", err)
	}
	if result.TaskID == "" {
		result.TaskID = taskID
	}
	return &result, nil
}

// HealthCheck dispatches a probe task and polls for its completion.
//
// Total wait is bounded to ten 500ms polls (5s); a worker fleet that cannot
// turn the probe around in that window is reported unhealthy rather than
// blocking the caller.
func (c *Client) HealthCheck(ctx context.Context) bool {
	taskID, err := c.Dispatch(ctx, TaskHealthCheck)
	if err != nil {
		logger.Warn("worker health probe dispatch failed", logger.KeyError, err)
		return false
	}

	for range 10 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(500 * time.Millisecond):
		}

		result, err := c.GetResult(ctx, taskID)
		if err != nil {
			continue
		}
		if result.Status == StatusSuccess {
			return true
		}
	}
	return false
}

// Redis exposes the underlying connection so other components (the query
// cache) can share it instead of opening a second one.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// withRetry runs op up to maxAttempts times with capped linear backoff.
// Context cancellation aborts immediately; redis.Nil is a result, not a
// transient failure.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil || errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return err
		}

		if attempt < maxAttempts {
			backoff := min(time.Duration(attempt)*backoffStep, backoffCeiling)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return err
}
