// Package query puts a per-user read cache, a retry policy and user-facing error messages in
// front of the storage providers.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"boardpacks/internal/actor"
	"boardpacks/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	CacheSize int
	CacheTTL  time.Duration

	// ReadAttempts and MutationAttempts count the first call.
	ReadAttempts     int
	MutationAttempts int
	InitialInterval  time.Duration
	MaxInterval      time.Duration

	// Prod strips logged errors down to a truncated message.
	Prod bool
}

func DefaultConfig() Config {
	return Config{
		CacheSize:        1024,
		CacheTTL:         30 * time.Second,
		ReadAttempts:     3,
		MutationAttempts: 2,
		InitialInterval:  100 * time.Millisecond,
		MaxInterval:      2 * time.Second,
	}
}

type Client struct {
	cfg     Config
	cache   *cache
	group   singleflight.Group
	metrics *metrics.Metrics
}

func New(cfg Config, m *metrics.Metrics) (*Client, error) {
	defaults := DefaultConfig()
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaults.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.ReadAttempts <= 0 {
		cfg.ReadAttempts = defaults.ReadAttempts
	}
	if cfg.MutationAttempts <= 0 {
		cfg.MutationAttempts = defaults.MutationAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}

	c, err := newCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Client{
		cfg:     cfg,
		cache:   c,
		metrics: m,
	}, nil
}

// Read returns the cached result for key if the acting user has a fresh one, otherwise runs fetch
// under the read retry policy and caches the result. Concurrent misses on the same key share one
// fetch. The shared fetch is detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func Read[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	user, _ := actor.From(ctx)

	if value, ok := c.cache.get(user, key); ok {
		c.metrics.CacheLookup(key.Scope, true)
		return value.(T), nil
	}
	c.metrics.CacheLookup(key.Scope, false)

	gen := c.cache.generation(key)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(entryKey(user, key), func() (any, error) {
		var result T
		err := c.retry(shared, "read", c.cfg.ReadAttempts, func(ctx context.Context) error {
			var err error
			result, err = fetch(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		c.cache.put(user, key, gen, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Fetch runs an uncached read under the read retry policy.
func Fetch[T any](ctx context.Context, c *Client, fetch func(context.Context) (T, error)) (T, error) {
	var result T
	err := c.retry(ctx, "read", c.cfg.ReadAttempts, func(ctx context.Context) error {
		var err error
		result, err = fetch(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Mutate runs write under the mutation retry policy and, on success, drops every cached read of
// the given keys for all users.
func Mutate[T any](ctx context.Context, c *Client, write func(context.Context) (T, error), invalidate ...Key) (T, error) {
	var result T
	err := c.retry(ctx, "mutation", c.cfg.MutationAttempts, func(ctx context.Context) error {
		var err error
		result, err = write(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	c.Invalidate(invalidate...)
	return result, nil
}

// Invalidate drops the cached reads of keys for every user.
func (c *Client) Invalidate(keys ...Key) {
	for _, key := range keys {
		c.cache.invalidate(key)
	}
}

// InvalidateScope drops every cached read of scope, whatever id it was keyed by.
func (c *Client) InvalidateScope(scope string) {
	c.cache.invalidateScope(scope)
}

func (c *Client) retry(ctx context.Context, kind string, attempts int, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			c.metrics.Retry(kind)
			slog.DebugContext(ctx, "retrying store call", slog.String("kind", kind), slog.Int("attempt", attempt))
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
