package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/topi314/tint"
)

// Bus carries change events between the instance that made a write and every instance serving
// stream clients.
type Bus interface {
	Publish(ctx context.Context, event ChangeEvent) error
	StartForwarder(ctx context.Context, onEvent func(ChangeEvent)) error
	Close() error
}

// LocalBus delivers events to forwarders of the same process.
type LocalBus struct {
	mu         sync.RWMutex
	forwarders []func(ChangeEvent)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, event ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, forward := range b.forwarders {
		forward(event)
	}
	return nil
}

func (b *LocalBus) StartForwarder(_ context.Context, onEvent func(ChangeEvent)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarders = append(b.forwarders, onEvent)
	return nil
}

func (b *LocalBus) Close() error {
	return nil
}

type RedisBus struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBus(addr, password, channel string) (*RedisBus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "boardpacks:section-changes"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, event ChangeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(ChangeEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var event ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					slog.Warn("bad section change payload", tint.Err(err))
					continue
				}
				onEvent(event)
			}
		}
	}()

	return nil
}

func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
