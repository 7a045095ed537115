// Package cache is a read-through Redis cache of public event views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

const keyPrefix = "eventrsvp:event:"

// Key returns the cache key of an event's public view.
func Key(eventID string) string {
	return keyPrefix + eventID + ":view"
}

// LoadFunc builds a public view from storage.
type LoadFunc func(ctx context.Context) (*model.PublicEvent, error)

// EventViews caches public event views. Concurrent misses for the same event
// share one load. Redis failures fall back to loading directly. A nil client
// turns the cache into a pass-through.
type EventViews struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
	group  singleflight.Group
}

// New constructs an EventViews. client may be nil.
func New(client redis.Cmdable, ttl time.Duration, log *zap.Logger) *EventViews {
	return &EventViews{client: client, ttl: ttl, log: log}
}

// Get returns the cached view of eventID, calling load on a miss.
func (c *EventViews) Get(ctx context.Context, eventID string, load LoadFunc) (*model.PublicEvent, error) {
	if c.client == nil {
		return load(ctx)
	}

	key := Key(eventID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var view model.PublicEvent
		if err := json.Unmarshal(raw, &view); err == nil {
			return &view, nil
		}
		c.log.Warn("discarding corrupt cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("cache read failed, loading directly", zap.String("key", key), zap.Error(err))
		return load(ctx)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		view, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, view)
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	view := *v.(*model.PublicEvent)
	return &view, nil
}

func (c *EventViews) store(ctx context.Context, key string, view *model.PublicEvent) {
	data, err := json.Marshal(view)
	if err != nil {
		c.log.Warn("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached view of eventID.
func (c *EventViews) Invalidate(ctx context.Context, eventID string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, Key(eventID)).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("event_id", eventID), zap.Error(err))
	}
}

// Connect opens a Redis client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}
