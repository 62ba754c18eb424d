// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// preview.go provides the Valkey-backed cache of rendered templates (L2).
// Keys embed the template's updated_at, so an edited template never hits a
// stale entry; explicit invalidation only reclaims space early.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// previewKeyPrefix is the Valkey key prefix for rendered templates.
	previewKeyPrefix = "preview:"

	// DefaultPreviewTTL is how long a rendered template stays cached.
	DefaultPreviewTTL = 10 * time.Minute
)

// PreviewCache stores rendered template outputs in Valkey. A nil
// *PreviewCache is valid and never hits, so callers need no Valkey.
type PreviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPreviewCache creates a preview cache backed by the given Valkey client.
func NewPreviewCache(client *redis.Client, ttl time.Duration) *PreviewCache {
	if ttl == 0 {
		ttl = DefaultPreviewTTL
	}
	return &PreviewCache{client: client, ttl: ttl}
}

// TemplatePrefix is the key prefix shared by all renderings of a template.
func TemplatePrefix(id string) string {
	return previewKeyPrefix + id + ":"
}

// PreviewKey returns the cache key for one rendering of a template version.
func PreviewKey(id string, updatedAt time.Time, format string) string {
	return fmt.Sprintf("%s%d:%s", TemplatePrefix(id), updatedAt.Unix(), format)
}

// Get retrieves a cached rendering. Errors are logged and reported as a miss.
func (pc *PreviewCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if pc == nil {
		return nil, false
	}
	val, err := pc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("preview cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("preview cache hit", "key", key)
	return val, true
}

// Set stores a rendering with the configured TTL.
func (pc *PreviewCache) Set(ctx context.Context, key string, data []byte) {
	if pc == nil {
		return
	}
	if err := pc.client.Set(ctx, key, data, pc.ttl).Err(); err != nil {
		slog.Warn("preview cache set error", "key", key, "error", err)
	}
}

// InvalidateTemplate removes every cached rendering of one template.
func (pc *PreviewCache) InvalidateTemplate(ctx context.Context, id string) {
	if pc == nil {
		return
	}
	if n := pc.deleteMatching(ctx, TemplatePrefix(id)+"*"); n > 0 {
		slog.Debug("preview cache invalidated", "id", id, "deleted", n)
	}
}

// InvalidateAll removes all cached renderings, e.g. after theme presets change.
func (pc *PreviewCache) InvalidateAll(ctx context.Context) {
	if pc == nil {
		return
	}
	if n := pc.deleteMatching(ctx, previewKeyPrefix+"*"); n > 0 {
		slog.Info("preview cache fully cleared", "deleted", n)
	}
}

func (pc *PreviewCache) deleteMatching(ctx context.Context, pattern string) int {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			slog.Warn("preview cache scan error", "pattern", pattern, "error", err)
			return deleted
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("preview cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}
