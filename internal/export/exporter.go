// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export renders templates as JSON, Markdown or themed HTML and
// publishes renderings to object storage. Renderings are cached in two
// tiers: an in-process LRU (L1) and Valkey (L2), both keyed by template id,
// updated_at and format, so an edit never serves a stale rendering.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"workspacegen/internal/cache"
	"workspacegen/internal/models"
	"workspacegen/internal/slug"
)

// ErrStorageNotConfigured is returned by Publish when no object storage is set.
var ErrStorageNotConfigured = errors.New("export: object storage is not configured")

// DefaultCacheSize is the number of renderings kept in the L1 cache.
const DefaultCacheSize = 256

// Uploader stores a published object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Published describes an uploaded rendering.
type Published struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Format      Format `json:"format"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Exporter renders, caches and publishes templates.
type Exporter struct {
	l1       *lru.Cache[string, []byte]
	l2       *cache.PreviewCache
	uploader Uploader
	now      func() time.Time
}

// New creates an exporter. l2 and uploader may be nil.
func New(l2 *cache.PreviewCache, uploader Uploader, size int) (*Exporter, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l1, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("export cache: %w", err)
	}
	return &Exporter{l1: l1, l2: l2, uploader: uploader, now: time.Now}, nil
}

// CanPublish reports whether object storage is configured.
func (e *Exporter) CanPublish() bool {
	return e.uploader != nil
}

// Render returns the template in the given format, from cache when possible.
func (e *Exporter) Render(ctx context.Context, t *models.Template, f Format) ([]byte, error) {
	key := cache.PreviewKey(t.ID, t.UpdatedAt, string(f))
	if data, ok := e.l1.Get(key); ok {
		return data, nil
	}
	if data, ok := e.l2.Get(ctx, key); ok {
		e.l1.Add(key, data)
		return data, nil
	}

	data, err := render(t, f)
	if err != nil {
		return nil, err
	}
	e.l1.Add(key, data)
	e.l2.Set(ctx, key, data)
	return data, nil
}

// Invalidate drops every cached rendering of a template.
func (e *Exporter) Invalidate(ctx context.Context, id string) {
	prefix := cache.TemplatePrefix(id)
	for _, k := range e.l1.Keys() {
		if strings.HasPrefix(k, prefix) {
			e.l1.Remove(k)
		}
	}
	e.l2.InvalidateTemplate(ctx, id)
}

// Publish renders the template and uploads it under ObjectKey.
func (e *Exporter) Publish(ctx context.Context, t *models.Template, f Format) (*Published, error) {
	if e.uploader == nil {
		return nil, ErrStorageNotConfigured
	}
	data, err := e.Render(ctx, t, f)
	if err != nil {
		return nil, err
	}
	key := ObjectKey(t, f, e.now())
	url, err := e.uploader.Upload(ctx, key, f.ContentType(), data)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", t.ID, err)
	}
	slog.Info("template published", "id", t.ID, "format", f, "key", key)
	return &Published{URL: url, Key: key, Format: f, ContentType: f.ContentType(), Size: len(data)}, nil
}

// ObjectKey returns exports/<yyyy>/<mm>/<slug>-<id>.<ext> for the
// publication time at.
func ObjectKey(t *models.Template, f Format, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("exports/%04d/%02d/%s-%s.%s", at.Year(), int(at.Month()), slug.ForKey(t.Title, 0), t.ID, f.Ext())
}

func render(t *models.Template, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render json: %w", err)
		}
		return data, nil
	case FormatMarkdown:
		return RenderMarkdown(t), nil
	case FormatHTML:
		return RenderHTML(t)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
