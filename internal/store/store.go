// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store persists templates. Two backends share one contract: a
// flat templates.json document for single-node installs and PostgreSQL for
// everything else. Writes are whole-document upserts keyed by id, and the
// last write wins.
package store

import (
	"errors"
	"sort"
	"strings"

	"workspacegen/internal/models"
)

// ErrNotFound is returned when deleting an id that is not stored.
var ErrNotFound = errors.New("store: template not found")

// Pagination limits for List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// TemplateStore is the persistence contract for templates.
type TemplateStore interface {
	// All returns every stored template, newest first.
	All() ([]models.Template, error)
	// List returns one filtered page of templates, newest first.
	List(opts ListOptions) (*models.TemplatePage, error)
	// FindByID returns nil, nil when the id is unknown.
	FindByID(id string) (*models.Template, error)
	// Save inserts or replaces the template with the same id.
	Save(t *models.Template) error
	// Delete removes a template or returns ErrNotFound.
	Delete(id string) error
	// Count returns the number of stored templates.
	Count() (int, error)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	// Search matches title or description, case-insensitively.
	Search   string
	IsPublic *bool
	// Page is 1-based.
	Page  int
	Limit int
}

// Normalize clamps page and limit into their valid ranges.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultLimit
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	o.Search = strings.TrimSpace(o.Search)
	return o
}

func (o ListOptions) offset() int {
	return (o.Page - 1) * o.Limit
}

// matches reports whether t passes the filters of o.
func (o ListOptions) matches(t *models.Template) bool {
	if o.IsPublic != nil && t.IsPublic != *o.IsPublic {
		return false
	}
	if o.Search == "" {
		return true
	}
	q := strings.ToLower(o.Search)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// paginate filters and slices an in-memory list sorted newest first.
func paginate(all []models.Template, opts ListOptions) *models.TemplatePage {
	opts = opts.Normalize()

	var filtered []models.Template
	for i := range all {
		if opts.matches(&all[i]) {
			filtered = append(filtered, all[i])
		}
	}

	page := &models.TemplatePage{
		Items:   []models.Template{},
		Total:   len(filtered),
		Page:    opts.Page,
		PerPage: opts.Limit,
	}
	start := opts.offset()
	if start < len(filtered) {
		end := min(start+opts.Limit, len(filtered))
		page.Items = filtered[start:end]
	}
	page.HasMore = start+len(page.Items) < page.Total
	return page
}

// sortNewestFirst orders templates by updated_at descending, then id.
func sortNewestFirst(ts []models.Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].UpdatedAt.Equal(ts[j].UpdatedAt) {
			return ts[i].UpdatedAt.After(ts[j].UpdatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
