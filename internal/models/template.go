// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the documents exchanged between the generator,
// the persistence layer, the tool servers and the HTTP API.
package models

import (
	"fmt"
	"strings"
	"time"
)

// BlockType is the discriminant of the Block tagged union.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockDatabase  BlockType = "database"
	BlockTable     BlockType = "table"
	BlockImage     BlockType = "image"
	BlockQuote     BlockType = "quote"
	BlockCode      BlockType = "code"
	BlockDivider   BlockType = "divider"
)

// BlockTypes lists the closed set of block variants in display order.
var BlockTypes = []BlockType{
	BlockHeading, BlockParagraph, BlockDatabase, BlockTable,
	BlockImage, BlockQuote, BlockCode, BlockDivider,
}

// Valid reports whether t is one of the known block variants.
func (t BlockType) Valid() bool {
	for _, bt := range BlockTypes {
		if t == bt {
			return true
		}
	}
	return false
}

// Block is a single typed content element of a template. Content holds the
// variant payload: text for heading/paragraph/quote/code, a URL for image,
// and a display name for database/table placeholders. Level is only set
// for headings. Empty Properties and Children are left off the wire, so nil
// and empty mean the same thing.
type Block struct {
	ID         string         `json:"id" validate:"notblank"`
	Type       BlockType      `json:"type" validate:"oneof=heading paragraph database table image quote code divider"`
	Content    string         `json:"content"`
	Level      int            `json:"level,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Children   []Block        `json:"children,omitempty" validate:"dive"`
}

// Columns returns properties.columns of a database or table block as
// strings, or a single fallback column when none are declared.
func (b *Block) Columns(fallback string) []string {
	var out []string
	if raw, ok := b.Properties["columns"].([]any); ok {
		for _, c := range raw {
			if s := strings.TrimSpace(fmt.Sprint(c)); s != "" {
				out = append(out, s)
			}
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

// Rows returns properties.rows as cell lists. Malformed rows are skipped.
func (b *Block) Rows() [][]string {
	raw, ok := b.Properties["rows"].([]any)
	if !ok {
		return nil
	}
	var out [][]string
	for _, r := range raw {
		cells, ok := r.([]any)
		if !ok {
			continue
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = fmt.Sprint(c)
		}
		out = append(out, row)
	}
	return out
}

// StringProperty returns a trimmed string property, or "" when absent.
func (b *Block) StringProperty(key string) string {
	s, _ := b.Properties[key].(string)
	return strings.TrimSpace(s)
}

// Template is a generated workspace: a titled, themed, ordered list of blocks.
type Template struct {
	ID           string    `json:"id" validate:"notblank"`
	Title        string    `json:"title" validate:"notblank,max=200"`
	Description  string    `json:"description" validate:"min=10,max=2000"`
	Blocks       []Block   `json:"blocks" validate:"min=1,dive"`
	Theme        Theme     `json:"theme"`
	CreatedAt    time.Time `json:"created_at" validate:"required"`
	UpdatedAt    time.Time `json:"updated_at" validate:"required"`
	IsPublic     bool      `json:"is_public"`
	NotionPageID string    `json:"notion_page_id,omitempty"`
	SharedURL    string    `json:"shared_url,omitempty" validate:"omitempty,absurl"`
}

// Touch bumps UpdatedAt, never letting it fall behind CreatedAt.
func (t *Template) Touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

// SetPublic changes the visibility flag. Nothing but IsPublic and UpdatedAt
// is modified.
func (t *Template) SetPublic(public bool, now time.Time) {
	t.IsPublic = public
	t.Touch(now)
}

// TemplatePatch is a partial update. Nil fields are left untouched.
type TemplatePatch struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Blocks       *[]Block `json:"blocks,omitempty"`
	Theme        *Theme   `json:"theme,omitempty"`
	IsPublic     *bool    `json:"is_public,omitempty"`
	NotionPageID *string  `json:"notion_page_id,omitempty"`
	SharedURL    *string  `json:"shared_url,omitempty"`
}

// Apply merges the patch into t and refreshes UpdatedAt. ID and CreatedAt
// are immutable.
func (p *TemplatePatch) Apply(t *Template, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Blocks != nil {
		t.Blocks = *p.Blocks
	}
	if p.Theme != nil {
		t.Theme = *p.Theme
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if p.NotionPageID != nil {
		t.NotionPageID = *p.NotionPageID
	}
	if p.SharedURL != nil {
		t.SharedURL = *p.SharedURL
	}
	t.Touch(now)
}

// TemplatePage is one page of a filtered template listing.
type TemplatePage struct {
	Items   []Template `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	HasMore bool       `json:"has_more"`
}
