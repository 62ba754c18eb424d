// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package notion pushes templates into a Notion-compatible document
// service through its page-creation API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"workspacegen/internal/models"
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion is the API version header sent with every request.
	DefaultVersion = "2022-06-28"

	// maxChildren is how many blocks one request may carry.
	maxChildren = 100
)

// ParentType selects where a new page is created.
type ParentType string

const (
	ParentWorkspace ParentType = "workspace"
	ParentPage      ParentType = "page_id"
	ParentDatabase  ParentType = "database_id"
)

// Parent is the location of a new page. The zero value means the workspace.
type Parent struct {
	Type ParentType `json:"type"`
	ID   string     `json:"id,omitempty"`
}

// Validate checks that the parent type is known and has an id when one is needed.
func (p Parent) Validate() error {
	switch p.Type {
	case "", ParentWorkspace:
		return nil
	case ParentPage, ParentDatabase:
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("parent %s requires an id", p.Type)
		}
		return nil
	}
	return fmt.Errorf("unknown parent type %q", p.Type)
}

func (p Parent) wire() notionapi.Parent {
	switch p.Type {
	case ParentPage:
		return notionapi.Parent{Type: notionapi.ParentTypePageID, PageID: notionapi.PageID(p.ID)}
	case ParentDatabase:
		return notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(p.ID)}
	}
	return notionapi.Parent{Type: notionapi.ParentTypeWorkspace, Workspace: true}
}

// Page is the created page as reported by the service.
type Page struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`
}

// APIError is an error object returned by the service.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error (status %d, %s): %s", e.Status, e.Code, e.Message)
}

// Client calls the page-creation API.
type Client struct {
	api *notionapi.Client
}

// NewClient creates a client. Returns nil when token is empty so callers
// can treat the service as not configured. A baseURL other than the public
// host points every request at that host instead.
func NewClient(token, baseURL, version string) *Client {
	if token == "" {
		return nil
	}
	if version == "" {
		version = DefaultVersion
	}

	var rt http.RoundTripper = http.DefaultTransport
	if baseURL != "" && strings.TrimRight(baseURL, "/") != DefaultBaseURL {
		if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
			rt = rehostTransport{base: u, next: rt}
		} else {
			slog.Warn("ignoring invalid notion base url", "url", baseURL)
		}
	}
	rt = errorBodyTransport{next: rt}

	return &Client{
		api: notionapi.NewClient(notionapi.Token(token),
			notionapi.WithVersion(version),
			notionapi.WithHTTPClient(&http.Client{Timeout: 30 * time.Second, Transport: rt}),
		),
	}
}

// CreatePage creates a page holding the template's blocks under parent.
// Blocks beyond the per-request limit are appended in follow-up calls.
func (c *Client) CreatePage(ctx context.Context, t *models.Template, parent Parent) (*Page, error) {
	if err := parent.Validate(); err != nil {
		return nil, fmt.Errorf("notion: %w", err)
	}
	blocks, err := ConvertBlocks(t.Blocks)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []notionapi.Block{}
	}

	first := blocks[:min(len(blocks), maxChildren)]
	created, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: parent.wire(),
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{Title: richText(t.Title)},
		},
		Children: first,
	})
	if err != nil {
		return nil, apiError(err)
	}
	page := &Page{
		ID:             string(created.ID),
		URL:            created.URL,
		CreatedTime:    created.CreatedTime,
		LastEditedTime: created.LastEditedTime,
	}

	for rest := blocks[len(first):]; len(rest) > 0; {
		n := min(len(rest), maxChildren)
		_, err := c.api.Block.AppendChildren(ctx, notionapi.BlockID(page.ID), &notionapi.AppendBlockChildrenRequest{
			Children: rest[:n],
		})
		if err != nil {
			return nil, fmt.Errorf("append blocks to %s: %w", page.ID, apiError(err))
		}
		rest = rest[n:]
	}

	slog.Info("notion page created", "template", t.ID, "page", page.ID, "blocks", len(blocks))
	return page, nil
}

// apiError turns the library's error object into an *APIError.
func apiError(err error) error {
	var nerr *notionapi.Error
	if errors.As(err, &nerr) {
		return &APIError{Status: nerr.Status, Code: string(nerr.Code), Message: nerr.Message}
	}
	return fmt.Errorf("notion http: %w", err)
}

// rehostTransport sends requests to base instead of the public host.
type rehostTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t rehostTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = strings.TrimRight(t.base.Path, "/") + r.URL.Path
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}

// errorBodyTransport rewrites failed responses that carry no JSON error
// object, such as a proxy's plain-text 502, into the service's error shape
// so the status and text survive decoding.
type errorBodyTransport struct {
	next http.RoundTripper
}

func (t errorBodyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(r)
	if err != nil || resp.StatusCode == http.StatusOK {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("notion read body: %w", err)
	}
	if !json.Valid(body) {
		body, _ = json.Marshal(map[string]any{
			"object":  "error",
			"status":  resp.StatusCode,
			"code":    "upstream_error",
			"message": strings.TrimSpace(string(body)),
		})
		resp.Header.Set("Content-Type", "application/json")
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}
