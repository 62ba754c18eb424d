// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"workspacegen/internal/models"
)

type lookupArgs struct {
	Term string `json:"term"`
}

type echoArgs struct {
	Msg string `json:"msg"`
}

// authLog records the Authorization header of every request a server sees.
type authLog struct {
	mu     sync.Mutex
	values []string
}

func (a *authLog) add(v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = append(a.values, v)
}

func (a *authLog) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.values)
}

// newToolServer starts a streamable HTTP tool server with a few tools.
func newToolServer(t *testing.T, auth *authLog) *httptest.Server {
	t.Helper()

	server := sdk.NewServer(&sdk.Implementation{Name: "demo", Version: "0.3.1"}, nil)
	sdk.AddTool(server, &sdk.Tool{Name: "lookup", Description: "Look something up"},
		func(ctx context.Context, req *sdk.CallToolRequest, in lookupArgs) (*sdk.CallToolResult, any, error) {
			return &sdk.CallToolResult{Content: []sdk.Content{&sdk.TextContent{Text: "definition of " + in.Term}}}, nil, nil
		})
	sdk.AddTool(server, &sdk.Tool{Name: "echo", Description: "Echo with attachments"},
		func(ctx context.Context, req *sdk.CallToolRequest, in echoArgs) (*sdk.CallToolResult, any, error) {
			return &sdk.CallToolResult{Content: []sdk.Content{
				&sdk.TextContent{Text: in.Msg},
				&sdk.ImageContent{Data: []byte("hi"), MIMEType: "image/png"},
				&sdk.EmbeddedResource{Resource: &sdk.ResourceContents{URI: "file:///a.txt", Text: "body"}},
			}}, nil, nil
		})
	sdk.AddTool(server, &sdk.Tool{Name: "soft_fail", Description: "Always fails"},
		func(ctx context.Context, req *sdk.CallToolRequest, in struct{}) (*sdk.CallToolResult, any, error) {
			return nil, nil, errors.New("nothing found")
		})

	handler := sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return server }, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth != nil {
			auth.add(r.Header.Get("Authorization"))
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientInitialize(t *testing.T) {
	auth := &authLog{}
	srv := newToolServer(t, auth)

	c := NewHTTPClient(models.MCPServer{ID: "demo", URL: srv.URL, AuthType: models.AuthBearer, Key: "secret"}, 5*time.Second)
	info, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if info.Name != "demo" || info.Version != "0.3.1" || info.ProtocolVersion == "" {
		t.Errorf("info: got %+v", info)
	}
	if !slices.Contains(info.Capabilities, "tools") {
		t.Errorf("capabilities: got %v", info.Capabilities)
	}

	seen := auth.all()
	if len(seen) == 0 {
		t.Fatal("server saw no requests")
	}
	for _, got := range seen {
		if got != "Bearer secret" {
			t.Errorf("Authorization: got %q", got)
		}
	}
}

func TestHTTPClientNoAuthHeader(t *testing.T) {
	auth := &authLog{}
	srv := newToolServer(t, auth)

	c := NewHTTPClient(models.MCPServer{URL: srv.URL, AuthType: models.AuthNone, Key: "ignored"}, 5*time.Second)
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for _, got := range auth.all() {
		if got != "" {
			t.Errorf("expected no Authorization header, got %q", got)
		}
	}
}

func TestHTTPClientListTools(t *testing.T) {
	srv := newToolServer(t, nil)

	c := NewHTTPClient(models.MCPServer{ID: "dict", URL: srv.URL}, 5*time.Second)
	defs, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("got %d tools", len(defs))
	}

	i := slices.IndexFunc(defs, func(d models.ToolDefinition) bool { return d.Name == "lookup" })
	if i < 0 {
		t.Fatalf("lookup missing from %+v", defs)
	}
	d := defs[i]
	if d.ServerID != "dict" || d.Description != "Look something up" {
		t.Errorf("definition: got %+v", d)
	}
	if d.InputSchema.Type != models.ParamObject || d.InputSchema.Properties["term"].Type != models.ParamString {
		t.Errorf("schema: got %+v", d.InputSchema)
	}
	if !slices.Contains(d.InputSchema.Required, "term") {
		t.Errorf("required: got %v", d.InputSchema.Required)
	}
}

func TestHTTPClientCallTool(t *testing.T) {
	srv := newToolServer(t, nil)
	c := NewHTTPClient(models.MCPServer{URL: srv.URL}, 5*time.Second)
	ctx := context.Background()

	resp, err := c.CallTool(ctx, "echo", map[string]any{"msg": "hello"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if resp.IsError || len(resp.Content) != 3 {
		t.Fatalf("response: got %+v", resp)
	}
	if resp.Content[1].Data != "aGk=" || resp.Content[1].MimeType != "image/png" {
		t.Errorf("image item: got %+v", resp.Content[1])
	}
	if resp.Content[2].Resource == nil || resp.Content[2].Resource.URI != "file:///a.txt" {
		t.Errorf("resource item: got %+v", resp.Content[2])
	}
	if resp.Text() != "hello\n[image image/png]\nbody" {
		t.Errorf("Text: got %q", resp.Text())
	}

	resp, err = c.CallTool(ctx, "lookup", map[string]any{"term": "kanban"})
	if err != nil || resp.Text() != "definition of kanban" {
		t.Errorf("lookup: resp=%+v err=%v", resp, err)
	}

	resp, err = c.CallTool(ctx, "soft_fail", nil)
	if err != nil {
		t.Fatalf("a failing tool is not a transport error: %v", err)
	}
	if !resp.IsError || resp.Text() == "" {
		t.Errorf("soft_fail: got %+v", resp)
	}
}

func TestHTTPClientTransportErrors(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer down.Close()

	c := NewHTTPClient(models.MCPServer{URL: down.URL}, time.Second)
	if _, err := c.CallTool(context.Background(), "x", nil); !errors.Is(err, ErrTransport) {
		t.Errorf("status error: expected ErrTransport, got %v", err)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()

	c = NewHTTPClient(models.MCPServer{URL: url}, time.Second)
	if _, err := c.ListTools(context.Background()); !errors.Is(err, ErrTransport) {
		t.Errorf("connection refused: expected ErrTransport, got %v", err)
	}
}
