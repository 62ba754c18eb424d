// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"workspacegen/internal/models"
)

// clientInfo identifies the generator to tool servers during initialize.
var clientInfo = &sdk.Implementation{Name: "workspacegen", Version: "1.0.0"}

// ErrTransport wraps failures to reach a tool server or to understand its
// reply, as opposed to errors the server reports about the call itself.
var ErrTransport = errors.New("mcp: transport failure")

// ServerInfo is what a server reports about itself during initialize.
type ServerInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocol_version"`
	Capabilities    []string `json:"capabilities"`
}

// Client talks to one tool server.
type Client interface {
	Initialize(ctx context.Context) (*ServerInfo, error)
	ListTools(ctx context.Context) ([]models.ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*models.ToolResponse, error)
}

// Dialer returns a Client for a server descriptor.
type Dialer func(server models.MCPServer) Client

// HTTPDialer returns a Dialer producing streamable HTTP clients whose
// operations are bounded by timeout.
func HTTPDialer(timeout time.Duration) Dialer {
	return func(server models.MCPServer) Client {
		return NewHTTPClient(server, timeout)
	}
}

// HTTPClient reaches a tool server over the MCP streamable HTTP transport.
// Every operation opens its own session and closes it when done.
type HTTPClient struct {
	server  models.MCPServer
	http    *http.Client
	timeout time.Duration
}

// NewHTTPClient creates a client for server.
func NewHTTPClient(server models.MCPServer, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var rt http.RoundTripper = http.DefaultTransport
	switch server.AuthType {
	case models.AuthBearer, models.AuthOAuth21:
		if server.Key != "" {
			rt = bearerTransport{key: server.Key, next: rt}
		}
	}
	return &HTTPClient{
		server:  server,
		http:    &http.Client{Transport: rt},
		timeout: timeout,
	}
}

// bearerTransport adds the server key to every request of a session.
type bearerTransport struct {
	key  string
	next http.RoundTripper
}

func (t bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.key)
	return t.next.RoundTrip(r)
}

// session connects to the server and runs fn inside one MCP session.
func (c *HTTPClient) session(ctx context.Context, fn func(ctx context.Context, cs *sdk.ClientSession) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client := sdk.NewClient(clientInfo, nil)
	cs, err := client.Connect(ctx, &sdk.StreamableClientTransport{
		Endpoint:   c.server.URL,
		HTTPClient: c.http,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrTransport, c.server.URL, err)
	}
	defer cs.Close()

	return fn(ctx, cs)
}

// Initialize performs the MCP handshake and returns the server's identity.
func (c *HTTPClient) Initialize(ctx context.Context) (*ServerInfo, error) {
	var info *ServerInfo
	err := c.session(ctx, func(_ context.Context, cs *sdk.ClientSession) error {
		res := cs.InitializeResult()
		if res == nil {
			return fmt.Errorf("%w: no initialize result", ErrTransport)
		}
		info = &ServerInfo{ProtocolVersion: res.ProtocolVersion}
		if res.ServerInfo != nil {
			info.Name = res.ServerInfo.Name
			info.Version = res.ServerInfo.Version
		}
		info.Capabilities = capabilityNames(res.Capabilities)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// capabilityNames lists the capability groups a server advertised.
func capabilityNames(caps *sdk.ServerCapabilities) []string {
	if caps == nil {
		return nil
	}
	raw, err := json.Marshal(caps)
	if err != nil {
		return nil
	}
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTools returns the tools the server exposes, tagged with its id.
func (c *HTTPClient) ListTools(ctx context.Context) ([]models.ToolDefinition, error) {
	var defs []models.ToolDefinition
	err := c.session(ctx, func(ctx context.Context, cs *sdk.ClientSession) error {
		params := &sdk.ListToolsParams{}
		for {
			res, err := cs.ListTools(ctx, params)
			if err != nil {
				return fmt.Errorf("%w: tools/list: %w", ErrTransport, err)
			}
			for _, t := range res.Tools {
				schema, err := inputSchema(t.InputSchema)
				if err != nil {
					return fmt.Errorf("%w: tool %s: %w", ErrTransport, t.Name, err)
				}
				defs = append(defs, models.ToolDefinition{
					Name:        t.Name,
					Description: t.Description,
					InputSchema: schema,
					ServerID:    c.server.ID,
				})
			}
			if res.NextCursor == "" {
				return nil
			}
			params.Cursor = res.NextCursor
		}
	})
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []models.ToolDefinition{}
	}
	return defs, nil
}

// inputSchema narrows a server's JSON schema to the subset tools declare.
func inputSchema(s any) (models.InputSchema, error) {
	var out models.InputSchema
	if s == nil {
		return out, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("input schema: %w", err)
	}
	return out, nil
}

// CallTool invokes a tool. An error the server reports about the call is
// surfaced as a response with IsError set; only transport problems return
// an error.
func (c *HTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (*models.ToolResponse, error) {
	if args == nil {
		args = map[string]any{}
	}

	var resp *models.ToolResponse
	err := c.session(ctx, func(ctx context.Context, cs *sdk.ClientSession) error {
		res, err := cs.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
		var rpcErr *jsonrpc.Error
		if errors.As(err, &rpcErr) {
			resp = errorResponse(fmt.Sprintf("mcp error %d: %s", rpcErr.Code, rpcErr.Message))
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: tools/call %s: %w", ErrTransport, name, err)
		}
		resp = toolResponse(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// toolResponse converts a call result into the generator's content model.
// Content kinds the generator does not use are skipped.
func toolResponse(res *sdk.CallToolResult) *models.ToolResponse {
	resp := &models.ToolResponse{IsError: res.IsError}
	for _, content := range res.Content {
		switch c := content.(type) {
		case *sdk.TextContent:
			resp.Content = append(resp.Content, models.ContentItem{Type: models.ContentText, Text: c.Text})
		case *sdk.ImageContent:
			resp.Content = append(resp.Content, models.ContentItem{
				Type:     models.ContentImage,
				Data:     base64.StdEncoding.EncodeToString(c.Data),
				MimeType: c.MIMEType,
			})
		case *sdk.EmbeddedResource:
			if c.Resource == nil {
				continue
			}
			resp.Content = append(resp.Content, models.ContentItem{
				Type: models.ContentResource,
				Resource: &models.EmbeddedResource{
					URI:      c.Resource.URI,
					MimeType: c.Resource.MIMEType,
					Text:     c.Resource.Text,
				},
			})
		}
	}
	return resp
}

func errorResponse(msg string) *models.ToolResponse {
	return &models.ToolResponse{
		IsError: true,
		Content: []models.ContentItem{{Type: models.ContentText, Text: msg}},
	}
}
