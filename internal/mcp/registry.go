// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mcp implements the tool-server side of generation: a registry of
// tool definitions discovered from external servers, argument validation
// against each tool's input schema, and dispatch over JSON-RPC.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"workspacegen/internal/models"
)

var (
	// ErrToolNotFound is returned when a call names an unregistered tool.
	ErrToolNotFound = errors.New("mcp: tool not found")
	// ErrInvalidParameters is wrapped by *ParameterError.
	ErrInvalidParameters = errors.New("mcp: invalid parameters")
	// ErrNoServerForTool is returned when a tool's owning server is unknown
	// or inactive.
	ErrNoServerForTool = errors.New("mcp: no server for tool")
	// ErrServerNotFound is returned for an unknown server id.
	ErrServerNotFound = errors.New("mcp: server not found")
)

// maxConcurrentCalls bounds how many calls of one batch run at once.
const maxConcurrentCalls = 8

// ParameterError lists every schema problem of one tool call.
type ParameterError struct {
	Tool     string
	Problems []string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("mcp: invalid parameters for %q: %s", e.Tool, strings.Join(e.Problems, "; "))
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameters }

// ServerResolver looks up server descriptors by id. It returns an error
// wrapping ErrServerNotFound for unknown ids.
type ServerResolver interface {
	Get(id string) (models.MCPServer, error)
}

// Registry holds the tool definitions known to one process or request
// scope and dispatches calls to the servers that own them.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]models.ToolDefinition
	servers ServerResolver
	dial    Dialer
}

// NewRegistry creates an empty registry.
func NewRegistry(servers ServerResolver, dial Dialer) *Registry {
	return &Registry{
		tools:   make(map[string]models.ToolDefinition),
		servers: servers,
		dial:    dial,
	}
}

// Register adds or replaces a tool by name. Definitions without a name are
// ignored.
func (r *Registry) Register(def models.ToolDefinition) {
	if def.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = def
}

// Unregister removes every tool owned by serverID.
func (r *Registry) Unregister(serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, def := range r.tools {
		if def.ServerID == serverID {
			delete(r.tools, name)
		}
	}
}

// Tool returns the definition registered under name.
func (r *Registry) Tool(name string) (models.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Tools returns registered definitions sorted by name. When serverIDs is
// non-empty only tools owned by those servers are returned.
func (r *Registry) Tools(serverIDs ...string) []models.ToolDefinition {
	want := make(map[string]bool, len(serverIDs))
	for _, id := range serverIDs {
		want[id] = true
	}

	r.mu.RLock()
	out := make([]models.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		if len(want) > 0 && !want[def.ServerID] {
			continue
		}
		out = append(out, def)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Test performs the initialize handshake with a server.
func (r *Registry) Test(ctx context.Context, serverID string) (*ServerInfo, error) {
	server, err := r.server(serverID)
	if err != nil {
		return nil, err
	}
	return r.dial(server).Initialize(ctx)
}

// Discover fetches the tools a server exposes and registers each of them.
func (r *Registry) Discover(ctx context.Context, serverID string) ([]models.ToolDefinition, error) {
	server, err := r.server(serverID)
	if err != nil {
		return nil, err
	}

	defs, err := r.dial(server).ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", serverID, err)
	}
	for i := range defs {
		defs[i].ServerID = serverID
		r.Register(defs[i])
	}

	slog.Info("tools discovered", "server", serverID, "count", len(defs))
	return defs, nil
}

// Call validates and dispatches one tool call. A server-side failure is
// returned as a response with IsError set; the returned error is reserved
// for lookup, validation and transport failures.
func (r *Registry) Call(ctx context.Context, call models.ToolCall) (*models.ToolResponse, error) {
	def, ok := r.Tool(call.ToolName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, call.ToolName)
	}

	if problems := ValidateParameters(def.InputSchema, call.Parameters); len(problems) > 0 {
		return nil, &ParameterError{Tool: call.ToolName, Problems: problems}
	}

	server, err := r.owner(def)
	if err != nil {
		return nil, err
	}

	resp, err := r.dial(server).CallTool(ctx, def.Name, call.Parameters)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", def.Name, server.ID, err)
	}
	return resp, nil
}

// CallBatch runs calls concurrently and returns one result per call in
// input order. A failing call never affects the others. Calls without a
// tool_use_id are assigned one.
func (r *Registry) CallBatch(ctx context.Context, calls []models.ToolCall) []models.ToolCallResult {
	results := make([]models.ToolCallResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)

	for i, call := range calls {
		if call.ToolUseID == "" {
			call.ToolUseID = uuid.NewString()
		}
		results[i] = models.ToolCallResult{ToolName: call.ToolName, ToolUseID: call.ToolUseID}

		g.Go(func() error {
			resp, err := r.Call(gctx, call)
			switch {
			case err != nil:
				results[i].Error = err.Error()
				slog.Warn("tool call failed", "tool", call.ToolName, "tool_use_id", call.ToolUseID, "error", err)
			case resp.IsError:
				results[i].Response = resp
				results[i].Error = resp.Text()
			default:
				results[i].Response = resp
				results[i].Success = true
			}
			// Per-call failures are recorded, never returned, so one
			// failure does not cancel the rest of the batch.
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Registry) server(id string) (models.MCPServer, error) {
	if r.servers == nil {
		return models.MCPServer{}, fmt.Errorf("%w: %q", ErrServerNotFound, id)
	}
	return r.servers.Get(id)
}

// owner resolves the active server owning def.
func (r *Registry) owner(def models.ToolDefinition) (models.MCPServer, error) {
	if def.ServerID == "" {
		return models.MCPServer{}, fmt.Errorf("%w: %q has no owning server", ErrNoServerForTool, def.Name)
	}
	server, err := r.server(def.ServerID)
	if err != nil {
		return models.MCPServer{}, fmt.Errorf("%w: %q: %w", ErrNoServerForTool, def.Name, err)
	}
	if !server.Active {
		return models.MCPServer{}, fmt.Errorf("%w: server %q is inactive", ErrNoServerForTool, server.ID)
	}
	return server, nil
}
