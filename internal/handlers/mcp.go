// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"workspacegen/internal/models"
	"workspacegen/internal/respond"
	"workspacegen/internal/validation"
)

// toolCallResponse is the outcome of a single manual tool call.
type toolCallResponse struct {
	ToolName  string               `json:"tool_name"`
	ToolUseID string               `json:"tool_use_id"`
	Response  *models.ToolResponse `json:"response"`
}

// ListServers handles GET /api/mcp/servers.
func (a *API) ListServers(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	respond.OK(w, http.StatusOK, a.servers.Config())
}

// SaveServers handles PUT /api/mcp/servers and replaces the whole list.
func (a *API) SaveServers(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}

	var body struct {
		Servers []models.MCPServer `json:"servers"`
	}
	decoded, ok := decodeDocument(w, r, &body, false)
	if !ok {
		return
	}
	var checks []string
	for i := range body.Servers {
		for _, e := range validation.CheckMCPServer(&body.Servers[i]) {
			checks = append(checks, fmt.Sprintf("servers.%d.%s", i, e))
		}
	}
	if errs := validation.Merge(decoded, checks); len(errs) > 0 {
		validationFailed(w, "invalid server list", errs)
		return
	}

	previous := a.servers.List()
	cfg, err := a.servers.SaveAll(body.Servers)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}

	// Tools of servers that disappeared or moved must be discovered again.
	next := make(map[string]models.MCPServer, len(cfg.Servers))
	for _, s := range cfg.Servers {
		next[s.ID] = s
	}
	for _, old := range previous {
		if s, ok := next[old.ID]; !ok || s.URL != old.URL || s.Key != old.Key {
			a.tools.Unregister(old.ID)
		}
	}

	slog.Info("mcp servers saved", "count", len(cfg.Servers), "version", cfg.Version)
	respond.OK(w, http.StatusOK, cfg)
}

// AddServer handles POST /api/mcp/servers.
func (a *API) AddServer(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	res := validation.MCPServer(body)
	if !res.Success {
		validationFailed(w, "invalid server", res.Errors)
		return
	}
	if err := a.servers.Add(res.Data); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	slog.Info("mcp server added", "server", res.Data.ID, "url", res.Data.URL)
	respond.OK(w, http.StatusCreated, res.Data)
}

// GetServer handles GET /api/mcp/servers/{id}.
func (a *API) GetServer(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	s, err := a.servers.Get(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	respond.OK(w, http.StatusOK, s)
}

// UpdateServer handles PUT /api/mcp/servers/{id}. The id in the path wins
// over any id in the body.
func (a *API) UpdateServer(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")

	var s models.MCPServer
	decoded, ok := decodeDocument(w, r, &s, false)
	if !ok {
		return
	}
	s.ID = id
	if errs := validation.Merge(decoded, validation.CheckMCPServer(&s)); len(errs) > 0 {
		validationFailed(w, "invalid server", errs)
		return
	}
	if err := a.servers.Update(id, s); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.tools.Unregister(id)
	slog.Info("mcp server updated", "server", id)
	respond.OK(w, http.StatusOK, s)
}

// DeleteServer handles DELETE /api/mcp/servers/{id} and drops its tools.
func (a *API) DeleteServer(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.servers.Delete(id); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.tools.Unregister(id)
	slog.Info("mcp server deleted", "server", id)
	respond.OK(w, http.StatusOK, map[string]string{"id": id})
}

// TestServer handles POST /api/mcp/servers/{id}/test with an initialize
// handshake.
func (a *API) TestServer(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	info, err := a.tools.Test(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeToolDispatchFailed)
		return
	}
	respond.OK(w, http.StatusOK, info)
}

// DiscoverTools handles POST /api/mcp/servers/{id}/discover.
func (a *API) DiscoverTools(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	defs, err := a.tools.Discover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeToolDispatchFailed)
		return
	}
	if defs == nil {
		defs = []models.ToolDefinition{}
	}
	respond.OK(w, http.StatusOK, defs)
}

// CallTool handles POST /api/mcp/servers/{id}/call with a ToolCall body.
// The tool must belong to the server in the path.
func (a *API) CallTool(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := a.servers.Get(id); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}

	var call models.ToolCall
	if !decodeJSON(w, r, &call, false) {
		return
	}
	if strings.TrimSpace(call.ToolName) == "" {
		validationFailed(w, "invalid tool call", []string{"tool_name: is required"})
		return
	}
	if def, ok := a.tools.Tool(call.ToolName); ok && def.ServerID != id {
		respond.Error(w, http.StatusNotFound, respond.CodeToolNotFound,
			fmt.Sprintf("tool %q is not provided by server %q", call.ToolName, id))
		return
	}
	if call.ToolUseID == "" {
		call.ToolUseID = a.newID()
	}

	resp, err := a.tools.Call(r.Context(), call)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeToolDispatchFailed)
		return
	}
	respond.OK(w, http.StatusOK, toolCallResponse{ToolName: call.ToolName, ToolUseID: call.ToolUseID, Response: resp})
}

// ListTools handles GET /api/mcp/tools. ?server=a,b narrows the list.
func (a *API) ListTools(w http.ResponseWriter, r *http.Request) {
	if !a.mcpConfigured(w) {
		return
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("server"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	respond.OK(w, http.StatusOK, a.tools.Tools(ids...))
}

func (a *API) mcpConfigured(w http.ResponseWriter) bool {
	if a.tools == nil || a.servers == nil {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "tool servers are not configured")
		return false
	}
	return true
}
