// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
)

// AuthType is how the generator authenticates against a tool server.
type AuthType string

const (
	AuthOAuth21 AuthType = "oauth_2.1"
	AuthBearer  AuthType = "bearer"
	AuthNone    AuthType = "none"
)

// Valid reports whether a is a supported auth type.
func (a AuthType) Valid() bool {
	switch a {
	case AuthOAuth21, AuthBearer, AuthNone:
		return true
	}
	return false
}

// MCPServer describes an external tool host.
type MCPServer struct {
	ID           string   `json:"id" validate:"required,serverid"`
	Name         string   `json:"name" validate:"notblank,max=100"`
	URL          string   `json:"url" validate:"required,absurl"`
	AuthType     AuthType `json:"auth_type" validate:"oneof=oauth_2.1 bearer none"`
	Key          string   `json:"key,omitempty"`
	Active       bool     `json:"active"`
	Description  string   `json:"description,omitempty"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// MCPServerConfig is the persisted layout of mcp-servers.json.
type MCPServerConfig struct {
	Servers   []MCPServer `json:"servers"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int         `json:"version"`
}

// Primitive parameter types a tool schema may declare.
const (
	ParamString  = "string"
	ParamNumber  = "number"
	ParamInteger = "integer"
	ParamBoolean = "boolean"
	ParamArray   = "array"
	ParamObject  = "object"
	ParamNull    = "null"
)

// SchemaProperty describes one named tool parameter.
type SchemaProperty struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// InputSchema is the JSON-schema subset tools use to declare parameters.
type InputSchema struct {
	Type       string                    `json:"type,omitempty"`
	Properties map[string]SchemaProperty `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// ToolDefinition is a tool exposed by a server. Name is unique across the
// registry.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
	ServerID    string      `json:"server_id"`
}

// ToolCall is one invocation requested by the model.
type ToolCall struct {
	ToolName   string         `json:"tool_name"`
	ToolUseID  string         `json:"tool_use_id"`
	Parameters map[string]any `json:"parameters"`
}

// Content item kinds of a ToolResponse.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentResource = "resource"
)

// EmbeddedResource is a resource returned inline by a tool.
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ContentItem is text, a base64 image, or an embedded resource.
type ContentItem struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mime_type,omitempty"`
	Resource *EmbeddedResource `json:"resource,omitempty"`
}

// ToolResponse is what a server returned for a ToolCall.
type ToolResponse struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"is_error"`
}

// Text joins the text parts of the response, one per line. Images are
// summarised by their mime type.
func (r *ToolResponse) Text() string {
	var parts []string
	for _, c := range r.Content {
		switch c.Type {
		case ContentText:
			parts = append(parts, c.Text)
		case ContentImage:
			parts = append(parts, "[image "+c.MimeType+"]")
		case ContentResource:
			if c.Resource != nil {
				parts = append(parts, c.Resource.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// ToolCallResult records the outcome of one call in a batch. A failed call
// carries Error and no Response.
type ToolCallResult struct {
	ToolName  string        `json:"tool_name"`
	ToolUseID string        `json:"tool_use_id"`
	Success   bool          `json:"success"`
	Response  *ToolResponse `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
}
