// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers of the workspace generator
// API. Handlers are grouped by concern (generation, templates, exports,
// document service, tool servers, settings) and receive their dependencies
// through the API struct.
package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"workspacegen/internal/ai"
	"workspacegen/internal/export"
	"workspacegen/internal/generate"
	"workspacegen/internal/mcp"
	"workspacegen/internal/notion"
	"workspacegen/internal/respond"
	"workspacegen/internal/store"
	"workspacegen/internal/validation"
)

// maxBodySize caps request bodies. Templates with many blocks are the
// largest documents accepted.
const maxBodySize = 2 << 20

// Deps holds everything the handlers need. Exporter, Notion and the MCP
// members may be nil; the matching endpoints then answer NOT_IMPLEMENTED.
type Deps struct {
	Templates store.TemplateStore
	Generator *generate.Orchestrator
	Providers *ai.Registry
	Tools     *mcp.Registry
	Servers   *mcp.ServerStore
	Exporter  *export.Exporter
	Notion    *notion.Client
}

// API groups all HTTP handlers and their dependencies.
type API struct {
	templates store.TemplateStore
	generator *generate.Orchestrator
	providers *ai.Registry
	tools     *mcp.Registry
	servers   *mcp.ServerStore
	exporter  *export.Exporter
	notion    *notion.Client

	now   func() time.Time
	newID func() string
}

// New creates the handler group.
func New(d Deps) *API {
	return &API{
		templates: d.Templates,
		generator: d.Generator,
		providers: d.Providers,
		tools:     d.Tools,
		servers:   d.Servers,
		exporter:  d.Exporter,
		notion:    d.Notion,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// readBody reads the request body up to maxBodySize.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodeValidation,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "could not read request body")
		return nil, false
	}
	return body, true
}

// decodeJSON reads the body into v. An empty body leaves v untouched when
// optional is set. Any decoding problem fails the request.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	decoded, ok := decodeDocument(w, r, v, optional)
	if ok && len(decoded) > 0 {
		validationFailed(w, "invalid request body", decoded)
		return false
	}
	return ok
}

// decodeDocument is decodeJSON for bodies the caller checks further. Fields
// of the wrong type are returned as violations, to be merged with the
// caller's own checks, instead of being written.
func decodeDocument(w http.ResponseWriter, r *http.Request, v any, optional bool) ([]string, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	if optional && len(bytes.TrimSpace(body)) == 0 {
		return nil, true
	}
	decoded, ok := validation.Decode(body, v)
	if !ok {
		validationFailed(w, "invalid request body", decoded)
		return nil, false
	}
	return decoded, true
}

// validationFailed writes a 400 listing every violation.
func validationFailed(w http.ResponseWriter, message string, errs []string) {
	respond.Error(w, http.StatusBadRequest, respond.CodeValidation, message, errs...)
}

// fail maps err onto the API error taxonomy. Errors that match no known
// sentinel are answered with fallbackStatus and fallbackCode.
func fail(w http.ResponseWriter, r *http.Request, err error, fallbackStatus int, fallbackCode string) {
	var (
		paramErr  *mcp.ParameterError
		notionErr *notion.APIError
	)

	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "template not found")
	case errors.Is(err, mcp.ErrToolNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeToolNotFound, err.Error())
	case errors.As(err, &paramErr):
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidParameters,
			"invalid parameters for "+paramErr.Tool, paramErr.Problems...)
	case errors.Is(err, mcp.ErrNoServerForTool):
		respond.Error(w, http.StatusConflict, respond.CodeNoServerForTool, err.Error())
	case errors.Is(err, mcp.ErrServerNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, err.Error())
	case errors.Is(err, mcp.ErrServerExists):
		respond.Error(w, http.StatusConflict, respond.CodeValidation, err.Error())
	case errors.Is(err, mcp.ErrTransport):
		respond.Error(w, http.StatusBadGateway, respond.CodeToolDispatchFailed, err.Error())
	case errors.Is(err, ai.ErrNoProvider):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	case errors.Is(err, export.ErrUnknownFormat):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	case errors.Is(err, export.ErrStorageNotConfigured):
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "object storage is not configured")
	case errors.Is(err, notion.ErrUnsupportedBlock):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	case errors.As(err, &notionErr):
		respond.Error(w, http.StatusBadGateway, respond.CodeExternalService, notionErr.Message)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.Error(w, fallbackStatus, fallbackCode, err.Error())
	}
}
