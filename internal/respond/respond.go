// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package respond writes the JSON envelopes of the HTTP API:
// {"success":true,"data":...} and
// {"success":false,"error":{"code","message","details"}}.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes of the API.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeGenerationFailed   = "GENERATION_FAILED"
	CodeNotImplemented     = "NOT_IMPLEMENTED"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeToolNotFound       = "TOOL_NOT_FOUND"
	CodeInvalidParameters  = "INVALID_PARAMETERS"
	CodeNoServerForTool    = "NO_SERVER_FOR_TOOL"
	CodeToolDispatchFailed = "TOOL_DISPATCH_FAILED"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Envelope is the top-level response shape.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("write json response", "error", err)
	}
}

// OK writes a success envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, code, message string, details ...string) {
	JSON(w, status, Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}})
}
