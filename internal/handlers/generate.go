// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"workspacegen/internal/generate"
	"workspacegen/internal/models"
	"workspacegen/internal/respond"
	"workspacegen/internal/validation"
)

// generateResponse is the body of POST /api/generate. On GENERATION_FAILED
// the degraded fallback template is still included.
type generateResponse struct {
	Success     bool                    `json:"success"`
	Template    *models.Template        `json:"template,omitempty"`
	ToolCalls   []models.ToolCall       `json:"toolCalls,omitempty"`
	ToolResults []models.ToolCallResult `json:"toolResults,omitempty"`
	Iterations  int                     `json:"iterations,omitempty"`
	TokensUsed  int                     `json:"tokensUsed,omitempty"`
	Fallback    bool                    `json:"fallback,omitempty"`
	Error       *respond.ErrorBody      `json:"error,omitempty"`
}

// Generate handles POST /api/generate. The generated template is returned,
// not stored; clients save it through POST /api/templates.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	res := validation.GenerationRequest(body)
	if !res.Success {
		validationFailed(w, "invalid generation request", res.Errors)
		return
	}

	if a.generator == nil {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "generation is not configured")
		return
	}

	result, err := a.generator.Generate(r.Context(), res.Data)
	out := generateResponse{Success: err == nil}
	if result != nil {
		out.Template = &result.Template
		out.ToolCalls = result.ToolCalls
		out.ToolResults = result.ToolResults
		out.Iterations = result.Iterations
		out.TokensUsed = result.TokensUsed
		out.Fallback = result.Fallback
	}

	if err == nil {
		slog.Info("template generated", "id", result.Template.ID, "iterations", result.Iterations,
			"fallback", result.Fallback, "tokens", result.TokensUsed)
		respond.JSON(w, http.StatusOK, out)
		return
	}

	var gerr *generate.Error
	if !errors.As(err, &gerr) {
		slog.Error("generation failed", "error", err)
		out.Error = &respond.ErrorBody{Code: respond.CodeInternal, Message: "generation failed"}
		respond.JSON(w, http.StatusInternalServerError, out)
		return
	}

	out.Error = &respond.ErrorBody{Code: gerr.Code, Message: gerr.Message, Details: gerr.Details}
	status := http.StatusBadGateway
	switch gerr.Code {
	case generate.CodeValidation:
		status = http.StatusBadRequest
	case generate.CodeNotImplemented:
		status = http.StatusNotImplemented
	default:
		slog.Warn("generation degraded to fallback", "error", err)
	}
	respond.JSON(w, status, out)
}
