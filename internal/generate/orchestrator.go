// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generate turns a generation request into a template. It prompts
// the active language model, reads the structured reply, optionally lets
// the model call external tools for a bounded number of rounds, and falls
// back to deterministic blocks whenever the reply cannot be used.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"workspacegen/internal/ai"
	"workspacegen/internal/models"
	"workspacegen/internal/validation"
)

// DefaultMaxIterations bounds the model calls of one generation.
const DefaultMaxIterations = 3

// Error codes reported alongside a generation.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeNotImplemented   = "NOT_IMPLEMENTED"
)

// Error is a structured generation failure.
type Error struct {
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Generator produces text for a system and user prompt. *ai.Registry
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (*ai.Generation, error)
}

// ToolDispatcher lists and runs tools. *mcp.Registry satisfies it.
type ToolDispatcher interface {
	Tools(serverIDs ...string) []models.ToolDefinition
	CallBatch(ctx context.Context, calls []models.ToolCall) []models.ToolCallResult
}

// Result is a generated template together with what happened on the way.
type Result struct {
	Template    models.Template         `json:"template"`
	ToolCalls   []models.ToolCall       `json:"toolCalls,omitempty"`
	ToolResults []models.ToolCallResult `json:"toolResults,omitempty"`
	Iterations  int                     `json:"iterations"`
	TokensUsed  int                     `json:"tokensUsed"`
	// Fallback is true when the blocks were built without model structure.
	Fallback bool `json:"fallback"`
	// GaveUp is true when the iteration bound ended the tool loop.
	GaveUp bool `json:"gaveUp,omitempty"`
}

// Orchestrator produces templates from generation requests.
type Orchestrator struct {
	gen           Generator
	tools         ToolDispatcher
	maxIterations int
	now           func() time.Time
	newID         func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithClock sets the time source for template timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDFunc sets the template id generator.
func WithIDFunc(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an orchestrator. tools may be nil, which disables tool use.
func New(gen Generator, tools ToolDispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:           gen,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate validates req and produces a template.
//
// A nil Result with an *Error means the request was rejected. When the model
// itself fails before producing anything, Generate returns a fallback
// template together with a GENERATION_FAILED *Error so callers can choose to
// show the degraded template. A malformed model reply is never an error.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerationRequest) (*Result, error) {
	if errs := validation.CheckGenerationRequest(&req); len(errs) > 0 {
		return nil, &Error{Code: CodeValidation, Message: "invalid generation request", Details: errs}
	}
	theme, ok := req.ResolveTheme()
	if !ok {
		return nil, &Error{Code: CodeValidation, Message: "invalid generation request",
			Details: []string{fmt.Sprintf("theme: unknown theme preset %q", req.Theme.Preset)}}
	}

	if o.gen == nil {
		res := o.assemble(&req, theme, &loopResult{})
		return res, &Error{Code: CodeNotImplemented, Message: "no text generation backend is configured"}
	}

	lr := o.runLoop(ctx, &req, theme)
	res := o.assemble(&req, theme, lr)

	if lr.err != nil {
		msg := "text generation failed"
		if errors.Is(lr.err, ai.ErrNoProvider) {
			msg = "no language model is configured"
		}
		return res, &Error{Code: CodeGenerationFailed, Message: msg, Err: lr.err}
	}
	return res, nil
}

// assemble builds the final template from whatever the loop produced.
func (o *Orchestrator) assemble(req *models.GenerationRequest, theme models.Theme, lr *loopResult) *Result {
	description := strings.TrimSpace(req.Description)
	title := FirstWords(description, titleWords)

	var blocks []models.Block
	fallback := true
	if mt := lr.template; mt != nil {
		if t := strings.TrimSpace(mt.Title); t != "" {
			title = truncateRunes(t, 200)
		}
		if d := strings.TrimSpace(mt.Description); validDescription(d) {
			description = d
		}
		blocks = normalizeBlocks(mt.Blocks, req.IncludeImages)
		fallback = len(blocks) == 0
	}
	if fallback {
		blocks = FallbackBlocks(req.Description, lr.fallbackText)
	}
	if title == "" {
		title = "Untitled workspace"
	}

	now := o.now().UTC()
	return &Result{
		Template: models.Template{
			ID:          o.newID(),
			Title:       title,
			Description: description,
			Blocks:      blocks,
			Theme:       theme,
			CreatedAt:   now,
			UpdatedAt:   now,
			IsPublic:    false,
		},
		ToolCalls:   lr.calls,
		ToolResults: lr.results,
		Iterations:  lr.iterations,
		TokensUsed:  lr.tokens,
		Fallback:    fallback,
		GaveUp:      lr.gaveUp,
	}
}

func validDescription(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= 10 && n <= 2000
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
