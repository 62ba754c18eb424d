// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"workspacegen/internal/models"
)

// ErrToolNotAllowed marks a model tool call outside the tools offered for
// the request, such as a tool of a server the user did not select.
var ErrToolNotAllowed = errors.New("generate: tool not allowed")

// loopState is a state of the tool-calling loop.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateHasToolCalls
	stateDispatching
	stateDone
	stateGaveUp
)

func (s loopState) String() string {
	switch s {
	case stateAwaitingModel:
		return "awaiting_model"
	case stateHasToolCalls:
		return "has_tool_calls"
	case stateDispatching:
		return "dispatching"
	case stateDone:
		return "done"
	case stateGaveUp:
		return "gave_up"
	}
	return "unknown"
}

// loopResult is what the loop hands to assembly.
type loopResult struct {
	template     *modelTemplate
	fallbackText string
	calls        []models.ToolCall
	results      []models.ToolCallResult
	iterations   int
	tokens       int
	gaveUp       bool
	// err is set only when the very first model call failed.
	err error
}

// runLoop drives the model until it produces a template, stops asking for
// tools, or the iteration bound is reached. Each model call is one
// iteration; tools requested on the last allowed iteration are not run.
func (o *Orchestrator) runLoop(ctx context.Context, req *models.GenerationRequest, theme models.Theme) *loopResult {
	useTools := req.UseMCP && o.tools != nil
	var tools []models.ToolDefinition
	allowed := make(map[string]struct{})
	if useTools {
		tools = o.tools.Tools(req.Servers()...)
		for _, t := range tools {
			allowed[t.Name] = struct{}{}
		}
	}

	system := buildSystemPrompt(req, tools)
	user := buildUserPrompt(req, theme)

	res := &loopResult{}
	prompt := user
	var pending []models.ToolCall
	state := stateAwaitingModel

	for state != stateDone && state != stateGaveUp {
		switch state {
		case stateAwaitingModel:
			if res.iterations >= o.maxIterations {
				state = stateGaveUp
				continue
			}
			res.iterations++

			gen, err := o.gen.Generate(ctx, system, prompt)
			if err != nil {
				if res.iterations == 1 {
					res.err = err
				}
				slog.Warn("generation call failed", "iteration", res.iterations, "error", err)
				state = stateDone
				continue
			}
			res.tokens += gen.TokensUsed

			parsed := parseResponse(gen.Text)
			if !parsed.HasJSON {
				res.fallbackText = gen.Text
			} else {
				res.fallbackText = ""
			}
			slog.Debug("model response", "iteration", res.iterations, "finish", gen.FinishReason, "parsed", parsed.String())

			switch parsed.outcome() {
			case outcomeTemplate:
				// A template ends the loop even if tools were requested too.
				res.template = parsed.Template
				state = stateDone
			case outcomeToolCalls:
				if !useTools {
					state = stateDone
					continue
				}
				pending = parsed.ToolCalls
				state = stateHasToolCalls
			default:
				state = stateDone
			}

		case stateHasToolCalls:
			if res.iterations >= o.maxIterations {
				state = stateGaveUp
				continue
			}
			for i := range pending {
				if pending[i].ToolUseID == "" {
					pending[i].ToolUseID = uuid.NewString()
				}
			}
			res.calls = append(res.calls, pending...)
			state = stateDispatching

		case stateDispatching:
			results := o.dispatch(ctx, pending, allowed)
			res.results = append(res.results, results...)
			pending = nil
			prompt = buildToolResultPrompt(user, res.results)
			state = stateAwaitingModel
		}
	}

	res.gaveUp = state == stateGaveUp
	if res.gaveUp {
		slog.Info("tool loop reached its iteration bound", "iterations", res.iterations, "tool_calls", len(res.calls))
	}
	return res
}

// dispatch runs the allowed calls as one batch and records every other call
// as a failed result, keeping the order of calls.
func (o *Orchestrator) dispatch(ctx context.Context, calls []models.ToolCall, allowed map[string]struct{}) []models.ToolCallResult {
	results := make([]models.ToolCallResult, len(calls))
	var (
		permitted []models.ToolCall
		slots     []int
	)
	for i, c := range calls {
		if _, ok := allowed[c.ToolName]; ok {
			permitted = append(permitted, c)
			slots = append(slots, i)
			continue
		}
		slog.Warn("model requested a tool outside the request's servers", "tool", c.ToolName, "tool_use_id", c.ToolUseID)
		results[i] = models.ToolCallResult{
			ToolName:  c.ToolName,
			ToolUseID: c.ToolUseID,
			Error:     fmt.Sprintf("%v: %q", ErrToolNotAllowed, c.ToolName),
		}
	}

	if len(permitted) > 0 {
		for j, r := range o.tools.CallBatch(ctx, permitted) {
			results[slots[j]] = r
		}
	}
	return results
}
