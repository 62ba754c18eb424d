// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"workspacegen/internal/ai"
	"workspacegen/internal/models"
)

const fitnessDescription = "A fitness tracker with weekly goals and progress charts"

// scriptedGenerator replays canned responses, repeating the last one.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	systems   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, system, user string) (*ai.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, user)
	g.systems = append(g.systems, system)
	if g.err != nil {
		return nil, g.err
	}
	i := len(g.prompts) - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return &ai.Generation{Text: g.responses[i], TokensUsed: 10, FinishReason: ai.FinishStop}, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// stubTools records batches and answers every call with its tool name.
type stubTools struct {
	mu      sync.Mutex
	defs    []models.ToolDefinition
	batches [][]models.ToolCall
	failOn  string
}

func (s *stubTools) Tools(serverIDs ...string) []models.ToolDefinition {
	if len(serverIDs) == 0 {
		return s.defs
	}
	var out []models.ToolDefinition
	for _, d := range s.defs {
		if slices.Contains(serverIDs, d.ServerID) {
			out = append(out, d)
		}
	}
	return out
}

// searchTools are the tools of the "search" server used by most requests.
func searchTools() []models.ToolDefinition {
	return []models.ToolDefinition{
		{Name: "web_search", Description: "Search", ServerID: "search"},
		{Name: "broken", Description: "Always fails", ServerID: "search"},
	}
}

func (s *stubTools) CallBatch(ctx context.Context, calls []models.ToolCall) []models.ToolCallResult {
	s.mu.Lock()
	s.batches = append(s.batches, calls)
	s.mu.Unlock()

	out := make([]models.ToolCallResult, len(calls))
	for i, c := range calls {
		out[i] = models.ToolCallResult{ToolName: c.ToolName, ToolUseID: c.ToolUseID}
		if c.ToolName == s.failOn {
			out[i].Error = "tool exploded"
			continue
		}
		out[i].Success = true
		out[i].Response = &models.ToolResponse{Content: []models.ContentItem{{Type: models.ContentText, Text: "result of " + c.ToolName}}}
	}
	return out
}

func newTestOrchestrator(gen Generator, tools ToolDispatcher) *Orchestrator {
	clock := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return New(gen, tools,
		WithClock(func() time.Time { return clock }),
		WithIDFunc(func() string { n++; return fmt.Sprintf("tmpl-%d", n) }),
	)
}

func request(useMCP bool) models.GenerationRequest {
	return models.GenerationRequest{
		Description:        fitnessDescription,
		Theme:              models.ThemeRef{Preset: "dark"},
		UseMCP:             useMCP,
		SelectedMCPServers: []string{"search"},
		Complexity:         models.ComplexitySimple,
	}
}

const templateReply = "Here you go:\n```json\n" + `{"template":{"title":"Fitness Hub","description":"Track workouts and weekly goals","blocks":[
{"id":"h","type":"heading","content":"Fitness Hub","level":1},
{"type":"paragraph","content":"Your weekly plan."},
{"id":"db","type":"database","content":"Workouts","properties":{"columns":["Date","Minutes"]}}
]}}` + "\n```"

const toolReply = `{"tool_calls":[{"tool_name":"web_search","tool_use_id":"c1","parameters":{"query":"fitness"}},{"tool_name":"broken","parameters":{}}]}`

func TestGenerateAdoptsModelTemplate(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{templateReply}}
	res, err := newTestOrchestrator(gen, nil).Generate(context.Background(), request(false))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tmpl := res.Template
	if res.Fallback {
		t.Error("expected model blocks, got fallback")
	}
	if tmpl.ID != "tmpl-1" || tmpl.Title != "Fitness Hub" || tmpl.Description != "Track workouts and weekly goals" {
		t.Errorf("template header: %+v", tmpl)
	}
	if len(tmpl.Blocks) != 3 || tmpl.Blocks[1].ID == "" || tmpl.Blocks[2].Properties["columns"] == nil {
		t.Errorf("blocks: %+v", tmpl.Blocks)
	}
	if tmpl.Theme.Name != "dark" || tmpl.IsPublic || !tmpl.CreatedAt.Equal(tmpl.UpdatedAt) {
		t.Errorf("metadata: theme=%q public=%v", tmpl.Theme.Name, tmpl.IsPublic)
	}
	if res.Iterations != 1 || res.TokensUsed != 10 {
		t.Errorf("iterations=%d tokens=%d", res.Iterations, res.TokensUsed)
	}
}

func TestGenerateFallbackScenario(t *testing.T) {
	for _, reply := range []string{"", "I cannot produce JSON today.", "{broken json", "```json\n{\"template\": [}\n```"} {
		t.Run(fmt.Sprintf("%q", reply), func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{reply}}
			res, err := newTestOrchestrator(gen, nil).Generate(context.Background(), request(false))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			blocks := res.Template.Blocks
			if !res.Fallback || len(blocks) < 2 {
				t.Fatalf("expected fallback with >=2 blocks, got %+v", blocks)
			}
			if blocks[0].Type != models.BlockHeading || blocks[0].Content != "A fitness tracker with weekly goals" {
				t.Errorf("first block: %+v", blocks[0])
			}
			if blocks[1].Type != models.BlockParagraph || blocks[1].Content != fitnessDescription {
				t.Errorf("second block: %+v", blocks[1])
			}
			if res.Template.Title == "" {
				t.Error("title must not be empty")
			}
		})
	}
}

func TestGenerateToolLoop(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{toolReply, templateReply}}
	tools := &stubTools{defs: searchTools(), failOn: "broken"}

	res, err := newTestOrchestrator(gen, tools).Generate(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Iterations != 2 || gen.calls() != 2 {
		t.Errorf("iterations: got %d (model calls %d), want 2", res.Iterations, gen.calls())
	}
	if len(tools.batches) != 1 || len(tools.batches[0]) != 2 {
		t.Fatalf("batches: %+v", tools.batches)
	}
	if len(res.ToolResults) != 2 || !res.ToolResults[0].Success || res.ToolResults[1].Success {
		t.Errorf("tool results: %+v", res.ToolResults)
	}
	if res.ToolCalls[1].ToolUseID == "" {
		t.Error("tool_use_id should be assigned")
	}
	if !strings.Contains(gen.systems[0], "web_search") {
		t.Error("system prompt should list available tools")
	}
	if !strings.Contains(gen.prompts[1], "result of web_search") || !strings.Contains(gen.prompts[1], "tool exploded") {
		t.Errorf("second prompt should carry tool results:\n%s", gen.prompts[1])
	}
	if res.Template.Title != "Fitness Hub" {
		t.Errorf("template not adopted: %q", res.Template.Title)
	}
}

func TestGenerateRejectsToolsOfUnselectedServers(t *testing.T) {
	reply := `{"tool_calls":[{"tool_name":"secret_tool","tool_use_id":"s1","parameters":{}},{"tool_name":"web_search","tool_use_id":"w1","parameters":{"query":"fitness"}}]}`
	gen := &scriptedGenerator{responses: []string{reply, templateReply}}
	tools := &stubTools{defs: append(searchTools(),
		models.ToolDefinition{Name: "secret_tool", Description: "Reads private notes", ServerID: "other"})}

	res, err := newTestOrchestrator(gen, tools).Generate(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(gen.systems[0], "secret_tool") {
		t.Error("system prompt must only list tools of the selected servers")
	}
	if len(tools.batches) != 1 || len(tools.batches[0]) != 1 || tools.batches[0][0].ToolName != "web_search" {
		t.Fatalf("dispatched: %+v", tools.batches)
	}
	if len(res.ToolResults) != 2 {
		t.Fatalf("tool results: %+v", res.ToolResults)
	}
	rejected := res.ToolResults[0]
	if rejected.ToolUseID != "s1" || rejected.Success || !strings.Contains(rejected.Error, "not allowed") {
		t.Errorf("rejected call: %+v", rejected)
	}
	if !res.ToolResults[1].Success {
		t.Errorf("allowed call: %+v", res.ToolResults[1])
	}
}

func TestGenerateToolLoopRespectsBound(t *testing.T) {
	for _, max := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprint(max), func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{toolReply}}
			tools := &stubTools{defs: searchTools()}
			o := newTestOrchestrator(gen, tools)
			WithMaxIterations(max)(o)

			res, err := o.Generate(context.Background(), request(true))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if gen.calls() != max || res.Iterations != max {
				t.Errorf("model calls: got %d, want %d", gen.calls(), max)
			}
			if len(tools.batches) != max-1 {
				t.Errorf("batches: got %d, want %d", len(tools.batches), max-1)
			}
			if !res.GaveUp || !res.Fallback || len(res.Template.Blocks) < 2 {
				t.Errorf("expected gave-up fallback template: %+v", res)
			}
		})
	}
}

func TestGenerateIgnoresToolCallsWithoutMCP(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{toolReply}}
	tools := &stubTools{}

	res, err := newTestOrchestrator(gen, tools).Generate(context.Background(), request(false))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.calls() != 1 || len(tools.batches) != 0 {
		t.Errorf("expected a single model call and no dispatch")
	}
	if strings.Contains(gen.systems[0], "TOOLS:") {
		t.Error("tools must not be advertised when MCP is off")
	}
	if !res.Fallback {
		t.Error("expected fallback template")
	}
}

func TestGenerateTemplateBeatsToolCalls(t *testing.T) {
	both := `{"template":{"title":"Both","blocks":[{"type":"paragraph","content":"x"}]},"tool_calls":[{"tool_name":"web_search"}]}`
	gen := &scriptedGenerator{responses: []string{both}}
	tools := &stubTools{}

	res, err := newTestOrchestrator(gen, tools).Generate(context.Background(), request(true))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tools.batches) != 0 || res.Template.Title != "Both" {
		t.Errorf("template should stop the loop: batches=%d title=%q", len(tools.batches), res.Template.Title)
	}
}

func TestGenerateModelFailure(t *testing.T) {
	gen := &scriptedGenerator{err: fmt.Errorf("wrap: %w", ai.ErrNoProvider)}

	res, err := newTestOrchestrator(gen, nil).Generate(context.Background(), request(false))
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Code != CodeGenerationFailed {
		t.Fatalf("expected GENERATION_FAILED, got %v", err)
	}
	if !errors.Is(err, ai.ErrNoProvider) {
		t.Error("error should wrap the provider error")
	}
	if res == nil || len(res.Template.Blocks) < 2 {
		t.Error("a fallback template should accompany the error")
	}
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{templateReply}}
	req := request(false)
	req.Description = "short"
	req.Complexity = "extreme"

	res, err := newTestOrchestrator(gen, nil).Generate(context.Background(), req)
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Code != CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if res != nil || gen.calls() != 0 {
		t.Error("invalid requests must not reach the model")
	}
	if len(gerr.Details) != 2 {
		t.Errorf("details: %v", gerr.Details)
	}
}

func TestGenerateWithoutBackend(t *testing.T) {
	res, err := newTestOrchestrator(nil, nil).Generate(context.Background(), request(false))
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Code != CodeNotImplemented {
		t.Fatalf("expected NOT_IMPLEMENTED, got %v", err)
	}
	if res == nil || !res.Fallback {
		t.Error("expected fallback template")
	}
}
