// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Templates and tool servers live in a temporary directory, the language
// model and tool servers are in-process fakes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"workspacegen/internal/ai"
	"workspacegen/internal/export"
	"workspacegen/internal/generate"
	"workspacegen/internal/mcp"
	"workspacegen/internal/models"
	"workspacegen/internal/respond"
	"workspacegen/internal/store"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

// mockAIProvider implements ai.Provider for handler tests.
type mockAIProvider struct {
	name     string
	response string
	err      error
}

func (m *mockAIProvider) Name() string { return m.name }
func (m *mockAIProvider) Generate(_ context.Context, _, _ string) (*ai.Generation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ai.Generation{Text: m.response, TokensUsed: 7, FinishReason: ai.FinishStop}, nil
}

// fakeToolClient answers every server with the same tools.
type fakeToolClient struct {
	mu    sync.Mutex
	calls []string
	tools []models.ToolDefinition
	err   error
}

func (f *fakeToolClient) Initialize(ctx context.Context) (*mcp.ServerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &mcp.ServerInfo{Name: "fake-tools", Version: "1.0.0"}, nil
}

func (f *fakeToolClient) ListTools(ctx context.Context) ([]models.ToolDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tools, nil
}

func (f *fakeToolClient) CallTool(ctx context.Context, name string, args map[string]any) (*models.ToolResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.ToolResponse{Content: []models.ContentItem{
		{Type: models.ContentText, Text: fmt.Sprintf("%s(%v)", name, args["query"])},
	}}, nil
}

func (f *fakeToolClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var errUnreachable = fmt.Errorf("%w: dial tcp: connection refused", mcp.ErrTransport)

// fakeUploader records uploads instead of talking to object storage.
type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.example.com/" + key, nil
}

const modelReply = "```json\n" + `{"template":{"title":"Fitness Hub","description":"Track workouts and weekly goals","blocks":[
{"id":"h","type":"heading","content":"Fitness Hub","level":1},
{"id":"p","type":"paragraph","content":"Your weekly plan."}
]}}` + "\n```"

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Templates  *store.FileTemplateStore
	Providers  *ai.Registry
	Servers    *mcp.ServerStore
	Tools      *mcp.Registry
	ToolClient *fakeToolClient
	Exporter   *export.Exporter
	API        *API
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	templates := store.NewFileTemplateStore(dir)

	providers := ai.NewRegistry("mock", nil)
	providers.Register("mock", &mockAIProvider{name: "mock", response: modelReply})

	servers, err := mcp.OpenServerStore(dir)
	if err != nil {
		t.Fatalf("OpenServerStore: %v", err)
	}
	client := &fakeToolClient{tools: []models.ToolDefinition{{
		Name:        "web_search",
		Description: "Search the web",
		InputSchema: models.InputSchema{
			Type:       models.ParamObject,
			Properties: map[string]models.SchemaProperty{"query": {Type: models.ParamString}},
			Required:   []string{"query"},
		},
	}}}
	tools := mcp.NewRegistry(servers, func(models.MCPServer) mcp.Client { return client })

	exporter, err := export.New(nil, nil, 0)
	if err != nil {
		t.Fatalf("export.New: %v", err)
	}

	n := 0
	orchestrator := generate.New(providers, tools,
		generate.WithClock(func() time.Time { return testNow }),
		generate.WithIDFunc(func() string { n++; return fmt.Sprintf("gen-%d", n) }),
	)

	api := New(Deps{
		Templates: templates,
		Generator: orchestrator,
		Providers: providers,
		Tools:     tools,
		Servers:   servers,
		Exporter:  exporter,
	})
	api.now = func() time.Time { return testNow }
	ids := 0
	api.newID = func() string { ids++; return fmt.Sprintf("id-%d", ids) }

	return &testEnv{
		Templates:  templates,
		Providers:  providers,
		Servers:    servers,
		Tools:      tools,
		ToolClient: client,
		Exporter:   exporter,
		API:        api,
	}
}

// seedTemplate stores a valid template created an hour before testNow.
func (env *testEnv) seedTemplate(t *testing.T, id, title string) *models.Template {
	t.Helper()
	theme, _ := models.ThemePreset("light")
	created := testNow.Add(-time.Hour)
	tmpl := &models.Template{
		ID:          id,
		Title:       title,
		Description: "A workspace called " + title,
		Theme:       theme,
		Blocks: []models.Block{
			{ID: "b1", Type: models.BlockHeading, Content: title, Level: 1},
			{ID: "b2", Type: models.BlockParagraph, Content: "Plan | track | repeat."},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := env.Templates.Save(tmpl); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return tmpl
}

// addServer stores an active tool server.
func (env *testEnv) addServer(t *testing.T, id string, active bool) {
	t.Helper()
	err := env.Servers.Add(models.MCPServer{
		ID: id, Name: strings.ToUpper(id), URL: "https://" + id + ".example.com/mcp",
		AuthType: models.AuthNone, Active: active,
	})
	if err != nil {
		t.Fatalf("add server %s: %v", id, err)
	}
}

// serve calls h with a request built from method, target and body. params
// are chi URL parameters as key, value pairs.
func serve(h http.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// envelope mirrors respond.Envelope with the data left undecoded.
type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *respond.ErrorBody `json:"error"`
}

// decodeEnvelope checks the status code and decodes the response body. When
// out is non-nil the data member is decoded into it.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, out any) envelope {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status: got %d, want %d; body: %s", rec.Code, wantStatus, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body: %s", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v; data: %s", err, env.Data)
		}
	}
	return env
}

// wantError asserts a failure envelope with the given status and code.
func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) *respond.ErrorBody {
	t.Helper()
	env := decodeEnvelope(t, rec, status, nil)
	if env.Success || env.Error == nil {
		t.Fatalf("expected failure envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Fatalf("code: got %q, want %q (%s)", env.Error.Code, code, env.Error.Message)
	}
	return env.Error
}

func hasDetail(details []string, prefix string) bool {
	for _, d := range details {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

var errProviderDown = errors.New("provider unreachable")
