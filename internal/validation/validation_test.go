// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package validation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"workspacegen/internal/models"
)

// hasError reports whether any violation starts with the given field path.
func hasError(errs []string, field string) bool {
	for _, e := range errs {
		if strings.HasPrefix(e, field+":") {
			return true
		}
	}
	return false
}

func TestGenerationRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string // empty means the payload must be accepted
	}{
		{"valid preset", `{"description":"A fitness tracker with weekly goals","theme":"dark","complexity":"simple"}`, nil},
		{"valid without theme", `{"description":"A reading list for the year"}`, nil},
		{"description too short", `{"description":"short"}`, []string{"description"}},
		{"description too long", `{"description":"` + strings.Repeat("a", 2001) + `"}`, []string{"description"}},
		{"unknown preset", `{"description":"A reading list for the year","theme":"neon"}`, []string{"theme"}},
		{"bad complexity", `{"description":"A reading list for the year","complexity":"expert"}`, []string{"complexity"}},
		{"audience too long", `{"description":"A reading list for the year","targetAudience":"` + strings.Repeat("x", 201) + `"}`, []string{"targetAudience"}},
		{"bad server id", `{"description":"A reading list for the year","useMCP":true,"selectedMCPServers":["Good-One"]}`, []string{"selectedMCPServers.0"}},
		{
			"all violations reported",
			`{"description":"tiny","complexity":"huge","theme":{"name":"x","colors":{"primary":"red","secondary":"#fff","background":"#000000","surface":"#111","text":"#222","accent":"#333"},"fonts":{"heading":"A","body":"B"},"spacing":"roomy"}}`,
			[]string{"description", "complexity", "theme.colors.primary", "theme.spacing"},
		},
		{"type mismatch", `{"description":42}`, []string{"description"}},
		{
			"type mismatch does not hide other fields",
			`{"description":"short","useMCP":"yes","complexity":"extreme","theme":"dark"}`,
			[]string{"description", "useMCP", "complexity"},
		},
		{
			"theme type mismatch does not hide other fields",
			`{"description":"short","theme":{"name":"x","colors":{"primary":1,"secondary":"#fff","background":"#000","surface":"#111","text":"#222","accent":"#333"},"fonts":{"heading":"A","body":"B"},"spacing":"roomy"}}`,
			[]string{"description", "theme.colors.primary", "theme.spacing"},
		},
		{"theme of wrong kind", `{"description":"A reading list for the year","theme":5}`, []string{"theme"}},
		{"invalid json", `{"description":`, []string{"body"}},
		{"empty body", ``, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := GenerationRequest([]byte(tt.body))
			if len(tt.wantFields) == 0 {
				if !res.Success {
					t.Fatalf("expected success, got errors: %v", res.Errors)
				}
				return
			}
			if res.Success {
				t.Fatal("expected failure, got success")
			}
			for _, f := range tt.wantFields {
				if !hasError(res.Errors, f) {
					t.Errorf("expected violation for %q in %v", f, res.Errors)
				}
			}
			if len(res.Errors) != len(tt.wantFields) {
				t.Errorf("got %d violations, want %d: %v", len(res.Errors), len(tt.wantFields), res.Errors)
			}
		})
	}
}

func TestTypeMismatchMessage(t *testing.T) {
	res := GenerationRequest([]byte(`{"description":"A reading list for the year","useMCP":"yes"}`))
	want := "useMCP: must be a boolean (got string)"
	if len(res.Errors) != 1 || res.Errors[0] != want {
		t.Errorf("got %v, want [%s]", res.Errors, want)
	}
}

func TestDecode(t *testing.T) {
	var s models.MCPServer
	errs, ok := Decode([]byte(`{"id":"s","name":7,"url":"https://a.example"}`), &s)
	if !ok {
		t.Fatalf("a field type mismatch should leave the document usable: %v", errs)
	}
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "name:") {
		t.Errorf("errors: got %v", errs)
	}
	if s.ID != "s" || s.URL != "https://a.example" {
		t.Errorf("other fields not decoded: %+v", s)
	}

	for _, body := range []string{``, `{"id":`, `[1,2]`} {
		errs, ok := Decode([]byte(body), &s)
		if ok || len(errs) != 1 || !strings.HasPrefix(errs[0], "body:") {
			t.Errorf("%q: got ok=%v errs=%v", body, ok, errs)
		}
	}
}

func TestMerge(t *testing.T) {
	decoded := []string{"theme: must be an object (got number)", "name: must be a string (got number)"}
	checks := []string{"name: is required", "theme.colors.primary: bad", "themes: other", "url: is required"}
	got := Merge(decoded, checks)
	want := []string{decoded[0], decoded[1], "themes: other", "url: is required"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDescriptionMessagesDistinguishBounds(t *testing.T) {
	short := GenerationRequest([]byte(`{"description":"too few"}`))
	if len(short.Errors) != 1 || !strings.Contains(short.Errors[0], "too short") {
		t.Errorf("short: got %v", short.Errors)
	}

	long := GenerationRequest([]byte(`{"description":"` + strings.Repeat("b", 2001) + `"}`))
	if len(long.Errors) != 1 || !strings.Contains(long.Errors[0], "too long") {
		t.Errorf("long: got %v", long.Errors)
	}

	// Boundaries are inclusive.
	for _, n := range []int{10, 2000} {
		res := GenerationRequest([]byte(`{"description":"` + strings.Repeat("c", n) + `"}`))
		if !res.Success {
			t.Errorf("length %d should be accepted: %v", n, res.Errors)
		}
	}
}

func TestThemeColors(t *testing.T) {
	good := []string{"#fff", "#FFF", "#a1B2c3", "#000000", "#abc"}
	bad := []string{"fff", "#ffff", "#12345", "#1234567", "#ggg", "red", "", " #fff", "#fff "}

	base := func(color string) models.Theme {
		return models.Theme{
			Name:    "t",
			Colors:  models.ThemeColors{Primary: color, Secondary: "#111", Background: "#222", Surface: "#333", Text: "#444", Accent: "#555"},
			Fonts:   models.ThemeFonts{Heading: "A", Body: "B"},
			Spacing: models.SpacingCompact,
		}
	}

	for _, c := range good {
		th := base(c)
		if errs := CheckTheme("theme", &th); len(errs) != 0 {
			t.Errorf("%q should be accepted, got %v", c, errs)
		}
	}
	for _, c := range bad {
		th := base(c)
		errs := CheckTheme("theme", &th)
		if len(errs) != 1 || !strings.HasPrefix(errs[0], "theme.colors.primary:") {
			t.Errorf("%q should be rejected naming theme.colors.primary, got %v", c, errs)
		}
	}
}

func TestBuiltinPresetsAreValid(t *testing.T) {
	for _, th := range models.ThemePresets() {
		th := th
		if errs := CheckTheme("theme", &th); len(errs) != 0 {
			t.Errorf("preset %q invalid: %v", th.Name, errs)
		}
	}
}

func validTemplate() models.Template {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	theme, _ := models.ThemePreset("light")
	return models.Template{
		ID:          "tmpl-1",
		Title:       "Reading list",
		Description: "A reading list for the year",
		Theme:       theme,
		Blocks: []models.Block{
			{ID: "b1", Type: models.BlockHeading, Content: "Reading list", Level: 1},
			{ID: "b2", Type: models.BlockParagraph, Content: "Books to read."},
			{ID: "b3", Type: models.BlockImage, Content: "https://example.com/cover.png"},
			{ID: "b4", Type: models.BlockDivider},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCheckTemplate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tmpl := validTemplate()
		if errs := CheckTemplate(&tmpl); len(errs) != 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("via payload", func(t *testing.T) {
		data, _ := json.Marshal(validTemplate())
		res := Template(data)
		if !res.Success {
			t.Fatalf("expected success: %v", res.Errors)
		}
		if res.Data.ID != "tmpl-1" {
			t.Errorf("data not decoded: %+v", res.Data)
		}
	})

	tests := []struct {
		name   string
		mutate func(*models.Template)
		field  string
	}{
		{"missing id", func(m *models.Template) { m.ID = "" }, "id"},
		{"missing title", func(m *models.Template) { m.Title = " " }, "title"},
		{"no blocks", func(m *models.Template) { m.Blocks = nil }, "blocks"},
		{"unknown block type", func(m *models.Template) { m.Blocks[1].Type = "callout" }, "blocks.1.type"},
		{"heading level out of range", func(m *models.Template) { m.Blocks[0].Level = 4 }, "blocks.0.level"},
		{"level on paragraph", func(m *models.Template) { m.Blocks[1].Level = 2 }, "blocks.1.level"},
		{"relative image url", func(m *models.Template) { m.Blocks[2].Content = "/cover.png" }, "blocks.2.content"},
		{"duplicate nested id", func(m *models.Template) {
			m.Blocks[1].Children = []models.Block{{ID: "b1", Type: models.BlockParagraph, Content: "dup"}}
		}, "blocks.1.children.0.id"},
		{"updated before created", func(m *models.Template) { m.UpdatedAt = m.CreatedAt.Add(-time.Second) }, "updated_at"},
		{"bad shared url", func(m *models.Template) { m.SharedURL = "not a url" }, "shared_url"},
		{"bad spacing", func(m *models.Template) { m.Theme.Spacing = "airy" }, "theme.spacing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.mutate(&tmpl)
			errs := CheckTemplate(&tmpl)
			if !hasError(errs, tt.field) {
				t.Errorf("expected violation for %q, got %v", tt.field, errs)
			}
		})
	}
}

func TestMCPServer(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{"valid", `{"id":"web-search_1","name":"Search","url":"https://tools.example.com/mcp","auth_type":"bearer","key":"k","active":true}`, nil},
		{"uppercase id", `{"id":"Search","name":"Search","url":"https://tools.example.com","auth_type":"none"}`, []string{"id"}},
		{"relative url", `{"id":"s","name":"Search","url":"tools/mcp","auth_type":"none"}`, []string{"url"}},
		{"unknown auth", `{"id":"s","name":"Search","url":"http://localhost:9000","auth_type":"basic"}`, []string{"auth_type"}},
		{"everything missing", `{}`, []string{"id", "name", "url", "auth_type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MCPServer([]byte(tt.body))
			if len(tt.wantFields) == 0 {
				if !res.Success {
					t.Fatalf("expected success, got %v", res.Errors)
				}
				return
			}
			if res.Success {
				t.Fatal("expected failure")
			}
			for _, f := range tt.wantFields {
				if !hasError(res.Errors, f) {
					t.Errorf("expected violation for %q in %v", f, res.Errors)
				}
			}
		})
	}
}

func TestValidateBySchemaName(t *testing.T) {
	res := Validate(SchemaMCPServer, []byte(`{"id":"a","name":"A","url":"https://a.example","auth_type":"none"}`))
	if !res.Success {
		t.Fatalf("expected success: %v", res.Errors)
	}
	if _, ok := res.Data.(models.MCPServer); !ok {
		t.Errorf("data: got %T, want models.MCPServer", res.Data)
	}

	res = Validate("unknown", []byte(`{}`))
	if res.Success || len(res.Errors) != 1 {
		t.Errorf("unknown schema should fail with one error, got %+v", res)
	}
}
