// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"workspacegen/internal/models"
)

func sampleTemplate() *models.Template {
	created := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	theme, _ := models.ThemePreset("dark")
	return &models.Template{
		ID:          "tmpl-42",
		Title:       "Fitness Tracker",
		Description: "Weekly goals and progress",
		Theme:       theme,
		Blocks: []models.Block{
			{ID: "b1", Type: models.BlockHeading, Content: "Goals", Level: 2},
			{ID: "b2", Type: models.BlockParagraph, Content: "Stay consistent."},
			{ID: "b3", Type: models.BlockQuote, Content: "Small steps\nevery day"},
			{ID: "b4", Type: models.BlockCode, Content: "fmt.Println(\"go\")", Properties: map[string]any{"language": "go"}},
			{ID: "b5", Type: models.BlockImage, Content: "https://example.com/run.png"},
			{ID: "b6", Type: models.BlockDivider},
			{ID: "b7", Type: models.BlockDatabase, Content: "Workouts", Properties: map[string]any{
				"columns": []any{"Date", "Minutes"},
				"rows":    []any{[]any{"Mon", float64(30)}},
			}, Children: []models.Block{{ID: "b8", Type: models.BlockParagraph, Content: "Log each session."}}},
			{ID: "b9", Type: models.BlockTable, Content: "Plan"},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"JSON", FormatJSON},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{" html ", FormatHTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("pdf: expected ErrUnknownFormat, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := string(RenderMarkdown(sampleTemplate()))
	want := "# Fitness Tracker\n\n" +
		"_Weekly goals and progress_\n\n" +
		"## Goals\n\n" +
		"Stay consistent.\n\n" +
		"> Small steps\n> every day\n\n" +
		"```go\nfmt.Println(\"go\")\n```\n\n" +
		"![image](https://example.com/run.png)\n\n" +
		"---\n\n" +
		"**Workouts**\n\n| Date | Minutes |\n| --- | --- |\n| Mon | 30 |\n\n" +
		"Log each session.\n\n" +
		"**Plan**\n\n| Item |\n| --- |\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("markdown mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderMarkdownEscapes(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.Blocks = []models.Block{
		{ID: "c", Type: models.BlockCode, Content: "```\nnested\n```"},
		{ID: "t", Type: models.BlockTable, Content: "T", Properties: map[string]any{"columns": []any{"a|b"}}},
	}
	got := string(RenderMarkdown(tmpl))
	if !strings.Contains(got, "````\n```\nnested\n```\n````") {
		t.Errorf("code fence should grow past nested fences:\n%s", got)
	}
	if !strings.Contains(got, `| a\|b |`) {
		t.Errorf("pipes in cells should be escaped:\n%s", got)
	}
}

func TestRenderHTML(t *testing.T) {
	tmpl := sampleTemplate()
	tmpl.Title = "Tracker <script>alert(1)</script>"
	tmpl.Blocks = append(tmpl.Blocks, models.Block{ID: "raw", Type: models.BlockParagraph, Content: "<iframe src=\"x\"></iframe>"})

	out, err := RenderHTML(tmpl)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"--background: " + tmpl.Theme.Colors.Background,
		"--primary: " + tmpl.Theme.Colors.Primary,
		"&lt;script&gt;",
		`<section class="block block-heading">`,
		"<h2",
		"<blockquote>",
		"<pre",
		`<img src="https://example.com/run.png"`,
		"<hr>",
		"<table>",
		`<div class="block-children">`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "<script>") || strings.Contains(page, "<iframe") {
		t.Error("raw HTML must not reach the page")
	}
}

type fakeUploader struct {
	keys  []string
	types []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, key, contentType string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	return "https://cdn.example.com/" + key, nil
}

func TestExporterRenderCachesPerVersion(t *testing.T) {
	e, err := New(nil, nil, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	tmpl := sampleTemplate()

	first, err := e.Render(ctx, tmpl, FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Same version: served from cache even though the in-memory copy changed.
	tmpl.Title = "Changed"
	cached, _ := e.Render(ctx, tmpl, FormatMarkdown)
	if string(cached) != string(first) {
		t.Error("expected cached rendering for an unchanged updated_at")
	}

	// New version: re-rendered.
	tmpl.UpdatedAt = tmpl.UpdatedAt.Add(time.Second)
	fresh, _ := e.Render(ctx, tmpl, FormatMarkdown)
	if !strings.HasPrefix(string(fresh), "# Changed") {
		t.Errorf("expected re-render, got %q", fresh[:20])
	}

	// Invalidate drops the cached version.
	tmpl.Title = "Again"
	e.Invalidate(ctx, tmpl.ID)
	again, _ := e.Render(ctx, tmpl, FormatMarkdown)
	if !strings.HasPrefix(string(again), "# Again") {
		t.Errorf("expected re-render after Invalidate, got %q", again[:20])
	}
}

func TestExporterRenderJSON(t *testing.T) {
	e, _ := New(nil, nil, 0)
	tmpl := sampleTemplate()

	data, err := e.Render(context.Background(), tmpl, FormatJSON)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got models.Template
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(*tmpl, got); diff != "" {
		t.Errorf("json export mismatch (-want +got):\n%s", diff)
	}

	if _, err := e.Render(context.Background(), tmpl, Format("pdf")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	tmpl := sampleTemplate()

	t.Run("not configured", func(t *testing.T) {
		e, _ := New(nil, nil, 0)
		if e.CanPublish() {
			t.Error("CanPublish should be false")
		}
		if _, err := e.Publish(ctx, tmpl, FormatHTML); !errors.Is(err, ErrStorageNotConfigured) {
			t.Errorf("expected ErrStorageNotConfigured, got %v", err)
		}
	})

	t.Run("uploads under dated key", func(t *testing.T) {
		up := &fakeUploader{}
		e, _ := New(nil, up, 0)
		e.now = func() time.Time { return time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC) }

		pub, err := e.Publish(ctx, tmpl, FormatHTML)
		if err != nil {
			t.Fatalf("Publish: %v", err)
		}
		wantKey := "exports/2026/07/fitness-tracker-tmpl-42.html"
		if pub.Key != wantKey || pub.URL != "https://cdn.example.com/"+wantKey {
			t.Errorf("got %+v", pub)
		}
		if pub.Size == 0 || up.types[0] != "text/html; charset=utf-8" {
			t.Errorf("unexpected upload: %+v %v", pub, up.types)
		}
	})

	t.Run("upload failure", func(t *testing.T) {
		e, _ := New(nil, &fakeUploader{err: errors.New("denied")}, 0)
		if _, err := e.Publish(ctx, tmpl, FormatJSON); err == nil || !strings.Contains(err.Error(), "denied") {
			t.Errorf("expected wrapped upload error, got %v", err)
		}
	})
}

func TestObjectKeyUntitled(t *testing.T) {
	tmpl := &models.Template{ID: "x1", Title: "???"}
	got := ObjectKey(tmpl, FormatMarkdown, time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC))
	if got != "exports/2026/01/untitled-x1.md" {
		t.Errorf("got %q", got)
	}
}
