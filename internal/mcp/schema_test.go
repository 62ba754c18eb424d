// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mcp

import (
	"strings"
	"testing"

	"workspacegen/internal/models"
)

var searchSchema = models.InputSchema{
	Type: models.ParamObject,
	Properties: map[string]models.SchemaProperty{
		"query":   {Type: models.ParamString},
		"limit":   {Type: models.ParamInteger},
		"score":   {Type: models.ParamNumber},
		"exact":   {Type: models.ParamBoolean},
		"tags":    {Type: models.ParamArray},
		"filters": {Type: models.ParamObject},
		"cursor":  {Type: models.ParamNull},
	},
	Required: []string{"query", "limit"},
}

func TestValidateParameters(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   []string // substrings, one per expected problem
	}{
		{"all valid", map[string]any{
			"query": "go", "limit": float64(5), "score": 0.5, "exact": true,
			"tags": []any{"a"}, "filters": map[string]any{}, "cursor": nil,
		}, nil},
		{"extra keys allowed", map[string]any{"query": "go", "limit": 1, "other": "x"}, nil},
		{"missing required", map[string]any{"query": "go"}, []string{`missing required parameter "limit"`}},
		{"non-integral integer", map[string]any{"query": "go", "limit": 1.5}, []string{`"limit": expected integer, got number`}},
		{"every problem reported", map[string]any{"exact": "yes", "tags": "a,b"}, []string{
			`missing required parameter "query"`,
			`missing required parameter "limit"`,
			`"exact": expected boolean, got string`,
			`"tags": expected array, got string`,
		}},
		{"null for string", map[string]any{"query": nil, "limit": 1}, []string{`"query": expected string, got null`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateParameters(searchSchema, tt.params)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d problems %v, want %d", len(got), got, len(tt.want))
			}
			for i, w := range tt.want {
				if !strings.Contains(got[i], w) {
					t.Errorf("problem %d: got %q, want substring %q", i, got[i], w)
				}
			}
		})
	}
}

func TestValidateParametersEmptySchema(t *testing.T) {
	if got := ValidateParameters(models.InputSchema{}, map[string]any{"anything": 1}); len(got) != 0 {
		t.Errorf("empty schema should accept anything, got %v", got)
	}
}
