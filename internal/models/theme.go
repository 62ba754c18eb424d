// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Spacing controls the vertical rhythm of a rendered template.
type Spacing string

const (
	SpacingCompact     Spacing = "compact"
	SpacingComfortable Spacing = "comfortable"
	SpacingSpacious    Spacing = "spacious"
)

// Valid reports whether s is a known spacing category.
func (s Spacing) Valid() bool {
	switch s {
	case SpacingCompact, SpacingComfortable, SpacingSpacious:
		return true
	}
	return false
}

// ThemeColors holds the six palette entries, each a #RGB or #RRGGBB hex color.
type ThemeColors struct {
	Primary    string `json:"primary" yaml:"primary" validate:"themecolor"`
	Secondary  string `json:"secondary" yaml:"secondary" validate:"themecolor"`
	Background string `json:"background" yaml:"background" validate:"themecolor"`
	Surface    string `json:"surface" yaml:"surface" validate:"themecolor"`
	Text       string `json:"text" yaml:"text" validate:"themecolor"`
	Accent     string `json:"accent" yaml:"accent" validate:"themecolor"`
}

// ThemeFonts is the heading/body font pair.
type ThemeFonts struct {
	Heading string `json:"heading" yaml:"heading" validate:"notblank"`
	Body    string `json:"body" yaml:"body" validate:"notblank"`
}

// Theme is the visual style attached to a template.
type Theme struct {
	Name    string      `json:"name" yaml:"name" validate:"notblank"`
	Colors  ThemeColors `json:"colors" yaml:"colors"`
	Fonts   ThemeFonts  `json:"fonts" yaml:"fonts"`
	Spacing Spacing     `json:"spacing" yaml:"spacing" validate:"oneof=compact comfortable spacious"`
}

// ThemeRef is either a named preset or a full theme. On the wire it is a
// JSON string ("dark") or a Theme object.
type ThemeRef struct {
	Preset string
	Custom *Theme
}

// UnmarshalJSON accepts either a preset name or a theme object. On a type
// mismatch inside the object the partly decoded theme is kept next to the
// returned error.
func (r *ThemeRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ThemeRef{}
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = ThemeRef{Preset: name}
		return nil
	}
	var t Theme
	err := json.Unmarshal(data, &t)
	var typeErr *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeErr) {
		return err
	}
	*r = ThemeRef{Custom: &t}
	return err
}

// MarshalJSON writes the preset name or the custom theme object.
func (r ThemeRef) MarshalJSON() ([]byte, error) {
	if r.Custom != nil {
		return json.Marshal(r.Custom)
	}
	if r.Preset == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.Preset)
}

// DefaultThemeName is used when a request names no theme at all.
const DefaultThemeName = "light"

var (
	presetsMu sync.RWMutex
	presets   = map[string]Theme{
		"light": {
			Name:    "light",
			Colors:  ThemeColors{Primary: "#2563eb", Secondary: "#64748b", Background: "#ffffff", Surface: "#f8fafc", Text: "#0f172a", Accent: "#f59e0b"},
			Fonts:   ThemeFonts{Heading: "Inter", Body: "Inter"},
			Spacing: SpacingComfortable,
		},
		"dark": {
			Name:    "dark",
			Colors:  ThemeColors{Primary: "#60a5fa", Secondary: "#94a3b8", Background: "#0f172a", Surface: "#1e293b", Text: "#f1f5f9", Accent: "#fbbf24"},
			Fonts:   ThemeFonts{Heading: "Inter", Body: "Inter"},
			Spacing: SpacingComfortable,
		},
		"minimal": {
			Name:    "minimal",
			Colors:  ThemeColors{Primary: "#111", Secondary: "#555", Background: "#fff", Surface: "#fafafa", Text: "#111", Accent: "#888"},
			Fonts:   ThemeFonts{Heading: "Helvetica Neue", Body: "Helvetica Neue"},
			Spacing: SpacingSpacious,
		},
		"vibrant": {
			Name:    "vibrant",
			Colors:  ThemeColors{Primary: "#db2777", Secondary: "#7c3aed", Background: "#fdf4ff", Surface: "#ffffff", Text: "#1f1235", Accent: "#10b981"},
			Fonts:   ThemeFonts{Heading: "Poppins", Body: "Nunito"},
			Spacing: SpacingComfortable,
		},
		"corporate": {
			Name:    "corporate",
			Colors:  ThemeColors{Primary: "#1e3a8a", Secondary: "#475569", Background: "#ffffff", Surface: "#f1f5f9", Text: "#1e293b", Accent: "#0891b2"},
			Fonts:   ThemeFonts{Heading: "Georgia", Body: "Source Sans Pro"},
			Spacing: SpacingCompact,
		},
	}
)

// ThemePreset returns the named preset.
func ThemePreset(name string) (Theme, bool) {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	t, ok := presets[name]
	return t, ok
}

// ThemePresets returns all presets sorted by name.
func ThemePresets() []Theme {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	out := make([]Theme, 0, len(presets))
	for _, t := range presets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadThemePresets reads additional presets from a YAML file of the form
//
//	themes:
//	  - name: ocean
//	    colors: {primary: "#0369a1", ...}
//	    fonts: {heading: Lato, body: Lato}
//	    spacing: comfortable
//
// Presets with an existing name replace the built-in one. Callers are
// expected to validate the loaded themes; see validation.CheckTheme.
func LoadThemePresets(path string) ([]Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme presets: %w", err)
	}
	var doc struct {
		Themes []Theme `yaml:"themes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse theme presets: %w", err)
	}
	return doc.Themes, nil
}

// RegisterThemePreset adds or replaces a preset by name.
func RegisterThemePreset(t Theme) {
	presetsMu.Lock()
	defer presetsMu.Unlock()
	presets[t.Name] = t
}
