// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Complexity hints how elaborate the generated workspace should be.
type Complexity string

const (
	ComplexitySimple       Complexity = "simple"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// Valid reports whether c is a known complexity level.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityIntermediate, ComplexityAdvanced:
		return true
	}
	return false
}

// GenerationRequest is the transient input of one generation call.
// SelectedMCPServers and SelectedServers are aliases accepted for
// compatibility with both client shapes; Servers merges them.
type GenerationRequest struct {
	Description        string     `json:"description" validate:"min=10,max=2000"`
	Theme              ThemeRef   `json:"theme" validate:"-"`
	UseMCP             bool       `json:"useMCP"`
	SelectedMCPServers []string   `json:"selectedMCPServers,omitempty" validate:"dive,serverid"`
	SelectedServers    []string   `json:"selectedServers,omitempty" validate:"dive,serverid"`
	IncludeImages      bool       `json:"includeImages"`
	TargetAudience     string     `json:"targetAudience,omitempty" validate:"max=200"`
	Complexity         Complexity `json:"complexity,omitempty" validate:"omitempty,oneof=simple intermediate advanced"`
}

// Servers returns the de-duplicated union of both server selection fields.
// It is empty unless UseMCP is set.
func (r *GenerationRequest) Servers() []string {
	if !r.UseMCP {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{r.SelectedMCPServers, r.SelectedServers} {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ResolveTheme returns the effective theme: the custom theme if present,
// otherwise the named preset (DefaultThemeName when none is named).
func (r *GenerationRequest) ResolveTheme() (Theme, bool) {
	if r.Theme.Custom != nil {
		return *r.Theme.Custom, true
	}
	name := r.Theme.Preset
	if name == "" {
		name = DefaultThemeName
	}
	return ThemePreset(name)
}
