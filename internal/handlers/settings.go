// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"workspacegen/internal/models"
	"workspacegen/internal/respond"
)

// knownProviders lists the providers the generator can talk to, in display
// order.
var knownProviders = []struct{ name, label string }{
	{"openai", "OpenAI"},
	{"gemini", "Google Gemini"},
	{"claude", "Anthropic Claude"},
	{"mistral", "Mistral"},
}

// ProviderInfo describes one language model provider. API keys are never
// exposed.
type ProviderInfo struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Configured bool   `json:"configured"`
	Active     bool   `json:"active"`
}

type providersResponse struct {
	Active    string         `json:"active"`
	Providers []ProviderInfo `json:"providers"`
}

// Themes handles GET /api/themes.
func (a *API) Themes(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, http.StatusOK, models.ThemePresets())
}

// Providers handles GET /api/ai/providers.
func (a *API) Providers(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, http.StatusOK, a.providerStatus())
}

// SetActiveProvider handles PUT /api/ai/providers/active with {"name": ...}.
func (a *API) SetActiveProvider(w http.ResponseWriter, r *http.Request) {
	if a.providers == nil {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "no language model providers are configured")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body, false) {
		return
	}
	name := strings.ToLower(strings.TrimSpace(body.Name))
	if name == "" {
		validationFailed(w, "invalid request", []string{"name: is required"})
		return
	}

	if err := a.providers.SetActive(name); err != nil {
		fail(w, r, err, http.StatusBadRequest, respond.CodeValidation)
		return
	}
	slog.Info("active AI provider changed", "provider", name)
	respond.OK(w, http.StatusOK, a.providerStatus())
}

func (a *API) providerStatus() providersResponse {
	out := providersResponse{Providers: make([]ProviderInfo, 0, len(knownProviders))}
	if a.providers != nil {
		out.Active = a.providers.ActiveName()
	}
	for _, p := range knownProviders {
		configured := a.providers != nil && a.providers.HasProvider(p.name)
		out.Providers = append(out.Providers, ProviderInfo{
			Name:       p.name,
			Label:      p.label,
			Configured: configured,
			Active:     configured && p.name == out.Active,
		})
	}
	return out
}
