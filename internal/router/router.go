// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains of the
// workspace generator API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"workspacegen/internal/handlers"
	"workspacegen/internal/middleware"
)

// New creates and returns the configured Chi router. generateLimit guards
// POST /api/generate and may be nil to disable rate limiting.
func New(api *handlers.API, generateLimit *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if generateLimit != nil {
				r.Use(generateLimit.Middleware)
			}
			r.Post("/generate", api.Generate)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", api.ListTemplates)
			r.Post("/", api.CreateTemplate)
			r.Get("/{id}", api.GetTemplate)
			r.Put("/{id}", api.ReplaceTemplate)
			r.Patch("/{id}", api.PatchTemplate)
			r.Delete("/{id}", api.DeleteTemplate)
			r.Post("/{id}/toggle-public", api.TogglePublic)
			r.Get("/{id}/preview", api.Preview)
			r.Get("/{id}/export", api.Export)
			r.Post("/{id}/publish", api.Publish)
			r.Post("/{id}/notion", api.ShareTemplate)
		})

		r.Post("/notion/pages", api.CreateNotionPage)

		r.Get("/themes", api.Themes)

		r.Route("/ai/providers", func(r chi.Router) {
			r.Get("/", api.Providers)
			r.Put("/active", api.SetActiveProvider)
		})

		r.Route("/mcp", func(r chi.Router) {
			r.Get("/tools", api.ListTools)
			r.Route("/servers", func(r chi.Router) {
				r.Get("/", api.ListServers)
				r.Put("/", api.SaveServers)
				r.Post("/", api.AddServer)
				r.Get("/{id}", api.GetServer)
				r.Put("/{id}", api.UpdateServer)
				r.Delete("/{id}", api.DeleteServer)
				r.Post("/{id}/test", api.TestServer)
				r.Post("/{id}/discover", api.DiscoverTools)
				r.Post("/{id}/call", api.CallTool)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
