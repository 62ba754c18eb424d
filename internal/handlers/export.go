// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"workspacegen/internal/export"
	"workspacegen/internal/respond"
	"workspacegen/internal/slug"
)

// Preview handles GET /api/templates/{id}/preview and serves the template
// as a standalone HTML page.
func (a *API) Preview(w http.ResponseWriter, r *http.Request) {
	a.serveRendered(w, r, export.FormatHTML, false)
}

// Export handles GET /api/templates/{id}/export?format=json|markdown|html
// and serves the rendering as a download.
func (a *API) Export(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, r, err, http.StatusBadRequest, respond.CodeValidation)
		return
	}
	a.serveRendered(w, r, f, true)
}

// Publish handles POST /api/templates/{id}/publish?format= and uploads the
// rendering to object storage.
func (a *API) Publish(w http.ResponseWriter, r *http.Request) {
	if a.exporter == nil || !a.exporter.CanPublish() {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "object storage is not configured")
		return
	}
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, r, err, http.StatusBadRequest, respond.CodeValidation)
		return
	}
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	pub, err := a.exporter.Publish(r.Context(), t, f)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeExternalService)
		return
	}
	respond.OK(w, http.StatusCreated, pub)
}

func (a *API) serveRendered(w http.ResponseWriter, r *http.Request, f export.Format, download bool) {
	if a.exporter == nil {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "export is not configured")
		return
	}
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	data, err := a.exporter.Render(r.Context(), t, f)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodeInternal)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	if download {
		name := fmt.Sprintf("%s-%s.%s", slug.ForKey(t.Title, 0), t.ID, f.Ext())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("write rendering", "id", t.ID, "format", f, "error", err)
	}
}
