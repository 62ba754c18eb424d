// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"workspacegen/internal/models"
	"workspacegen/internal/respond"
	"workspacegen/internal/store"
	"workspacegen/internal/validation"
)

// ListTemplates handles GET /api/templates?search=&is_public=&page=&limit=.
func (a *API) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{Search: q.Get("search")}
	var errs []string

	if v := q.Get("is_public"); v != "" {
		public, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, "is_public: must be true or false")
		} else {
			opts.IsPublic = &public
		}
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &opts.Page}, {"limit", &opts.Limit}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, p.name+": must be a positive integer")
			continue
		}
		*p.dst = n
	}
	if len(errs) > 0 {
		validationFailed(w, "invalid query", errs)
		return
	}

	page, err := a.templates.List(opts)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	respond.OK(w, http.StatusOK, page)
}

// GetTemplate handles GET /api/templates/{id}.
func (a *API) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}
	respond.OK(w, http.StatusOK, t)
}

// CreateTemplate handles POST /api/templates. A missing id or missing
// timestamps are assigned; everything else must already be valid.
func (a *API) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	decoded, ok := decodeDocument(w, r, &t, false)
	if !ok {
		return
	}

	now := a.now()
	if strings.TrimSpace(t.ID) == "" {
		t.ID = a.newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if errs := validation.Merge(decoded, validation.CheckTemplate(&t)); len(errs) > 0 {
		validationFailed(w, "invalid template", errs)
		return
	}

	existing, err := a.templates.FindByID(t.ID)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	if existing != nil {
		respond.Error(w, http.StatusConflict, respond.CodeValidation, "template "+t.ID+" already exists")
		return
	}

	if err := a.templates.Save(&t); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	slog.Info("template created", "id", t.ID, "blocks", len(t.Blocks))
	respond.OK(w, http.StatusCreated, t)
}

// ReplaceTemplate handles PUT /api/templates/{id}. The document replaces the
// stored one wholesale except for id and created_at.
func (a *API) ReplaceTemplate(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	var t models.Template
	decoded, ok := decodeDocument(w, r, &t, false)
	if !ok {
		return
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	t.Touch(a.now())

	a.saveChecked(w, r, &t, decoded, http.StatusOK)
}

// PatchTemplate handles PATCH /api/templates/{id} with a partial document.
func (a *API) PatchTemplate(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	var patch models.TemplatePatch
	decoded, ok := decodeDocument(w, r, &patch, false)
	if !ok {
		return
	}
	patch.Apply(t, a.now())

	a.saveChecked(w, r, t, decoded, http.StatusOK)
}

// TogglePublic handles POST /api/templates/{id}/toggle-public. The body
// {"is_public": bool} sets the flag; an empty body flips it.
func (a *API) TogglePublic(w http.ResponseWriter, r *http.Request) {
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	var body struct {
		IsPublic *bool `json:"is_public"`
	}
	if !decodeJSON(w, r, &body, true) {
		return
	}
	public := !t.IsPublic
	if body.IsPublic != nil {
		public = *body.IsPublic
	}
	t.SetPublic(public, a.now())

	if err := a.templates.Save(t); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.invalidate(r.Context(), t.ID)
	respond.OK(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /api/templates/{id}.
func (a *API) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.templates.Delete(id); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.invalidate(r.Context(), id)
	slog.Info("template deleted", "id", id)
	respond.OK(w, http.StatusOK, map[string]string{"id": id})
}

// loadTemplate fetches the template named by the {id} URL parameter and
// writes a 404 when it does not exist.
func (a *API) loadTemplate(w http.ResponseWriter, r *http.Request) (*models.Template, bool) {
	id := chi.URLParam(r, "id")
	t, err := a.templates.FindByID(id)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return nil, false
	}
	if t == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "template "+id+" not found")
		return nil, false
	}
	return t, true
}

// saveChecked validates t, stores it and drops its cached renderings.
// decoded carries the body's type mismatches, if any.
func (a *API) saveChecked(w http.ResponseWriter, r *http.Request, t *models.Template, decoded []string, status int) {
	if errs := validation.Merge(decoded, validation.CheckTemplate(t)); len(errs) > 0 {
		validationFailed(w, "invalid template", errs)
		return
	}
	if err := a.templates.Save(t); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.invalidate(r.Context(), t.ID)
	slog.Info("template updated", "id", t.ID)
	respond.OK(w, status, t)
}

func (a *API) invalidate(ctx context.Context, id string) {
	if a.exporter != nil {
		a.exporter.Invalidate(ctx, id)
	}
}
