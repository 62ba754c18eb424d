// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"workspacegen/internal/models"
	"workspacegen/internal/notion"
	"workspacegen/internal/respond"
	"workspacegen/internal/validation"
)

type createPageRequest struct {
	Template *models.Template `json:"template"`
	Parent   notion.Parent    `json:"parent"`
}

// sharedPage is the result of pushing a stored template.
type sharedPage struct {
	Page     *notion.Page     `json:"page"`
	Template *models.Template `json:"template"`
}

// CreateNotionPage handles POST /api/notion/pages with a template document
// and an optional parent.
func (a *API) CreateNotionPage(w http.ResponseWriter, r *http.Request) {
	if !a.notionConfigured(w) {
		return
	}

	var req createPageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Template == nil {
		validationFailed(w, "invalid request", []string{"template: is required"})
		return
	}
	errs := validation.CheckTemplate(req.Template)
	if err := req.Parent.Validate(); err != nil {
		errs = append(errs, "parent: "+err.Error())
	}
	if len(errs) > 0 {
		validationFailed(w, "invalid request", errs)
		return
	}

	page, err := a.notion.CreatePage(r.Context(), req.Template, req.Parent)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeExternalService)
		return
	}
	respond.OK(w, http.StatusCreated, page)
}

// ShareTemplate handles POST /api/templates/{id}/notion. The created page is
// recorded on the stored template as notion_page_id and shared_url.
func (a *API) ShareTemplate(w http.ResponseWriter, r *http.Request) {
	if !a.notionConfigured(w) {
		return
	}
	t, ok := a.loadTemplate(w, r)
	if !ok {
		return
	}

	var body struct {
		Parent notion.Parent `json:"parent"`
	}
	if !decodeJSON(w, r, &body, true) {
		return
	}
	if err := body.Parent.Validate(); err != nil {
		validationFailed(w, "invalid request", []string{"parent: " + err.Error()})
		return
	}

	page, err := a.notion.CreatePage(r.Context(), t, body.Parent)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway, respond.CodeExternalService)
		return
	}

	t.NotionPageID = page.ID
	t.SharedURL = page.URL
	t.Touch(a.now())
	if err := a.templates.Save(t); err != nil {
		fail(w, r, err, http.StatusInternalServerError, respond.CodePersistence)
		return
	}
	a.invalidate(r.Context(), t.ID)
	respond.OK(w, http.StatusCreated, sharedPage{Page: page, Template: t})
}

func (a *API) notionConfigured(w http.ResponseWriter) bool {
	if a.notion == nil {
		respond.Error(w, http.StatusNotImplemented, respond.CodeNotImplemented, "document service is not configured")
		return false
	}
	return true
}
