// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"workspacegen/internal/models"
)

// PostgresTemplateStore handles all template-related database operations.
// Blocks and theme are stored as JSONB documents.
type PostgresTemplateStore struct {
	db *sql.DB
}

// NewPostgresTemplateStore creates a new store with the given database connection.
func NewPostgresTemplateStore(db *sql.DB) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db}
}

const templateColumns = `id, title, description, blocks, theme, is_public,
	COALESCE(notion_page_id, ''), COALESCE(shared_url, ''), created_at, updated_at`

// filterClause is shared by List and its count query. $1 is the search
// pattern (empty for none), $2 the visibility filter (NULL for none).
const filterClause = `
	WHERE ($1 = '' OR title ILIKE $1 ESCAPE '\' OR description ILIKE $1 ESCAPE '\')
	  AND ($2::boolean IS NULL OR is_public = $2)`

// All returns every template, newest first.
func (s *PostgresTemplateStore) All() ([]models.Template, error) {
	rows, err := s.db.Query(`SELECT ` + templateColumns + ` FROM templates ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// List returns one filtered page of templates.
func (s *PostgresTemplateStore) List(opts ListOptions) (*models.TemplatePage, error) {
	opts = opts.Normalize()

	pattern := ""
	if opts.Search != "" {
		pattern = "%" + escapeLike(opts.Search) + "%"
	}
	var public sql.NullBool
	if opts.IsPublic != nil {
		public = sql.NullBool{Bool: *opts.IsPublic, Valid: true}
	}

	page := &models.TemplatePage{Items: []models.Template{}, Page: opts.Page, PerPage: opts.Limit}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM templates`+filterClause, pattern, public).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}

	rows, err := s.db.Query(`SELECT `+templateColumns+` FROM templates`+filterClause+`
		ORDER BY updated_at DESC, id
		LIMIT $3 OFFSET $4`, pattern, public, opts.Limit, opts.offset())
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	items, err := scanTemplates(rows)
	if err != nil {
		return nil, err
	}
	if items != nil {
		page.Items = items
	}
	page.HasMore = opts.offset()+len(page.Items) < page.Total
	return page, nil
}

// FindByID retrieves a template by its id. Returns nil if not found.
func (s *PostgresTemplateStore) FindByID(id string) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find template by id: %w", err)
	}
	return t, nil
}

// Save inserts the template or replaces the row with the same id.
func (s *PostgresTemplateStore) Save(t *models.Template) error {
	blocks, err := json.Marshal(t.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	theme, err := json.Marshal(t.Theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO templates (id, title, description, blocks, theme, is_public,
			notion_page_id, shared_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			blocks = EXCLUDED.blocks,
			theme = EXCLUDED.theme,
			is_public = EXCLUDED.is_public,
			notion_page_id = EXCLUDED.notion_page_id,
			shared_url = EXCLUDED.shared_url,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`, t.ID, t.Title, t.Description, blocks, theme, t.IsPublic,
		t.NotionPageID, t.SharedURL, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// Delete removes a template by id.
func (s *PostgresTemplateStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

// Count returns the total number of templates.
func (s *PostgresTemplateStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*models.Template, error) {
	t := &models.Template{}
	var blocks, theme []byte
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &blocks, &theme, &t.IsPublic,
		&t.NotionPageID, &t.SharedURL, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blocks, &t.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks of %s: %w", t.ID, err)
	}
	if err := json.Unmarshal(theme, &t.Theme); err != nil {
		return nil, fmt.Errorf("decode theme of %s: %w", t.ID, err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func scanTemplates(rows *sql.Rows) ([]models.Template, error) {
	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// escapeLike escapes the ILIKE wildcards in a user search term.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
