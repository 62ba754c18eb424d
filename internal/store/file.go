// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"workspacegen/internal/jsonfile"
	"workspacegen/internal/models"
)

// TemplatesFile is the name of the file backend's document.
const TemplatesFile = "templates.json"

// FileTemplateStore keeps all templates in one JSON array on disk. Every
// write rewrites the whole document atomically.
type FileTemplateStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileTemplateStore creates a store backed by dir/templates.json. The
// file is created on first write.
func NewFileTemplateStore(dir string) *FileTemplateStore {
	return &FileTemplateStore{path: filepath.Join(dir, TemplatesFile)}
}

// All returns every template, newest first.
func (s *FileTemplateStore) All() ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	sortNewestFirst(all)
	return all, nil
}

// List returns one filtered page of templates.
func (s *FileTemplateStore) List(opts ListOptions) (*models.TemplatePage, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	return paginate(all, opts), nil
}

// FindByID retrieves a template by id. Returns nil if not found.
func (s *FileTemplateStore) FindByID(id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Save inserts t or replaces the stored template with the same id.
func (s *FileTemplateStore) Save(t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range all {
		if all[i].ID == t.ID {
			all[i] = *t
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, *t)
	}
	return s.write(all)
}

// Delete removes a template by id.
func (s *FileTemplateStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.load()
	if err != nil {
		return err
	}

	for i := range all {
		if all[i].ID == id {
			return s.write(append(all[:i], all[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Count returns the number of stored templates.
func (s *FileTemplateStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *FileTemplateStore) load() ([]models.Template, error) {
	var all []models.Template
	if _, err := jsonfile.Load(s.path, &all); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return all, nil
}

func (s *FileTemplateStore) write(all []models.Template) error {
	if all == nil {
		all = []models.Template{}
	}
	if err := jsonfile.Save(s.path, all); err != nil {
		return fmt.Errorf("save templates: %w", err)
	}
	return nil
}
