// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mcp

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"workspacegen/internal/jsonfile"
	"workspacegen/internal/models"
)

// ServersFile is the name of the server configuration document.
const ServersFile = "mcp-servers.json"

// ErrServerExists is returned when adding a server whose id is taken.
var ErrServerExists = errors.New("mcp: server already exists")

// ServerStore persists tool-server descriptors in mcp-servers.json as
// {servers, updated_at, version}. Every write bumps updated_at and version.
type ServerStore struct {
	mu   sync.RWMutex
	path string
	cfg  models.MCPServerConfig
	now  func() time.Time
}

// OpenServerStore loads the configuration from dir, starting empty when the
// file does not exist yet.
func OpenServerStore(dir string) (*ServerStore, error) {
	s := &ServerStore{
		path: filepath.Join(dir, ServersFile),
		now:  time.Now,
	}
	if _, err := jsonfile.Load(s.path, &s.cfg); err != nil {
		return nil, fmt.Errorf("load mcp servers: %w", err)
	}
	return s, nil
}

// Config returns a copy of the whole configuration document.
func (s *ServerStore) Config() models.MCPServerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.cfg
	cfg.Servers = append([]models.MCPServer(nil), s.cfg.Servers...)
	return cfg
}

// List returns all servers in stored order.
func (s *ServerStore) List() []models.MCPServer {
	return s.Config().Servers
}

// Get returns the server with the given id.
func (s *ServerStore) Get(id string) (models.MCPServer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.cfg.Servers[i], nil
	}
	return models.MCPServer{}, fmt.Errorf("%w: %q", ErrServerNotFound, id)
}

// SaveAll replaces the whole server list.
func (s *ServerStore) SaveAll(servers []models.MCPServer) (models.MCPServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(servers))
	for _, srv := range servers {
		if seen[srv.ID] {
			return models.MCPServerConfig{}, fmt.Errorf("%w: duplicate id %q", ErrServerExists, srv.ID)
		}
		seen[srv.ID] = true
	}
	return s.commitLocked(append([]models.MCPServer(nil), servers...))
}

// Add appends a new server.
func (s *ServerStore) Add(server models.MCPServer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(server.ID) >= 0 {
		return fmt.Errorf("%w: %q", ErrServerExists, server.ID)
	}
	servers := append(append([]models.MCPServer(nil), s.cfg.Servers...), server)
	_, err := s.commitLocked(servers)
	return err
}

// Update replaces the server with the given id. The id itself cannot change.
func (s *ServerStore) Update(id string, server models.MCPServer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrServerNotFound, id)
	}
	server.ID = id
	servers := append([]models.MCPServer(nil), s.cfg.Servers...)
	servers[i] = server
	_, err := s.commitLocked(servers)
	return err
}

// Delete removes the server with the given id.
func (s *ServerStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrServerNotFound, id)
	}
	servers := make([]models.MCPServer, 0, len(s.cfg.Servers)-1)
	servers = append(servers, s.cfg.Servers[:i]...)
	servers = append(servers, s.cfg.Servers[i+1:]...)
	_, err := s.commitLocked(servers)
	return err
}

func (s *ServerStore) indexLocked(id string) int {
	for i, srv := range s.cfg.Servers {
		if srv.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked writes servers to disk and only then updates memory, so a
// failed write leaves the previous state in place.
func (s *ServerStore) commitLocked(servers []models.MCPServer) (models.MCPServerConfig, error) {
	if servers == nil {
		servers = []models.MCPServer{}
	}
	next := models.MCPServerConfig{
		Servers:   servers,
		UpdatedAt: s.now().UTC(),
		Version:   s.cfg.Version + 1,
	}
	if err := jsonfile.Save(s.path, next); err != nil {
		return models.MCPServerConfig{}, fmt.Errorf("save mcp servers: %w", err)
	}
	s.cfg = next
	return next, nil
}
