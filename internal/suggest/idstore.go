// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const anonIDKey = "anonId"

// IDStore provides the persistent anonymous identifier of this client.
type IDStore interface {
	ID() (string, error)
}

// FileIDStore keeps the identifier in a small JSON key-value file. The
// identifier is generated on first use and never regenerated; other keys
// in the file are preserved.
type FileIDStore struct {
	path string

	mu sync.Mutex
	id string
}

// NewFileIDStore creates a store backed by the file at path.
func NewFileIDStore(path string) *FileIDStore {
	return &FileIDStore{path: path}
}

// ID returns the stored identifier, creating it if the file has none.
func (s *FileIDStore) ID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}

	values, err := s.load()
	if err != nil {
		return "", err
	}
	if id, ok := values[anonIDKey].(string); ok && id != "" {
		s.id = id
		return id, nil
	}

	id := uuid.NewString()
	values[anonIDKey] = id
	if err := s.save(values); err != nil {
		return "", err
	}
	s.id = id
	return id, nil
}

func (s *FileIDStore) load() (map[string]any, error) {
	values := map[string]any{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading id store: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing id store %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileIDStore) save(values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding id store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating id store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing id store: %w", err)
	}
	return nil
}
