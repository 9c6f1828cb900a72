// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// StatusData maps issue numbers to their board status. Keys are strings
// because JSON object keys must be.
type StatusData map[string]string

// StatusStore persists the issue-number -> status map used to restore
// board state after a restart. Reads and writes always cover the whole
// file; there is no incremental update protocol.
type StatusStore struct {
	mu       sync.Mutex
	filePath string
}

// NewStatusStore creates a status store at the given file path.
func NewStatusStore(filePath string) *StatusStore {
	return &StatusStore{filePath: filePath}
}

// Load reads the saved statuses from disk. Returns an empty map if the
// file does not exist.
func (s *StatusStore) Load() (StatusData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *StatusStore) load() (StatusData, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return make(StatusData), nil
		}
		return nil, fmt.Errorf("read session store: %w", err)
	}
	if len(data) == 0 {
		return make(StatusData), nil
	}
	var statuses StatusData
	if err := json.Unmarshal(data, &statuses); err != nil {
		return nil, fmt.Errorf("parse session store: %w", err)
	}
	return statuses, nil
}

// Set records a status for an issue and rewrites the store.
func (s *StatusStore) Set(issueNumber int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses, err := s.load()
	if err != nil {
		return err
	}
	statuses[strconv.Itoa(issueNumber)] = status
	return s.save(statuses)
}

// Delete erases an issue's entry and rewrites the store.
func (s *StatusStore) Delete(issueNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses, err := s.load()
	if err != nil {
		return err
	}
	delete(statuses, strconv.Itoa(issueNumber))
	return s.save(statuses)
}

// Get returns the saved status for an issue, if any.
func (s *StatusStore) Get(issueNumber int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses, err := s.load()
	if err != nil {
		return "", false
	}
	status, ok := statuses[strconv.Itoa(issueNumber)]
	return status, ok
}

// save writes the statuses to disk atomically (write tmp + rename).
func (s *StatusStore) save(statuses StatusData) error {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session store: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session store dir: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp session store: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename session store: %w", err)
	}
	return nil
}
