// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package conversation implements the branch-keyed conversation store.
//
// # Description
//
// The store holds one append-only message log per named branch and keeps
// each log inside a bounded sliding window: the first message (by
// convention the system message) is always retained, the oldest non-system
// entries are discarded first. Every mutation re-persists the whole store
// to a single JSON snapshot file synchronously.
//
// Whole-snapshot rewrite is deliberate at this scale; an append-log with
// periodic snapshots would be the upgrade path if throughput ever mattered.
//
// # Thread Safety
//
// Safe for concurrent use. In practice only the orchestrator mutates the
// store; verification workers return data instead of appending.
package conversation

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
)

// DefaultMaxLen is the default sliding window size per branch.
const DefaultMaxLen = 10

// Store is the branch-keyed conversation store.
type Store struct {
	mu       sync.RWMutex
	branches map[string][]datatypes.Message
	path     string
	maxLen   int
	logger   *slog.Logger
}

// Option configures the store.
type Option func(*Store)

// WithMaxLen sets the sliding window size. Values below 2 fall back to
// DefaultMaxLen: a window must hold at least the system message plus one
// live entry.
func WithMaxLen(n int) Option {
	return func(s *Store) {
		if n >= 2 {
			s.maxLen = n
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store backed by the snapshot file at path.
//
// # Description
//
// Loads any existing snapshot on construction. A missing file yields an
// empty store; a corrupt file is logged and ignored, never raised. Loaded
// messages are re-validated and invalid entries dropped, so a hand-edited
// snapshot cannot smuggle bad state past the append-time checks. The last
// committed snapshot on disk stays untouched until the next successful
// append overwrites it.
//
// # Inputs
//
//   - path: Snapshot file location. Parent directories are created on
//     first persist.
//   - opts: Optional configuration.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		branches: make(map[string][]datatypes.Message),
		path:     path,
		maxLen:   DefaultMaxLen,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// load reads the snapshot file into memory. Tolerant by design.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no existing conversation snapshot, starting fresh", "path", s.path)
			return
		}
		s.logger.Warn("failed to read conversation snapshot", "path", s.path, "error", err)
		return
	}

	var branches map[string][]datatypes.Message
	if err := json.Unmarshal(data, &branches); err != nil {
		s.logger.Warn("conversation snapshot is corrupt, starting fresh", "path", s.path, "error", err)
		return
	}
	if branches == nil {
		// A literal JSON null decodes into a nil map without error.
		s.logger.Warn("conversation snapshot holds no branches, starting fresh", "path", s.path)
		return
	}

	loaded := make(map[string][]datatypes.Message, len(branches))
	dropped := 0
	for name, msgs := range branches {
		kept := make([]datatypes.Message, 0, len(msgs))
		for _, msg := range msgs {
			if err := msg.Validate(); err != nil {
				dropped++
				continue
			}
			kept = append(kept, msg)
		}
		if len(kept) > 0 {
			loaded[name] = kept
		}
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid messages from conversation snapshot",
			"path", s.path, "dropped", dropped)
	}
	s.branches = loaded
	s.logger.Info("loaded conversation snapshot", "path", s.path, "branches", len(loaded))
}

// persist writes the whole store to disk. Must be called with the lock
// held. Failures are logged, not raised: the in-memory state stays valid
// and the next mutation retries the write.
func (s *Store) persist() {
	data, err := json.MarshalIndent(s.branches, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal conversation snapshot", "error", err)
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.logger.Error("failed to create snapshot directory", "dir", dir, "error", err)
			return
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Error("failed to write conversation snapshot", "path", s.path, "error", err)
		return
	}
	s.logger.Debug("conversation snapshot saved", "path", s.path)
}

// Get returns a copy of the branch's messages.
//
// Unknown branches return an empty slice, not an error.
func (s *Store) Get(branch string) []datatypes.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.branches[branch]
	out := make([]datatypes.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Append validates and appends a message, applies the sliding window, then
// persists the entire store synchronously.
//
// # Inputs
//
//   - branch: Branch name. Created on first write.
//   - role: One of the datatypes.Role* constants.
//   - content: Non-empty message text.
//
// # Outputs
//
//   - error: Wraps datatypes.ErrInvalidMessage on bad role or empty
//     content; the store is not mutated in that case.
func (s *Store) Append(branch, role, content string) error {
	msg, err := datatypes.NewMessage(role, content)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.branches[branch] = s.slideWindow(append(s.branches[branch], msg))
	s.persist()
	return nil
}

// slideWindow retains index 0 plus the last maxLen-1 entries when the
// history exceeds the window. Truncation is all-or-nothing.
func (s *Store) slideWindow(history []datatypes.Message) []datatypes.Message {
	if len(history) <= s.maxLen {
		return history
	}
	truncated := make([]datatypes.Message, 0, s.maxLen)
	truncated = append(truncated, history[0])
	truncated = append(truncated, history[len(history)-(s.maxLen-1):]...)
	return truncated
}

// Delete removes a branch and persists the store.
func (s *Store) Delete(branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.branches, branch)
	s.persist()
}

// List returns all branch names in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.branches))
	for name := range s.branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the sum of content lengths across a branch's messages.
// Unknown branches report zero.
func (s *Store) Size(branch string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, msg := range s.branches[branch] {
		total += len(msg.Content)
	}
	return total
}

// Len returns the number of messages in a branch.
func (s *Store) Len(branch string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.branches[branch])
}
