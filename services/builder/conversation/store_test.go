// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conversation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "conversation_state.json"), opts...)
}

func TestStore_GetUnknownBranch(t *testing.T) {
	s := newTestStore(t)

	msgs := s.Get("nope")
	if len(msgs) != 0 {
		t.Errorf("unknown branch should return empty slice, got %d messages", len(msgs))
	}
}

func TestStore_AppendValidation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		role    string
		content string
	}{
		{"bad role", "operator", "content"},
		{"empty content", datatypes.RoleUser, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Append("root", tt.role, tt.content)
			if !errors.Is(err, datatypes.ErrInvalidMessage) {
				t.Fatalf("error = %v, want ErrInvalidMessage", err)
			}
			if s.Len("root") != 0 {
				t.Error("store mutated despite validation failure")
			}
		})
	}
}

func TestStore_SlidingWindow(t *testing.T) {
	s := newTestStore(t, WithMaxLen(5))

	if err := s.Append("root", datatypes.RoleSystem, "system prompt"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := s.Append("root", datatypes.RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	msgs := s.Get("root")
	if len(msgs) != 5 {
		t.Fatalf("window not enforced: len = %d, want 5", len(msgs))
	}
	if msgs[0].Content != "system prompt" {
		t.Errorf("element 0 = %q, want the original system message", msgs[0].Content)
	}
	if msgs[len(msgs)-1].Content != "message 9" {
		t.Errorf("last element = %q, want the most recent entry", msgs[len(msgs)-1].Content)
	}
	if msgs[1].Content != "message 6" {
		t.Errorf("oldest retained = %q, want message 6", msgs[1].Content)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewStore(path)
	if err := s.Append("root", datatypes.RoleSystem, "sys"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append("root", datatypes.RoleUser, "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append("side", datatypes.RoleUser, "other branch"); err != nil {
		t.Fatal(err)
	}

	loaded := NewStore(path)
	for _, branch := range []string{"root", "side"} {
		want := s.Get(branch)
		got := loaded.Get(branch)
		if len(got) != len(want) {
			t.Fatalf("branch %q: loaded %d messages, want %d", branch, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("branch %q message %d: got %+v, want %+v", branch, i, got[i], want[i])
			}
		}
	}
}

func TestStore_CorruptSnapshotTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if got := len(s.List()); got != 0 {
		t.Errorf("corrupt snapshot should yield empty store, got %d branches", got)
	}

	// The store must remain usable after a corrupt load.
	if err := s.Append("root", datatypes.RoleUser, "recovered"); err != nil {
		t.Fatalf("append after corrupt load: %v", err)
	}
}

func TestStore_NullSnapshotTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("null"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	if got := len(s.List()); got != 0 {
		t.Errorf("null snapshot should yield empty store, got %d branches", got)
	}

	// A null snapshot decodes into a nil map; Append must still work.
	if err := s.Append("root", datatypes.RoleUser, "hello"); err != nil {
		t.Fatalf("append after null snapshot: %v", err)
	}
	if s.Len("root") != 1 {
		t.Errorf("Len(root) = %d, want 1", s.Len("root"))
	}
}

func TestStore_LoadDropsInvalidMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	snapshot := `{
  "root": [
    {"role": "system", "content": "sys", "timestamp": 1, "id": "a"},
    {"role": "operator", "content": "bad role", "timestamp": 2, "id": "b"},
    {"role": "user", "content": "", "timestamp": 3, "id": "c"},
    {"role": "user", "content": "hello", "timestamp": 4, "id": "d"}
  ],
  "empty": [
    {"role": "user", "content": "", "timestamp": 5, "id": "e"}
  ]
}`
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path)
	msgs := s.Get("root")
	if len(msgs) != 2 {
		t.Fatalf("loaded %d messages, want 2 valid ones", len(msgs))
	}
	if msgs[0].Content != "sys" || msgs[1].Content != "hello" {
		t.Errorf("kept messages = %q, %q, want sys and hello", msgs[0].Content, msgs[1].Content)
	}
	if branches := s.List(); len(branches) != 1 || branches[0] != "root" {
		t.Errorf("branches = %v, want only root (all-invalid branches dropped)", branches)
	}
}

func TestStore_DeleteListSize(t *testing.T) {
	s := newTestStore(t)

	if err := s.Append("b", datatypes.RoleUser, "xx"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append("a", datatypes.RoleUser, "yyy"); err != nil {
		t.Fatal(err)
	}

	names := s.List()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("List() = %v, want [a b]", names)
	}
	if got := s.Size("a"); got != 3 {
		t.Errorf("Size(a) = %d, want 3", got)
	}
	if got := s.Size("missing"); got != 0 {
		t.Errorf("Size(missing) = %d, want 0", got)
	}

	s.Delete("a")
	if len(s.List()) != 1 {
		t.Error("Delete did not remove the branch")
	}
}
