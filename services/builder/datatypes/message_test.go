// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		content string
		wantErr bool
	}{
		{"valid system message", RoleSystem, "You are a builder.", false},
		{"valid user message", RoleUser, "build X", false},
		{"valid assistant message", RoleAssistant, "done", false},
		{"unknown role rejected", "tool", "output", true},
		{"empty role rejected", "", "content", true},
		{"empty content rejected", RoleUser, "", true},
		{"oversized content rejected", RoleUser, strings.Repeat("a", MaxMessageContentBytes+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.role, tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Errorf("error %v should wrap ErrInvalidMessage", err)
				}
				return
			}
			if msg.ID == "" {
				t.Error("ID should be populated")
			}
			if msg.Timestamp == 0 {
				t.Error("Timestamp should be populated")
			}
			if msg.Role != tt.role || msg.Content != tt.content {
				t.Errorf("message fields not preserved: %+v", msg)
			}
		})
	}
}

func TestClampContent(t *testing.T) {
	short := "hello"
	if got := ClampContent(short); got != short {
		t.Errorf("content within the limit must pass through unchanged, got %q", got)
	}

	exact := strings.Repeat("a", MaxMessageContentBytes)
	if got := ClampContent(exact); len(got) != MaxMessageContentBytes {
		t.Errorf("content at the limit clamped to %d bytes", len(got))
	}

	long := strings.Repeat("a", MaxMessageContentBytes+100)
	clamped := ClampContent(long)
	if len(clamped) != MaxMessageContentBytes {
		t.Errorf("clamped length = %d, want %d", len(clamped), MaxMessageContentBytes)
	}
	if _, err := NewMessage(RoleAssistant, clamped); err != nil {
		t.Errorf("clamped content must pass validation: %v", err)
	}

	// 3-byte runes do not divide the limit evenly, so the naive cut
	// lands mid-rune and must back off.
	runes := strings.Repeat("世", MaxMessageContentBytes/2)
	clamped = ClampContent(runes)
	if len(clamped) > MaxMessageContentBytes {
		t.Errorf("clamped length = %d, exceeds the limit", len(clamped))
	}
	if !utf8.ValidString(clamped) {
		t.Error("clamp split a rune at the boundary")
	}
}

func TestMessage_Validate(t *testing.T) {
	msg := Message{Role: RoleUser, Content: "hello", Timestamp: 1, ID: "x"}
	if err := msg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg.Role = "operator"
	if err := msg.Validate(); err == nil {
		t.Error("expected validation error for bad role")
	}
}
