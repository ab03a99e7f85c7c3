// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
	"github.com/AleutianAI/AleutianForge/services/llm"
)

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name         string
		reply        string
		wantOK       bool
		wantComplete bool
		wantFeedback string
	}{
		{
			name:         "bare verdict",
			reply:        `{"complete": true, "feedback": "ok"}`,
			wantOK:       true,
			wantComplete: true,
			wantFeedback: "ok",
		},
		{
			name:         "verdict embedded in prose",
			reply:        "Here is my assessment:\n{\"complete\": false, \"feedback\": \"missing error handling\"}\nthanks",
			wantOK:       true,
			wantComplete: false,
			wantFeedback: "missing error handling",
		},
		{
			name:         "nested braces inside feedback",
			reply:        `{"complete": true, "feedback": "struct Foo { Bar int } looks fine"}`,
			wantOK:       true,
			wantComplete: true,
			wantFeedback: "struct Foo { Bar int } looks fine",
		},
		{
			name:         "unbalanced junk before the real object",
			reply:        `{oops { not json, then: {"complete": true, "feedback": "fine"}`,
			wantOK:       true,
			wantComplete: true,
			wantFeedback: "fine",
		},
		{
			name:   "no brace-delimited region",
			reply:  "Looks good to me!",
			wantOK: false,
		},
		{
			name:   "braces but never valid JSON",
			reply:  "{this is {not} json",
			wantOK: false,
		},
		{
			name:   "empty reply",
			reply:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClient().QueueResponse(tt.reply)
			v := NewVerifier(mock)

			verdict, ok := v.Verify(context.Background(), "print(1)")
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				if verdict != nil {
					t.Error("verdict should be nil when absent")
				}
				return
			}
			if verdict.Complete != tt.wantComplete {
				t.Errorf("Complete = %v, want %v", verdict.Complete, tt.wantComplete)
			}
			if verdict.Feedback != tt.wantFeedback {
				t.Errorf("Feedback = %q, want %q", verdict.Feedback, tt.wantFeedback)
			}
		})
	}
}

func TestVerifier_ChatFailureIsAbsent(t *testing.T) {
	mock := llm.NewMockClient().WithError(errors.New("backend down"))
	v := NewVerifier(mock)

	verdict, ok := v.Verify(context.Background(), "code")
	if ok || verdict != nil {
		t.Error("a failed generation call must yield an absent verdict, not an error")
	}
}

func TestVerifier_MessageShape(t *testing.T) {
	mock := llm.NewMockClient().QueueResponse(`{"complete": true, "feedback": ""}`)
	v := NewVerifier(mock, WithPrompt("Check this carefully."))

	v.Verify(context.Background(), "print(1)")

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one generation call, got %d", len(calls))
	}
	msgs := calls[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("expected a two-message exchange, got %d", len(msgs))
	}
	if msgs[0].Role != datatypes.RoleSystem {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if msgs[1].Role != datatypes.RoleUser {
		t.Errorf("second message role = %q, want user", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Check this carefully.") {
		t.Error("user message should embed the custom prompt")
	}
	if !strings.Contains(msgs[1].Content, "print(1)") {
		t.Error("user message should embed the fenced code")
	}
}

func TestFirstJSONObject(t *testing.T) {
	raw, ok := firstJSONObject(`noise [1,2] {"a": {"b": 2}} {"c": 3}`)
	if !ok {
		t.Fatal("expected an object")
	}
	if string(raw) != `{"a": {"b": 2}}` {
		t.Errorf("raw = %s, want the first object including its nested braces", raw)
	}
}
