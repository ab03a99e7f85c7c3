// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"strings"
	"testing"
)

func TestIcon_RenderContainsGlyph(t *testing.T) {
	tests := []struct {
		name string
		icon Icon
	}{
		{"success", IconSuccess},
		{"warning", IconWarning},
		{"error", IconError},
		{"arrow", IconArrow},
		{"bullet", IconBullet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.icon.Render(); !strings.Contains(got, string(tt.icon)) {
				t.Errorf("Render() = %q, missing glyph %q", got, tt.icon)
			}
		})
	}
}

func TestStyles_QuestionRenderKeepsText(t *testing.T) {
	const prompt = "Which database should this use?"
	if got := Styles.Question.Render(prompt); !strings.Contains(got, prompt) {
		t.Errorf("styled question lost its text: %q", got)
	}
}
