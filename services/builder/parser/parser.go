// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser extracts clarifying questions and fenced code blocks from
// free-form model output.
//
// Extract is a pure function: deterministic, side-effect free, and total
// over any input text.
package parser

import (
	"regexp"
	"strings"
)

// Extraction is the result of parsing one model reply.
type Extraction struct {
	// Questions are trimmed lines ending in '?', in order of appearance.
	// Duplicates are preserved.
	Questions []string

	// CodeBlocks are the inner texts of fenced regions, with fence markers
	// and any language tag stripped, trimmed, in order of appearance.
	CodeBlocks []string
}

// fencePattern matches a triple-backtick fenced region. The optional
// language tag is consumed only when it sits alone on the opening fence
// line, so inline fences like ```x+1``` keep their full content.
var fencePattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+.-]+[ \t]*\r?\n)?(.*?)```")

// Extract parses questions and code blocks out of a model reply.
//
// # Inputs
//
//   - text: Any text, including empty.
//
// # Outputs
//
//   - Extraction: Possibly-empty question and code block sequences.
//     Never fails.
func Extract(text string) Extraction {
	var out Extraction

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "?") {
			out.Questions = append(out.Questions, line)
		}
	}

	for _, match := range fencePattern.FindAllStringSubmatch(text, -1) {
		out.CodeBlocks = append(out.CodeBlocks, strings.TrimSpace(match[1]))
	}

	return out
}
