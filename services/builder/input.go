// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/AleutianForge/pkg/ux"
)

// InputReader abstracts the blocking "ask a human" capability.
//
// # Description
//
// The orchestrator suspends on human input whenever the model asks a
// clarifying question. Production uses StdinReader; tests substitute a
// scripted implementation.
//
// # Thread Safety
//
// Implementations are called from a single goroutine (the orchestrator
// control flow) and need not be safe for concurrent use.
type InputReader interface {
	// ReadLine blocks until the human supplies a line of input for the
	// given prompt. Returns the trimmed answer, or an error when input
	// is exhausted or the terminal read fails.
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// StdinReader reads human answers from standard input.
//
// On an interactive terminal it presents a styled huh input form; when
// stdin is a pipe or file it prints the prompt to stderr and reads a
// plain line, so scripted runs keep working.
type StdinReader struct {
	reader      *bufio.Reader
	interactive bool
}

// NewStdinReader builds a reader bound to os.Stdin, detecting whether
// the process is attached to a terminal.
func NewStdinReader() *StdinReader {
	fd := os.Stdin.Fd()
	return &StdinReader{
		reader:      bufio.NewReader(os.Stdin),
		interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// ReadLine implements InputReader.
func (r *StdinReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if r.interactive {
		var answer string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(ux.Styles.Question.Render(prompt)).
				Value(&answer),
		))
		if err := form.RunWithContext(ctx); err != nil {
			return "", fmt.Errorf("interactive input failed: %w", err)
		}
		return strings.TrimSpace(answer), nil
	}

	fmt.Fprintf(os.Stderr, "%s\n> ", prompt)
	line, err := r.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("stdin read failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}
