// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checks wraps the external lint and test commands run against
// persisted artifacts.
//
// Checks are pass/fail only: no severity levels or structured findings
// surface to the builder. Failures are logged with the subprocess output
// and the artifact stays on disk.
package checks

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Defaults mirror the Python toolchain the builder grew up with; both are
// configurable for other target languages.
var (
	DefaultLintCommand = []string{"flake8"}
	DefaultTestCommand = []string{"pytest", "--maxfail=1", "--disable-warnings"}
)

// DefaultTimeout bounds a single lint or test subprocess.
const DefaultTimeout = 2 * time.Minute

// Runner executes the configured lint and test commands.
type Runner struct {
	lintCmd    []string
	testCmd    []string
	workingDir string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures the runner.
type Option func(*Runner)

// WithLintCommand sets the lint command. The artifact path is appended as
// the final argument.
func WithLintCommand(cmd []string) Option {
	return func(r *Runner) {
		if len(cmd) > 0 {
			r.lintCmd = cmd
		}
	}
}

// WithTestCommand sets the test command. It runs as-is, without the
// artifact path: test discovery is the tool's job.
func WithTestCommand(cmd []string) Option {
	return func(r *Runner) {
		if len(cmd) > 0 {
			r.testCmd = cmd
		}
	}
}

// WithWorkingDir sets the subprocess working directory.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) { r.workingDir = dir }
}

// WithTimeout bounds each subprocess.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a check runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		lintCmd: DefaultLintCommand,
		testCmd: DefaultTestCommand,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LintAvailable reports whether the lint command can be found on PATH.
func (r *Runner) LintAvailable() bool {
	_, err := exec.LookPath(r.lintCmd[0])
	return err == nil
}

// TestAvailable reports whether the test command can be found on PATH.
func (r *Runner) TestAvailable() bool {
	_, err := exec.LookPath(r.testCmd[0])
	return err == nil
}

// Lint runs the static check against the artifact at path.
//
// Returns true when the linter exits zero. Output from a failing run is
// logged, never returned.
func (r *Runner) Lint(ctx context.Context, path string) bool {
	r.logger.Info("running lint checks", "command", r.lintCmd[0], "path", path)
	args := append(append([]string{}, r.lintCmd[1:]...), path)
	return r.run(ctx, r.lintCmd[0], args, "lint")
}

// Test runs the test command.
//
// The artifact path is logged for correlation but not passed to the tool;
// the configured command decides what to collect.
func (r *Runner) Test(ctx context.Context, path string) bool {
	r.logger.Info("running tests", "command", r.testCmd[0], "path", path)
	return r.run(ctx, r.testCmd[0], r.testCmd[1:], "test")
}

// run executes one subprocess and reports pass/fail.
func (r *Runner) run(ctx context.Context, name string, args []string, kind string) bool {
	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		r.logger.Warn("check timed out", "kind", kind, "command", name, "timeout", r.timeout)
		return false
	}
	if err != nil {
		r.logger.Warn("check failed",
			"kind", kind,
			"command", name,
			"error", err,
			"stdout", stdout.String(),
			"stderr", stderr.String())
		return false
	}
	r.logger.Info("check passed", "kind", kind, "command", name)
	return true
}
