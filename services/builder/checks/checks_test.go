// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checks

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("command %q not available", name)
	}
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner()

	if len(r.lintCmd) == 0 || r.lintCmd[0] != "flake8" {
		t.Errorf("default lint command = %v", r.lintCmd)
	}
	if len(r.testCmd) == 0 || r.testCmd[0] != "pytest" {
		t.Errorf("default test command = %v", r.testCmd)
	}
	if r.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", r.timeout, DefaultTimeout)
	}
}

func TestRunner_LintPassAndFail(t *testing.T) {
	requireCommand(t, "true")
	requireCommand(t, "false")

	pass := NewRunner(WithLintCommand([]string{"true"}))
	if !pass.Lint(context.Background(), "artifact.py") {
		t.Error("lint with a zero-exit command should pass")
	}

	fail := NewRunner(WithLintCommand([]string{"false"}))
	if fail.Lint(context.Background(), "artifact.py") {
		t.Error("lint with a non-zero-exit command should fail")
	}
}

func TestRunner_TestPassAndFail(t *testing.T) {
	requireCommand(t, "true")
	requireCommand(t, "false")

	pass := NewRunner(WithTestCommand([]string{"true"}))
	if !pass.Test(context.Background(), "artifact.py") {
		t.Error("test with a zero-exit command should pass")
	}

	fail := NewRunner(WithTestCommand([]string{"false"}))
	if fail.Test(context.Background(), "artifact.py") {
		t.Error("test with a non-zero-exit command should fail")
	}
}

func TestRunner_MissingCommandFails(t *testing.T) {
	r := NewRunner(WithLintCommand([]string{"definitely-not-a-real-linter-xyz"}))
	if r.Lint(context.Background(), "artifact.py") {
		t.Error("a missing command must report failure, not panic")
	}
	if r.LintAvailable() {
		t.Error("LintAvailable should be false for a missing command")
	}
}

func TestRunner_Timeout(t *testing.T) {
	requireCommand(t, "sleep")

	r := NewRunner(
		WithTestCommand([]string{"sleep", "5"}),
		WithTimeout(50*time.Millisecond),
	)
	start := time.Now()
	if r.Test(context.Background(), "artifact.py") {
		t.Error("timed-out check should fail")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}
