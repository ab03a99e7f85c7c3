// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
)

var (
	// ErrGenerationExhausted means the backend failed and the bounded
	// retry budget is spent. Terminal for the current orchestration step.
	ErrGenerationExhausted = errors.New("generation backend exhausted retries")

	// ErrUnknownBackend means the configured backend type is not
	// recognized.
	ErrUnknownBackend = errors.New("unknown llm backend type")

	// ErrMissingAPIKey means a remote backend was selected without
	// credentials available.
	ErrMissingAPIKey = errors.New("missing API key for remote backend")
)

// IsRetryable reports whether an error should trigger another attempt.
//
// Context cancellation and configuration errors are permanent; everything
// else (network failures, 5xx responses, timeouts surfaced as plain
// errors) is treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnknownBackend) || errors.Is(err, ErrMissingAPIKey) {
		return false
	}
	return true
}
