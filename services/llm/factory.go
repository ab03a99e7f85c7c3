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
	"fmt"
	"log/slog"
)

// NewClient builds the configured backend wrapped with retry and pacing.
//
// # Description
//
// The backend dispatch happens exactly once, here: downstream code holds a
// Client and never inspects the backend type again.
//
// # Inputs
//
//   - opts: Backend selection ("ollama" or "openai") and addressing.
//   - retry: Retry budget for transient failures.
//   - requestsPerSecond: Request pacing; <= 0 disables.
//   - logger: Destination for retry warnings. Nil uses slog.Default.
//
// # Outputs
//
//   - Client: A ready-to-use, retrying client.
//   - error: ErrUnknownBackend for an unrecognized type, or the backend's
//     construction error.
func NewClient(opts BackendOptions, retry RetryConfig, requestsPerSecond float64, logger *slog.Logger) (Client, error) {
	if err := retry.Validate(); err != nil {
		return nil, err
	}

	var inner Client
	var err error
	switch opts.Type {
	case "ollama":
		inner, err = NewOllamaClient(opts)
	case "openai":
		inner, err = NewOpenAIClient(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Type)
	}
	if err != nil {
		return nil, err
	}

	return NewRetryingClient(inner, retry, requestsPerSecond, logger), nil
}
