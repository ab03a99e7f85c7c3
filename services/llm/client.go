// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the generation capability for the forge builder.
//
// One interface, two backends: a local Ollama server reached over HTTP and
// the remote OpenAI API. The backend is selected once at startup from
// configuration, never re-checked per call. Retry with exponential backoff
// lives in RetryingClient so callers see a single Chat call that either
// succeeds or is exhausted.
package llm

import (
	"context"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
)

// GenerationParams are optional sampling parameters. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Chat sends an ordered message history and returns the assistant's
	// reply text.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)

	// Name returns the provider name (e.g. "ollama", "openai").
	Name() string

	// Model returns the model being used.
	Model() string
}

// BackendOptions selects and configures a backend. Populated from the
// forge configuration at startup.
type BackendOptions struct {
	// Type is "ollama" or "openai".
	Type string

	// BaseURL is the local server address (Ollama only).
	BaseURL string

	// Model is the model name. Empty uses the backend default.
	Model string
}
