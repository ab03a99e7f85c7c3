// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package verify submits candidate code to a model in a constrained
// verification role and parses the structured verdict out of the reply.
//
// The verdict region is located with an incremental JSON decoder rather
// than a greedy brace regex: the first span that parses as a valid JSON
// object wins, so nested braces inside feedback strings cannot cause a
// silent misparse.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
	"github.com/AleutianAI/AleutianForge/services/llm"
)

var tracer = otel.Tracer("aleutian.forge.verify")

// DefaultPrompt is the user-facing verification instruction.
const DefaultPrompt = "Please verify the following code snippet. " +
	"Respond in JSON with fields 'complete' (boolean) and 'feedback' (string)."

// systemInstruction pins the model into verification mode.
const systemInstruction = "You are a code reviewer in verification mode. " +
	"You will review the submitted code snippet for completeness, correctness, " +
	"and whether it meets typical best practices. Respond in valid JSON."

// Verdict is the structured verification result. Ephemeral: produced per
// verification call, never persisted.
type Verdict struct {
	Complete bool   `json:"complete"`
	Feedback string `json:"feedback"`
}

// Verifier submits code snippets for model verification.
type Verifier struct {
	client llm.Client
	prompt string
	logger *slog.Logger
}

// Option configures the verifier.
type Option func(*Verifier)

// WithPrompt overrides the default verification prompt.
func WithPrompt(prompt string) Option {
	return func(v *Verifier) {
		if prompt != "" {
			v.prompt = prompt
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a verifier backed by the given generation client.
func NewVerifier(client llm.Client, opts ...Option) *Verifier {
	v := &Verifier{
		client: client,
		prompt: DefaultPrompt,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify submits code for verification.
//
// # Description
//
// Builds a two-message exchange (verification-mode system instruction plus
// the prompt with the fenced code), invokes generation once, and parses
// the first valid JSON object out of the reply.
//
// Verify does not retry; the generation client owns retry behavior.
//
// # Outputs
//
//   - *Verdict: The parsed verdict, or nil when absent.
//   - bool: False when the call failed, no JSON object was found, or the
//     object did not parse. Absence is not an error; the caller decides
//     how to log and proceed.
func (v *Verifier) Verify(ctx context.Context, code string) (*Verdict, bool) {
	ctx, span := tracer.Start(ctx, "Verifier.Verify")
	defer span.End()

	messages := []datatypes.Message{
		{Role: datatypes.RoleSystem, Content: systemInstruction},
		{Role: datatypes.RoleUser, Content: fmt.Sprintf("%s\n\n```\n%s\n```", v.prompt, code)},
	}

	reply, err := v.client.Chat(ctx, messages, llm.GenerationParams{})
	if err != nil {
		v.logger.Warn("verification call failed", "error", err)
		return nil, false
	}

	raw, ok := firstJSONObject(reply)
	if !ok {
		v.logger.Warn("could not find a JSON object in the verification response")
		return nil, false
	}

	var verdict Verdict
	if err := json.Unmarshal(raw, &verdict); err != nil {
		v.logger.Warn("verification response JSON did not match the verdict shape", "error", err)
		return nil, false
	}
	return &verdict, true
}

// firstJSONObject returns the first span of text that decodes as a valid
// JSON object.
//
// Candidate start positions are every '{'; a json.Decoder consumes one
// value from each and the first successful object wins. This handles
// nested braces and braces inside strings correctly, unlike a greedy
// regex scan.
func firstJSONObject(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && len(raw) > 0 && raw[0] == '{' {
			return raw, true
		}
	}
	return nil, false
}
