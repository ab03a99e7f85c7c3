// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package builder drives the recursive code-generation loop: it prompts
// the model on a conversation branch, parses the reply into questions
// and code blocks, verifies each block concurrently, refines rejected
// blocks once, and recurses on the same branch for every clarifying
// question the model asks, bounded by a hard depth ceiling.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianForge/services/builder/conversation"
	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
	"github.com/AleutianAI/AleutianForge/services/builder/parser"
	"github.com/AleutianAI/AleutianForge/services/builder/verify"
	"github.com/AleutianAI/AleutianForge/services/llm"
)

var tracer = otel.Tracer("aleutian.forge.builder")

// DefaultMaxDepth bounds how many nested question/answer rounds a
// single build run may descend.
const DefaultMaxDepth = 5

// DefaultVerifyWorkers bounds the concurrent verification fan-out for
// the code blocks of one turn.
const DefaultVerifyWorkers = 4

// Verifier is the slice of the verify package the orchestrator
// consumes. The second return reports whether a verdict was obtained
// at all; absence is an expected outcome, not an error.
type Verifier interface {
	Verify(ctx context.Context, code string) (*verify.Verdict, bool)
}

// Checks is the external lint/test capability. Both calls are
// pass/fail only.
type Checks interface {
	Lint(ctx context.Context, path string) bool
	Test(ctx context.Context, path string) bool
}

// Orchestrator owns the control loop. All conversation mutations go
// through the orchestrator goroutine; verification workers only return
// data.
//
// # Thread Safety
//
// Not safe for concurrent use. Run one build at a time per instance.
type Orchestrator struct {
	store    *conversation.Store
	client   llm.Client
	verifier Verifier
	checks   Checks
	input    InputReader

	maxDepth      int
	verifyWorkers int
	artifactDir   string
	artifactExt   string
	params        llm.GenerationParams

	metrics *Metrics
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxDepth sets the recursion ceiling. Values below 1 keep the
// default.
func WithMaxDepth(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxDepth = n
		}
	}
}

// WithVerifyWorkers bounds the concurrent verification tasks per turn.
func WithVerifyWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.verifyWorkers = n
		}
	}
}

// WithArtifactDir sets the directory artifacts are written under.
func WithArtifactDir(dir string) Option {
	return func(o *Orchestrator) {
		if dir != "" {
			o.artifactDir = dir
		}
	}
}

// WithArtifactExt sets the artifact file extension, including the dot.
func WithArtifactExt(ext string) Option {
	return func(o *Orchestrator) {
		if ext != "" {
			o.artifactExt = ext
		}
	}
}

// WithGenerationParams sets the sampling parameters passed to every
// generation call.
func WithGenerationParams(params llm.GenerationParams) Option {
	return func(o *Orchestrator) { o.params = params }
}

// WithMetrics attaches the otel counters.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the loop's collaborators together.
//
// # Inputs
//
//   - store: conversation history, the only shared mutable state
//   - client: the generation capability, retry already applied
//   - verifier: verdict extraction over generated code
//   - checks: lint/test subprocess capability
//   - input: blocking human input for clarifying questions
func NewOrchestrator(
	store *conversation.Store,
	client llm.Client,
	verifier Verifier,
	checks Checks,
	input InputReader,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		client:        client,
		verifier:      verifier,
		checks:        checks,
		input:         input,
		maxDepth:      DefaultMaxDepth,
		verifyWorkers: DefaultVerifyWorkers,
		artifactDir:   ".",
		artifactExt:   DefaultArtifactExt,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// verdictResult pairs a block index with its verification outcome so
// results can be reassembled in index order after the fan-out.
type verdictResult struct {
	verdict *verify.Verdict
	ok      bool
}

// RecursivePrompt runs one turn of the loop on a branch and recurses
// for each clarifying question with depth+1.
//
// # Description
//
// Appends the prompt as a user message, generates a reply from the
// windowed branch history, and processes the reply: code blocks are
// verified concurrently and handled in index order (persist on a
// complete verdict, refine once otherwise); questions are answered by
// the human sequentially on the same branch, each answer recursing
// one level deeper.
//
// Exceeding the depth ceiling is a silent stop, not an error: depth
// growth is driven by human-answered questions. An empty model reply
// ends the turn after a warning. A reply larger than the per-message
// cap is clamped for the history while the full text is still parsed.
// Only generation exhaustion and a rejected user prompt propagate as
// errors.
func (o *Orchestrator) RecursivePrompt(ctx context.Context, branch, prompt string, depth int) error {
	ctx, span := tracer.Start(ctx, "builder.RecursivePrompt")
	defer span.End()
	span.SetAttributes(
		attribute.String("branch", branch),
		attribute.Int("depth", depth),
	)

	if depth > o.maxDepth {
		o.logger.Info("recursion depth ceiling reached, stopping",
			"branch", branch, "depth", depth, "max_depth", o.maxDepth)
		return nil
	}

	if err := o.store.Append(branch, datatypes.RoleUser, prompt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rejected")
		return fmt.Errorf("append prompt to branch %q: %w", branch, err)
	}

	reply, err := o.client.Chat(ctx, o.store.Get(branch), o.params)
	o.metrics.recordGeneration(ctx, branch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return fmt.Errorf("generation failed on branch %q: %w", branch, err)
	}
	if strings.TrimSpace(reply) == "" {
		o.logger.Warn("model returned an empty reply, ending turn", "branch", branch)
		return nil
	}

	stored := datatypes.ClampContent(reply)
	if len(stored) < len(reply) {
		o.logger.Warn("assistant reply exceeds the message size cap, truncated in history",
			"branch", branch, "reply_bytes", len(reply), "stored_bytes", len(stored))
	}
	if err := o.store.Append(branch, datatypes.RoleAssistant, stored); err != nil {
		// The turn keeps going on the full reply; only the history entry
		// is lost.
		span.RecordError(err)
		o.logger.Error("recording assistant reply failed, continuing turn",
			"branch", branch, "error", err)
	}
	o.logger.Info("assistant reply recorded",
		"branch", branch, "depth", depth, "chars", len(reply), "reply", reply)

	extraction := parser.Extract(reply)
	span.SetAttributes(
		attribute.Int("code_blocks", len(extraction.CodeBlocks)),
		attribute.Int("questions", len(extraction.Questions)),
	)

	results := o.verifyAll(ctx, extraction.CodeBlocks)
	for i, block := range extraction.CodeBlocks {
		o.processBlock(ctx, branch, block, i, results[i])
	}

	for i, question := range extraction.Questions {
		answer, err := o.input.ReadLine(ctx, question)
		if err != nil {
			o.logger.Warn("human input unavailable, stopping question round",
				"branch", branch, "question_index", i, "error", err)
			return nil
		}
		if answer == "" {
			o.logger.Info("empty answer, skipping question",
				"branch", branch, "question_index", i)
			continue
		}
		if err := o.RecursivePrompt(ctx, branch, answer, depth+1); err != nil {
			return err
		}
	}

	return nil
}

// verifyAll dispatches one verification task per code block, bounded
// by the worker limit, and collects the outcomes back into block index
// order. Workers never touch the store.
func (o *Orchestrator) verifyAll(ctx context.Context, blocks []string) []verdictResult {
	results := make([]verdictResult, len(blocks))
	if len(blocks) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.verifyWorkers)
	for i, block := range blocks {
		g.Go(func() error {
			verdict, ok := o.verifier.Verify(gctx, block)
			results[i] = verdictResult{verdict: verdict, ok: ok}
			o.metrics.recordVerification(gctx, ok && verdict.Complete)
			return nil
		})
	}
	// Workers return nil; Wait is only a join point.
	_ = g.Wait()
	return results
}

// processBlock handles one verified code block: persist and check on a
// complete verdict, otherwise hand the block to the single-pass
// refinement loop with whatever feedback exists.
func (o *Orchestrator) processBlock(ctx context.Context, branch, code string, index int, result verdictResult) {
	if result.ok && result.verdict.Complete {
		path := o.artifactPath(branch, index, false)
		if err := o.saveArtifact(path, code); err != nil {
			o.logger.Error("artifact write failed",
				"branch", branch, "index", index, "error", err)
			return
		}
		o.metrics.recordArtifact(ctx, false)
		o.runChecks(ctx, branch, path)
		return
	}

	feedback := defaultFeedback
	if result.ok && strings.TrimSpace(result.verdict.Feedback) != "" {
		feedback = result.verdict.Feedback
	}
	if !result.ok {
		o.logger.Warn("verifier produced no verdict, refining with default feedback",
			"branch", branch, "index", index)
	}
	o.Refine(ctx, branch, feedback, code, index)
}

// runChecks runs lint then tests against a persisted artifact. Check
// failures are logged and the artifact is retained.
func (o *Orchestrator) runChecks(ctx context.Context, branch, path string) {
	lintOK := o.checks.Lint(ctx, path)
	testOK := o.checks.Test(ctx, path)
	if lintOK && testOK {
		o.logger.Info("artifact passed checks", "branch", branch, "path", path)
		return
	}
	o.logger.Warn("artifact failed checks, file retained",
		"branch", branch, "path", path, "lint_ok", lintOK, "test_ok", testOK)
}
