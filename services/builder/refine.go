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
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
	"github.com/AleutianAI/AleutianForge/services/builder/parser"
)

// defaultFeedback stands in when the verifier gave no usable feedback.
const defaultFeedback = "No feedback provided."

// Refine runs exactly one improvement round over a rejected code
// block.
//
// # Description
//
// Appends a user message quoting the verifier feedback and the
// original code, asks the model for a single improved fenced snippet,
// and re-verifies the first code block of the reply once. A complete
// verdict persists the snippet alongside the original artifact and
// runs the lint/test checks. A negative or absent verdict, an empty
// reply, or a reply without a code block all end the round with a log
// line. No second round is attempted; failures here never propagate.
func (o *Orchestrator) Refine(ctx context.Context, branch, feedback, code string, index int) {
	ctx, span := tracer.Start(ctx, "builder.Refine")
	defer span.End()
	span.SetAttributes(
		attribute.String("branch", branch),
		attribute.Int("index", index),
	)

	o.metrics.recordRefinement(ctx, branch)
	o.logger.Info("refining rejected code block",
		"branch", branch, "index", index, "feedback", feedback)

	// The request quotes the rejected code and can top the per-message
	// cap on its own.
	request := datatypes.ClampContent(refinementPrompt(feedback, code))
	if err := o.store.Append(branch, datatypes.RoleUser, request); err != nil {
		o.logger.Error("refinement prompt rejected",
			"branch", branch, "index", index, "error", err)
		return
	}

	reply, err := o.client.Chat(ctx, o.store.Get(branch), o.params)
	o.metrics.recordGeneration(ctx, branch)
	if err != nil {
		span.RecordError(err)
		o.logger.Error("refinement generation failed",
			"branch", branch, "index", index, "error", err)
		return
	}
	if strings.TrimSpace(reply) == "" {
		o.logger.Warn("refinement reply empty", "branch", branch, "index", index)
		return
	}
	if err := o.store.Append(branch, datatypes.RoleAssistant, datatypes.ClampContent(reply)); err != nil {
		o.logger.Error("refinement reply rejected",
			"branch", branch, "index", index, "error", err)
		return
	}

	blocks := parser.Extract(reply).CodeBlocks
	if len(blocks) == 0 {
		o.logger.Warn("refinement reply contained no code block",
			"branch", branch, "index", index)
		return
	}
	improved := blocks[0]

	verdict, ok := o.verifier.Verify(ctx, improved)
	o.metrics.recordVerification(ctx, ok && verdict.Complete)
	if !ok || !verdict.Complete {
		o.logger.Warn("refined snippet still not complete, stopping",
			"branch", branch, "index", index, "verdict_present", ok)
		return
	}

	path := o.artifactPath(branch, index, true)
	if err := o.saveArtifact(path, improved); err != nil {
		o.logger.Error("refined artifact write failed",
			"branch", branch, "index", index, "error", err)
		return
	}
	o.metrics.recordArtifact(ctx, true)
	o.runChecks(ctx, branch, path)
}

// refinementPrompt quotes the feedback and the rejected code and asks
// for exactly one improved snippet.
func refinementPrompt(feedback, code string) string {
	return fmt.Sprintf(
		"The previous code block was reviewed and judged incomplete.\n\n"+
			"Reviewer feedback:\n%s\n\n"+
			"Original code:\n```\n%s\n```\n\n"+
			"Please respond with a single improved, complete version of this "+
			"code inside one fenced code block.",
		feedback, code)
}
