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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the orchestrator's OpenTelemetry counters.
//
// A nil *Metrics is valid and records nothing, so tests and callers
// that do not configure a meter provider pay no cost.
type Metrics struct {
	generations   metric.Int64Counter
	verifications metric.Int64Counter
	refinements   metric.Int64Counter
	artifacts     metric.Int64Counter
}

// NewMetrics registers the builder counters on the global meter
// provider. Instrument creation failures are returned so the caller
// can decide whether to run without metrics.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("aleutian.forge.builder")

	generations, err := meter.Int64Counter("forge_generations_total",
		metric.WithDescription("Model generation calls issued by the orchestrator"))
	if err != nil {
		return nil, err
	}
	verifications, err := meter.Int64Counter("forge_verifications_total",
		metric.WithDescription("Code block verification calls"))
	if err != nil {
		return nil, err
	}
	refinements, err := meter.Int64Counter("forge_refinements_total",
		metric.WithDescription("Refinement rounds attempted"))
	if err != nil {
		return nil, err
	}
	artifacts, err := meter.Int64Counter("forge_artifacts_total",
		metric.WithDescription("Artifact files written"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generations:   generations,
		verifications: verifications,
		refinements:   refinements,
		artifacts:     artifacts,
	}, nil
}

func (m *Metrics) recordGeneration(ctx context.Context, branch string) {
	if m == nil {
		return
	}
	m.generations.Add(ctx, 1, metric.WithAttributes(attribute.String("branch", branch)))
}

func (m *Metrics) recordVerification(ctx context.Context, complete bool) {
	if m == nil {
		return
	}
	m.verifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("complete", complete)))
}

func (m *Metrics) recordRefinement(ctx context.Context, branch string) {
	if m == nil {
		return
	}
	m.refinements.Add(ctx, 1, metric.WithAttributes(attribute.String("branch", branch)))
}

func (m *Metrics) recordArtifact(ctx context.Context, refined bool) {
	if m == nil {
		return
	}
	m.artifacts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("refined", refined)))
}
