// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ForgeConfig is the full configuration surface, loaded once at
// startup and passed into component constructors. No ambient globals
// beyond the loader singleton.
type ForgeConfig struct {
	// ModelBackend decides between the local and remote generation
	// backend.
	ModelBackend BackendConfig `yaml:"model_backend"`

	// Builder bounds the recursion and verification fan-out.
	Builder BuilderConfig `yaml:"builder"`

	// Retry bounds generation retries.
	Retry RetryConfig `yaml:"retry"`

	// Checks configures the lint/test subprocess commands.
	Checks ChecksConfig `yaml:"checks"`

	// Telemetry selects trace and metric exporters.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

type BackendConfig struct {
	// Type can be "ollama" or "openai".
	Type    string `yaml:"type" validate:"required,oneof=ollama openai"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`

	// RequestsPerSecond paces outbound generation calls. Zero
	// disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type BuilderConfig struct {
	// MaxDepth is the hard ceiling on nested question/answer rounds.
	MaxDepth int `yaml:"max_depth" validate:"min=1"`

	// MaxConversationLength is the sliding window size per branch,
	// counting the preserved system message.
	MaxConversationLength int `yaml:"max_conversation_length" validate:"min=2"`

	// VerifyWorkers bounds the concurrent verification tasks per turn.
	VerifyWorkers int `yaml:"verify_workers" validate:"min=1"`

	// ArtifactDir is where generated code files land.
	ArtifactDir string `yaml:"artifact_dir" validate:"required"`

	// ArtifactExt is the artifact file extension, including the dot.
	ArtifactExt string `yaml:"artifact_ext"`

	// ConversationFile is the JSON snapshot path for branch history.
	ConversationFile string `yaml:"conversation_file" validate:"required"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" validate:"min=1"`
	InitialBackoff time.Duration `yaml:"initial_backoff" validate:"min=0"`
	MaxBackoff     time.Duration `yaml:"max_backoff" validate:"min=0"`
}

type ChecksConfig struct {
	// LintCommand and TestCommand are argv slices; the artifact path
	// is appended to LintCommand at run time.
	LintCommand []string      `yaml:"lint_command"`
	TestCommand []string      `yaml:"test_command"`
	Timeout     time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	// TraceExporter: "otlp", "stdout", or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`

	// MetricExporter: "prometheus", "stdout", or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	OTLPEndpoint   string `yaml:"otlp_endpoint,omitempty"`
	PrometheusPort int    `yaml:"prometheus_port,omitempty"`
}

type LoggingConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// LogDir enables JSON file logging when set.
	LogDir string `yaml:"log_dir,omitempty"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns the first-run configuration: local Ollama
// backend, conservative recursion bounds, flake8/pytest checks, and
// telemetry off.
func DefaultConfig() ForgeConfig {
	return ForgeConfig{
		ModelBackend: BackendConfig{
			Type:              "ollama",
			BaseURL:           "http://localhost:11434",
			RequestsPerSecond: 2,
		},
		Builder: BuilderConfig{
			MaxDepth:              5,
			MaxConversationLength: 10,
			VerifyWorkers:         4,
			ArtifactDir:           "artifacts",
			ArtifactExt:           ".py",
			ConversationFile:      "conversation.json",
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Checks: ChecksConfig{
			LintCommand: []string{"flake8"},
			TestCommand: []string{"pytest", "--maxfail=1", "--disable-warnings"},
			Timeout:     2 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
			PrometheusPort: 9090,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

var validate = validator.New()

// Validate checks the loaded configuration against its constraints.
func (c *ForgeConfig) Validate() error {
	return validate.Struct(c)
}
