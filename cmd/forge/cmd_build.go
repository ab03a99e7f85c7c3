// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianForge/cmd/forge/config"
	"github.com/AleutianAI/AleutianForge/pkg/logging"
	"github.com/AleutianAI/AleutianForge/pkg/telemetry"
	"github.com/AleutianAI/AleutianForge/pkg/ux"
	"github.com/AleutianAI/AleutianForge/services/builder"
	"github.com/AleutianAI/AleutianForge/services/builder/checks"
	"github.com/AleutianAI/AleutianForge/services/builder/conversation"
	"github.com/AleutianAI/AleutianForge/services/builder/datatypes"
	"github.com/AleutianAI/AleutianForge/services/builder/verify"
	"github.com/AleutianAI/AleutianForge/services/llm"
)

// systemPrompt seeds a fresh branch before the first build turn.
const systemPrompt = "You are an expert software engineer. Build the requested " +
	"program incrementally in small, complete pieces. Return code inside fenced " +
	"code blocks. When requirements are ambiguous, ask a clarifying question " +
	"ending with a question mark instead of guessing."

// runBuild wires the full stack together and drives one build
// conversation to completion.
func runBuild(cmd *cobra.Command, args []string) {
	cfg := config.Global
	prompt := strings.Join(args, " ")

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.LogDir,
		Service: "forge",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "forge",
		ServiceVersion: version,
		Environment:    telemetry.DefaultConfig().Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
		PrometheusPort: cfg.Telemetry.PrometheusPort,
	})
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if handler := telemetry.MetricsHandler(); handler != nil {
		go serveMetrics(handler, cfg.Telemetry.PrometheusPort, logger)
	}

	retry := llm.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Retry.MaxAttempts
	retry.InitialBackoff = cfg.Retry.InitialBackoff
	retry.MaxBackoff = cfg.Retry.MaxBackoff

	client, err := llm.NewClient(llm.BackendOptions{
		Type:    cfg.ModelBackend.Type,
		BaseURL: cfg.ModelBackend.BaseURL,
		Model:   cfg.ModelBackend.Model,
	}, retry, cfg.ModelBackend.RequestsPerSecond, logger.Slog())
	if err != nil {
		logger.Error("backend setup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("generation backend ready",
		"backend", client.Name(), "model", client.Model())

	store := conversation.NewStore(cfg.Builder.ConversationFile,
		conversation.WithMaxLen(cfg.Builder.MaxConversationLength),
		conversation.WithLogger(logger.Slog()),
	)

	checker := checks.NewRunner(
		checks.WithLintCommand(cfg.Checks.LintCommand),
		checks.WithTestCommand(cfg.Checks.TestCommand),
		checks.WithTimeout(cfg.Checks.Timeout),
		checks.WithLogger(logger.Slog()),
	)
	if !checker.LintAvailable() {
		ux.Warning(fmt.Sprintf("lint command %v not found, lint checks will fail",
			cfg.Checks.LintCommand))
	}
	if !checker.TestAvailable() {
		ux.Warning(fmt.Sprintf("test command %v not found, test checks will fail",
			cfg.Checks.TestCommand))
	}

	metrics, err := builder.NewMetrics()
	if err != nil {
		logger.Warn("metrics setup failed, continuing without counters", "error", err)
	}

	depth := cfg.Builder.MaxDepth
	if maxDepth > 0 {
		depth = maxDepth
	}
	outDir := cfg.Builder.ArtifactDir
	if artifactDir != "" {
		outDir = artifactDir
	}

	orch := builder.NewOrchestrator(
		store,
		client,
		verify.NewVerifier(client, verify.WithLogger(logger.Slog())),
		checker,
		builder.NewStdinReader(),
		builder.WithMaxDepth(depth),
		builder.WithVerifyWorkers(cfg.Builder.VerifyWorkers),
		builder.WithArtifactDir(outDir),
		builder.WithArtifactExt(cfg.Builder.ArtifactExt),
		builder.WithMetrics(metrics),
		builder.WithLogger(logger.Slog()),
	)

	if store.Len(branchName) == 0 {
		if err := store.Append(branchName, datatypes.RoleSystem, systemPrompt); err != nil {
			logger.Error("seeding branch failed", "branch", branchName, "error", err)
			os.Exit(1)
		}
	}

	ux.Title("forge build")
	fmt.Println(ux.Styles.Subtitle.Render(fmt.Sprintf("branch %s, backend %s, depth limit %d",
		branchName, client.Name(), depth)))

	runLog := logger.With("branch", branchName)
	if err := orch.RecursivePrompt(ctx, branchName, prompt, 0); err != nil {
		runLog.Error("build run failed", "error", err)
		ux.Error("build failed: " + err.Error())
		os.Exit(1)
	}
	runLog.Info("build run finished", "artifact_dir", outDir)
	ux.Success("build finished")
	fmt.Println(ux.Styles.CodeBox.Render("artifacts " + string(ux.IconArrow) + " " + outDir))
}

// runBranches lists the stored conversation branches.
func runBranches(cmd *cobra.Command, args []string) {
	cfg := config.Global
	store := conversation.NewStore(cfg.Builder.ConversationFile,
		conversation.WithMaxLen(cfg.Builder.MaxConversationLength),
	)

	branches := store.List()
	if len(branches) == 0 {
		ux.Info("no stored branches")
		return
	}
	ux.Title("stored branches")
	for _, name := range branches {
		stats := fmt.Sprintf("messages=%d bytes=%d", store.Len(name), store.Size(name))
		fmt.Printf("%s %s  %s\n",
			string(ux.IconBullet), ux.Styles.Bold.Render(name),
			ux.Styles.Muted.Render(stats))
	}
}

// serveMetrics exposes /metrics when the prometheus exporter is
// active. Errors are logged, not fatal.
func serveMetrics(handler http.Handler, port int, logger *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", "error", err)
	}
}
