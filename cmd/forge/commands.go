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
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

// --- Global Command Variables ---
var (
	branchName  string
	maxDepth    int
	artifactDir string

	rootCmd = &cobra.Command{
		Use:   "forge",
		Short: "A cli that builds programs piece by piece with a local or remote LLM",
		Long: `Forge drives an iterative code-generation loop: it prompts a model
for code in small pieces, verifies each piece with a second model call,
runs lint and test checks, refines rejected pieces once, and asks you
clarifying questions when the model needs more detail.`,
	}

	buildCmd = &cobra.Command{
		Use:   "build [prompt]",
		Short: "Start a recursive build conversation from the given prompt",
		Args:  cobra.MinimumNArgs(1),
		Run:   runBuild, // Defined in cmd_build.go
	}

	branchesCmd = &cobra.Command{
		Use:   "branches",
		Short: "List stored conversation branches with message counts and sizes",
		Run:   runBranches, // Defined in cmd_build.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the forge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("forge", version)
		},
	}
)

func init() {
	buildCmd.Flags().StringVar(&branchName, "branch", "root",
		"conversation branch to build on")
	buildCmd.Flags().IntVar(&maxDepth, "max-depth", 0,
		"override the configured recursion depth ceiling")
	buildCmd.Flags().StringVar(&artifactDir, "artifact-dir", "",
		"override the configured artifact directory")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(versionCmd)
}
