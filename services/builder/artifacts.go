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
	"fmt"
	"os"
	"path/filepath"

	"github.com/AleutianAI/AleutianForge/pkg/ux"
)

// DefaultArtifactExt is the file extension applied to generated
// artifacts when none is configured.
const DefaultArtifactExt = ".py"

// artifactPath derives the on-disk location for a code block extracted
// from one turn. Refined snippets get a distinct name so the original
// attempt survives for comparison.
func (o *Orchestrator) artifactPath(branch string, index int, refined bool) string {
	kind := "part"
	if refined {
		kind = "refined_"
	}
	name := fmt.Sprintf("%s_%s%d%s", sanitizeBranch(branch), kind, index, o.artifactExt)
	return filepath.Join(o.artifactDir, name)
}

// saveArtifact writes the code text as-is, creating the artifact
// directory on first use. Existing files are overwritten. Saved paths
// are announced on the terminal.
func (o *Orchestrator) saveArtifact(path, code string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create artifact directory %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(code+"\n"), 0o644); err != nil {
		return fmt.Errorf("write artifact %q: %w", path, err)
	}
	ux.Artifact(path)
	return nil
}

// sanitizeBranch keeps branch-derived filenames on one path level.
// Branch names are caller-controlled strings and may contain
// separators.
func sanitizeBranch(branch string) string {
	out := make([]rune, 0, len(branch))
	for _, r := range branch {
		switch r {
		case '/', '\\', ':':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
