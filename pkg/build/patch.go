// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/voicetuber/kiln/pkg/recipe"
)

// Patcher applies one patch file to a directory.
type Patcher interface {
	Apply(ctx context.Context, dir, patchFile string, strip int) error
}

// CommandPatcher applies patches with the patch(1) tool.
type CommandPatcher struct {
	Runner Runner

	// Binary defaults to "patch".
	Binary string
}

// Apply runs patch -p<strip> in dir.
func (p *CommandPatcher) Apply(ctx context.Context, dir, patchFile string, strip int) error {
	bin := p.Binary
	if bin == "" {
		bin = "patch"
	}
	return p.Runner.Run(ctx, Command{
		Name: bin,
		Args: []string{"-p" + strconv.Itoa(strip), "--batch", "--forward", "-i", patchFile},
		Dir:  dir,
	})
}

// ApplyPatches applies patches to srcDir all-or-nothing. Patch files are
// resolved against patchRoot. On failure srcDir is left untouched.
func ApplyPatches(ctx context.Context, p Patcher, srcDir, patchRoot string, patches []recipe.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	suffix := uuid.NewString()
	work := srcDir + ".patching-" + suffix
	if err := CopyTree(ctx, srcDir, work); err != nil {
		_ = os.RemoveAll(work)
		return fmt.Errorf("failed to copy sources for patching: %w", err)
	}

	for _, patch := range patches {
		file := patch.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(patchRoot, file)
		}
		if err := p.Apply(ctx, work, file, patch.StripLevel()); err != nil {
			_ = os.RemoveAll(work)
			return fmt.Errorf("patch %s failed: %w", patch.File, err)
		}
		slog.Debug("patch applied", "patch", patch.File, "description", patch.Description)
	}

	old := srcDir + ".orig-" + suffix
	if err := os.Rename(srcDir, old); err != nil {
		_ = os.RemoveAll(work)
		return fmt.Errorf("failed to swap patched sources: %w", err)
	}
	if err := os.Rename(work, srcDir); err != nil {
		_ = os.Rename(old, srcDir)
		_ = os.RemoveAll(work)
		return fmt.Errorf("failed to swap patched sources: %w", err)
	}
	return os.RemoveAll(old)
}
