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

package evaluator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/build"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// PhaseExport is the source export step that precedes generate.
const PhaseExport = "export"

// Status is the outcome of evaluating a node.
type Status string

// Node outcomes.
const (
	StatusBuilt   Status = "built"
	StatusCached  Status = "cached"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is the outcome of one node.
type Result struct {
	Ref       recipe.Reference  `json:"ref" yaml:"ref"`
	PackageID string            `json:"packageId" yaml:"packageId"`
	Status    Status            `json:"status" yaml:"status"`
	Package   *artifact.Package `json:"-" yaml:"-"`
	Dir       string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Event reports a phase transition. Err is set on failed phases; Duration on
// finished ones.
type Event struct {
	Ref      recipe.Reference
	Phase    string
	Finished bool
	Duration time.Duration
	Err      error
}

// Observer receives phase events. It may be called from several goroutines.
type Observer func(Event)

// ToolchainConfig describes the toolchain of one node.
type ToolchainConfig struct {
	SourceDir     string
	BuildDir      string
	ToolchainFile string
	BuildType     string
	Jobs          int
	Runner        build.Runner
}

// ToolchainFactory creates the toolchain a node builds with.
type ToolchainFactory func(ToolchainConfig) recipe.Toolchain

// CMakeToolchain returns a factory for CMake builds with the given generator.
func CMakeToolchain(generator string) ToolchainFactory {
	return func(c ToolchainConfig) recipe.Toolchain {
		return &build.CMake{
			Runner:        c.Runner,
			SourceDir:     c.SourceDir,
			BuildDir:      c.BuildDir,
			ToolchainFile: c.ToolchainFile,
			BuildType:     c.BuildType,
			Generator:     generator,
			Jobs:          c.Jobs,
		}
	}
}

// workspace is the per-node work directory layout.
type workspace struct {
	root       string
	source     string
	build      string
	generators string
	log        string
}

func newWorkspace(root string, ref recipe.Reference, id string) workspace {
	dir := filepath.Join(root, ref.Name, ref.Version, id)
	return workspace{
		root:       dir,
		source:     filepath.Join(dir, "src"),
		build:      filepath.Join(dir, "build"),
		generators: filepath.Join(dir, "generators"),
		log:        filepath.Join(dir, "build.log"),
	}
}

func (w workspace) prepare() error {
	if err := os.RemoveAll(w.source); err != nil {
		return err
	}
	for _, d := range []string{w.source, w.build, w.generators} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// logRunner sends command output to the node's log unless a command sets
// its own writers.
type logRunner struct {
	build.Runner
	out io.Writer
}

func (r logRunner) Run(ctx context.Context, c build.Command) error {
	if c.Stdout == nil {
		c.Stdout = r.out
	}
	if c.Stderr == nil {
		c.Stderr = r.out
	}
	return r.Runner.Run(ctx, c)
}
