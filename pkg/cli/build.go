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

package cli

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/defaults"
	"github.com/voicetuber/kiln/pkg/evaluator"
	"github.com/voicetuber/kiln/pkg/orchestrator"
	"github.com/voicetuber/kiln/pkg/result"
)

// toolchainFactory creates the native toolchain for a CMake generator.
var toolchainFactory = evaluator.CMakeToolchain

func buildCmd() *cli.Command {
	flags := append(resolveFlags(), storeFlags()...)
	flags = append(flags, buildFlags()...)
	return &cli.Command{
		Name:      "build",
		Usage:     "Build every package of a recipe's dependency graph",
		ArgsUsage: "<name/version>",
		Description: `Resolve the graph and build it leaves first. Independent packages build in
parallel up to --jobs. Packages already in the store for the same package ID
are reused unless --force is set. Any failure aborts the build; dependents of
the failed package are reported as skipped.

The optional --output file receives the BuildResult document.`,
		Flags: append(flags, outputFlag(), formatFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			out, err := runBuild(ctx, cmd)
			if out != nil && cmd.String("output") != "" {
				if werr := writeResult(ctx, cmd, out); werr != nil {
					slog.Error("failed to write build result", "error", werr)
				}
			}
			return err
		},
	}
}

// runBuild resolves and builds the invocation's graph, printing progress to
// stderr and the summary to the root writer.
func runBuild(ctx context.Context, cmd *cli.Command) (*result.Output, error) {
	inv, err := loadInvocation(ctx, cmd)
	if err != nil {
		return nil, err
	}
	g, err := inv.resolve(ctx)
	if err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(inv.storeDir)
	if err != nil {
		return nil, err
	}

	p := newProgress(cmd.Root().ErrWriter, g.Len(), !cmd.Bool("no-progress"))
	eval := evaluator.New(store,
		evaluator.WithForce(cmd.Bool("force")),
		evaluator.WithBuildJobs(cmd.Int("build-jobs")),
		evaluator.WithToolchain(toolchainFactory(cmd.String("generator"))),
		evaluator.WithObserver(p.observe),
	)
	orch := orchestrator.New(eval,
		orchestrator.WithJobs(inv.jobs),
		orchestrator.WithResultHandler(p.done),
	)

	ctx, cancel := context.WithTimeout(ctx, defaults.BuildTimeout)
	defer cancel()

	out, err := orch.Run(ctx, g)
	p.finish()
	if out != nil {
		printSummary(cmd.Root().Writer, out)
	}
	return out, err
}

func writeResult(ctx context.Context, cmd *cli.Command, out *result.Output) error {
	w, err := newOutputWriter(cmd)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Serialize(ctx, out)
}

// packages returns the published packages of out, root last.
func packages(out *result.Output, rootOnly bool) []*artifact.Package {
	var pkgs []*artifact.Package
	for _, r := range out.Results {
		if r.Package == nil {
			continue
		}
		if rootOnly && r.Ref != out.Root {
			continue
		}
		pkgs = append(pkgs, r.Package)
	}
	return pkgs
}
