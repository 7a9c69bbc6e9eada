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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/build"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/generator"
	"github.com/voicetuber/kiln/pkg/graph"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// Evaluator builds and packages graph nodes into a store.
type Evaluator struct {
	store     *artifact.Store
	workDir   string
	runner    build.Runner
	patcher   build.Patcher
	toolchain ToolchainFactory
	observer  Observer
	force     bool
	buildJobs int
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkDir sets the root of per-node work directories.
func WithWorkDir(dir string) Option {
	return func(e *Evaluator) {
		e.workDir = dir
	}
}

// WithRunner sets the runner for external processes.
func WithRunner(r build.Runner) Option {
	return func(e *Evaluator) {
		e.runner = r
	}
}

// WithPatcher overrides how patches are applied.
func WithPatcher(p build.Patcher) Option {
	return func(e *Evaluator) {
		e.patcher = p
	}
}

// WithToolchain sets the toolchain factory.
func WithToolchain(f ToolchainFactory) Option {
	return func(e *Evaluator) {
		e.toolchain = f
	}
}

// WithObserver registers a phase observer.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) {
		e.observer = o
	}
}

// WithForce rebuilds nodes even when a package is already published.
func WithForce(force bool) Option {
	return func(e *Evaluator) {
		e.force = force
	}
}

// WithBuildJobs sets the parallelism passed to the native build tool.
func WithBuildJobs(n int) Option {
	return func(e *Evaluator) {
		e.buildJobs = n
	}
}

// New creates an Evaluator publishing into store.
func New(store *artifact.Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:     store,
		workDir:   filepath.Join(store.Root(), ".work"),
		runner:    build.NewExecRunner(),
		toolchain: CMakeToolchain(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the store packages are published into.
func (e *Evaluator) Store() *artifact.Store {
	return e.store
}

// Lookup returns the published package of n, if any.
func (e *Evaluator) Lookup(n *graph.Node) (*artifact.Package, bool) {
	return e.store.Lookup(n.Ref, n.PackageID)
}

// Evaluate produces the package of n. published must hold the package of
// every transitive dependency of n.
func (e *Evaluator) Evaluate(ctx context.Context, g *graph.Graph, n *graph.Node, published map[string]*artifact.Package) (*Result, error) {
	start := time.Now()
	res := &Result{Ref: n.Ref, PackageID: n.PackageID}

	if !e.force {
		if pkg, ok := e.Lookup(n); ok {
			res.Status, res.Package, res.Dir = StatusCached, pkg, pkg.Dir
			res.Duration = time.Since(start)
			nodeResults.WithLabelValues(string(StatusCached)).Inc()
			slog.Debug("package cache hit", "node", n.Ref.String(), "package_id", n.PackageID)
			return res, nil
		}
	}

	pkg, err := e.produce(ctx, g, n, published)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status, res.Error = StatusFailed, err.Error()
		nodeResults.WithLabelValues(string(StatusFailed)).Inc()
		return res, err
	}
	res.Status, res.Package, res.Dir = StatusBuilt, pkg, pkg.Dir
	nodeResults.WithLabelValues(string(StatusBuilt)).Inc()
	nodeBuildDuration.Observe(res.Duration.Seconds())
	return res, nil
}

// Dependencies returns the dependency view of n over published packages,
// in build order.
func Dependencies(g *graph.Graph, n *graph.Node, published map[string]*artifact.Package) ([]recipe.Dependency, error) {
	direct := make([]string, len(n.Requires))
	for i, r := range n.Requires {
		direct[i] = r.Name
	}

	transitive := g.Transitive(n.Name())
	deps := make([]recipe.Dependency, 0, len(transitive))
	for _, t := range transitive {
		pkg, ok := published[t.Name()]
		if !ok {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeInternal,
				fmt.Sprintf("dependency %s of %s is not published", t.Ref, n.Ref),
				map[string]any{apperrors.ContextNode: n.Ref.String()})
		}
		requires := make([]string, len(t.Requires))
		for i, r := range t.Requires {
			requires[i] = r.Name
		}
		deps = append(deps, recipe.Dependency{
			Ref:        t.Ref,
			PackageDir: pkg.Dir,
			Info:       pkg.Manifest.Info,
			Direct:     slices.Contains(direct, t.Name()),
			Requires:   requires,
		})
	}
	return deps, nil
}

func (e *Evaluator) produce(ctx context.Context, g *graph.Graph, n *graph.Node, published map[string]*artifact.Package) (*artifact.Package, error) {
	r := n.Recipe
	meta := r.Metadata()
	ec := n.EvalContext()

	deps, err := Dependencies(g, n, published)
	if err != nil {
		return nil, err
	}

	ws := newWorkspace(e.workDir, n.Ref, n.PackageID)
	if err := ws.prepare(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeArtifactStaging,
			fmt.Sprintf("failed to prepare work directory for %s", n.Ref), err)
	}
	logFile, err := os.Create(ws.log)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeArtifactStaging,
			fmt.Sprintf("failed to create build log for %s", n.Ref), err)
	}
	defer logFile.Close()
	runner := logRunner{Runner: e.runner, out: logFile}

	sourceRoot := ""
	if sp, ok := r.(recipe.SourceProvider); ok {
		sourceRoot = sp.SourceRoot()
	}

	// export
	if err := e.phase(ctx, n, PhaseExport, func(ctx context.Context) error {
		if len(meta.ExportsSources) == 0 {
			return nil
		}
		_, err := build.ExportSources(ctx, sourceRoot, ws.source, meta.ExportsSources)
		return err
	}); err != nil {
		return nil, err
	}

	// generate
	gc := recipe.NewGenerateContext(ec, deps)
	if err := e.phase(ctx, n, recipe.PhaseGenerate, func(ctx context.Context) error {
		if gen, ok := r.(recipe.Generator); ok {
			if err := gen.Generate(ctx, gc); err != nil {
				return err
			}
		}
		_, err := generator.Write(ctx, generator.Input{
			Ref:          n.Ref,
			Settings:     n.Settings.Map(),
			Options:      n.Options.Map(),
			Variables:    gc.Variables,
			Dependencies: deps,
			Dir:          ws.generators,
		})
		return err
	}); err != nil {
		return nil, err
	}

	st, err := e.store.Stage(n.Ref, n.PackageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Abort() }()

	tc := e.toolchain(ToolchainConfig{
		SourceDir:     ws.source,
		BuildDir:      ws.build,
		ToolchainFile: filepath.Join(ws.generators, generator.ToolchainFile),
		BuildType:     n.Settings.Value(recipe.AxisBuildType),
		Jobs:          e.buildJobs,
		Runner:        runner,
	})

	// build, patches first
	if err := e.phase(ctx, n, recipe.PhaseBuild, func(ctx context.Context) error {
		patcher := e.patcher
		if patcher == nil {
			patcher = &build.CommandPatcher{Runner: runner}
		}
		if err := build.ApplyPatches(ctx, patcher, ws.source, sourceRoot, meta.Patches); err != nil {
			return err
		}
		bc := &recipe.BuildContext{
			EvalContext:   ec,
			SourceDir:     ws.source,
			BuildDir:      ws.build,
			GeneratorsDir: ws.generators,
			Toolchain:     tc,
		}
		if b, ok := r.(recipe.Builder); ok {
			return b.Build(ctx, bc)
		}
		return recipe.DefaultBuild(ctx, bc)
	}); err != nil {
		return nil, err
	}

	// package
	if err := e.phase(ctx, n, recipe.PhasePackage, func(ctx context.Context) error {
		pc := &recipe.PackageContext{
			EvalContext: ec,
			SourceDir:   ws.source,
			BuildDir:    ws.build,
			PackageDir:  st.Dir(),
			Toolchain:   tc,
		}
		if p, ok := r.(recipe.Packager); ok {
			return p.Package(ctx, pc)
		}
		return recipe.DefaultPackage(ctx, pc)
	}); err != nil {
		return nil, err
	}

	if _, err := st.CopyLicenses(ctx, ws.source, meta.Licenses); err != nil {
		return nil, err
	}
	removed, err := st.Strip(meta.StripList())
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		slog.Debug("stripped package directories", "node", n.Ref.String(), "dirs", removed)
	}

	// package_info
	var info recipe.PackageInfo
	if err := e.phase(ctx, n, recipe.PhasePackageInfo, func(ctx context.Context) error {
		if ip, ok := r.(recipe.InfoProvider); ok {
			if err := ip.PackageInfo(ctx, &ec, &info); err != nil {
				return err
			}
		}
		return checkInfoDirs(st.Dir(), info)
	}); err != nil {
		return nil, err
	}
	info = info.WithDefaults()
	if len(info.ResDirs) == 0 && dirExists(filepath.Join(st.Dir(), "res")) {
		info.ResDirs = []string{"res"}
	}

	requires := make([]string, len(n.Requires))
	for i, req := range n.Requires {
		requires[i] = req.String()
	}
	return st.Publish(ctx, artifact.Manifest{
		PackageType: meta.PackageType,
		Settings:    n.Settings.Map(),
		Options:     n.Options.Map(),
		Requires:    requires,
		Info:        info,
	})
}

// phase runs fn as the named lifecycle phase of n, reporting events and
// wrapping failures.
func (e *Evaluator) phase(ctx context.Context, n *graph.Node, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeTimeout,
			fmt.Sprintf("%s of %s canceled", name, n.Ref), err,
			map[string]any{apperrors.ContextNode: n.Ref.String(), apperrors.ContextPhase: name})
	}

	e.emit(Event{Ref: n.Ref, Phase: name})
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	phaseDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			err = apperrors.WrapWithContext(apperrors.ErrCodeTimeout,
				fmt.Sprintf("%s of %s canceled", name, n.Ref), err,
				map[string]any{apperrors.ContextNode: n.Ref.String(), apperrors.ContextPhase: name})
		} else {
			err = apperrors.WrapWithContext(apperrors.ErrCodeRecipeEvaluation,
				fmt.Sprintf("%s of %s failed", name, n.Ref), err,
				map[string]any{apperrors.ContextNode: n.Ref.String(), apperrors.ContextPhase: name})
		}
		e.emit(Event{Ref: n.Ref, Phase: name, Finished: true, Duration: elapsed, Err: err})
		slog.Debug("phase failed", "node", n.Ref.String(), "phase", name, "error", err)
		return err
	}
	e.emit(Event{Ref: n.Ref, Phase: name, Finished: true, Duration: elapsed})
	return nil
}

func (e *Evaluator) emit(ev Event) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// checkInfoDirs fails when package_info declares a directory the staged
// tree does not have, for example one removed by stripping.
func checkInfoDirs(root string, info recipe.PackageInfo) error {
	for _, dirs := range [][]string{info.IncludeDirs, info.BinDirs, info.ResDirs} {
		for _, d := range dirs {
			if !dirExists(filepath.Join(root, filepath.FromSlash(d))) {
				return fmt.Errorf("declared directory %s is missing from the package", d)
			}
		}
	}
	return nil
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
