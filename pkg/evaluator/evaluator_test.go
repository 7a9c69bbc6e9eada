package evaluator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetuber/kiln/pkg/artifact"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/generator"
	"github.com/voicetuber/kiln/pkg/graph"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// fakeToolchain installs a fixed tree instead of running a native build.
type fakeToolchain struct {
	cfg   ToolchainConfig
	files map[string]string
	log   *callLog
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeToolchain) Configure(_ context.Context, _ map[string]string) error {
	if _, err := os.Stat(f.cfg.ToolchainFile); err != nil {
		return err
	}
	f.log.add("configure")
	return nil
}

func (f *fakeToolchain) Build(context.Context) error {
	f.log.add("build")
	return nil
}

func (f *fakeToolchain) Install(_ context.Context, prefix string) error {
	f.log.add("install")
	for rel, content := range f.files {
		p := filepath.Join(prefix, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func fakeFactory(log *callLog, files map[string]string) ToolchainFactory {
	return func(c ToolchainConfig) recipe.Toolchain {
		return &fakeToolchain{cfg: c, files: files, log: log}
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

var libraryTree = map[string]string{
	"include/lib.h":          "// lib",
	"lib/liblib.a":           "ar",
	"lib/cmake/lib.cmake":    "cmake",
	"lib/pkgconfig/lib.pc":   "pc",
	"share/doc/README":       "doc",
	"cmake/legacy.cmake":     "legacy",
	"libdata/pkgconfig/x.pc": "bsd",
}

func library(t *testing.T, ref string, requires ...string) *recipe.Definition {
	t.Helper()
	r := recipe.MustParseReference(ref)
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"CMakeLists.txt": "project(" + r.Name + ")",
		"src/lib.c":      "int lib;",
		"LICENSE":        "license of " + r.Name,
		"unrelated.txt":  "not exported",
	})
	d := &recipe.Definition{
		Meta: recipe.Metadata{
			Name:           r.Name,
			Version:        r.Version,
			PackageType:    recipe.PackageTypeLibrary,
			Settings:       []string{recipe.AxisOS, recipe.AxisBuildType},
			ExportsSources: []string{"CMakeLists.txt", "src/*", "LICENSE"},
			Licenses:       []string{"LICENSE"},
		},
		Root: root,
	}
	for _, req := range requires {
		d.Requires = append(d.Requires, recipe.MustParseReference(req))
	}
	return d
}

func resolve(t *testing.T, root string, defs ...*recipe.Definition) *graph.Graph {
	t.Helper()
	c := recipe.NewCatalog()
	for _, d := range defs {
		require.NoError(t, c.Register(d))
	}
	settings, err := recipe.ParseSettings([]string{"os=Linux", "build_type=Release"})
	require.NoError(t, err)
	g, err := graph.NewBuilder(c, graph.WithSettings(settings)).Build(context.Background(), recipe.MustParseReference(root))
	require.NoError(t, err)
	return g
}

func newEvaluator(t *testing.T, log *callLog, opts ...Option) *Evaluator {
	t.Helper()
	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	opts = append([]Option{WithToolchain(fakeFactory(log, libraryTree))}, opts...)
	return New(store, opts...)
}

func evaluateAll(t *testing.T, e *Evaluator, g *graph.Graph) map[string]*artifact.Package {
	t.Helper()
	published := make(map[string]*artifact.Package)
	for _, n := range g.Nodes() {
		res, err := e.Evaluate(context.Background(), g, n, published)
		require.NoError(t, err, n.Ref.String())
		published[n.Name()] = res.Package
	}
	return published
}

func TestEvaluateBuildsAndPublishes(t *testing.T) {
	lib := library(t, "pocketsphinx/5.0.1")
	lib.InfoFunc = func(_ context.Context, _ *recipe.EvalContext, info *recipe.PackageInfo) error {
		info.Libs = []string{"pocketsphinx"}
		return nil
	}
	g := resolve(t, "pocketsphinx/5.0.1", lib)
	log := &callLog{}
	e := newEvaluator(t, log)

	n := g.Root()
	res, err := e.Evaluate(context.Background(), g, n, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, res.Status)
	assert.Equal(t, []string{"configure", "build", "install"}, log.calls)

	pkg := res.Package
	assert.FileExists(t, pkg.Path("include/lib.h"))
	assert.FileExists(t, pkg.Path("lib/liblib.a"))
	assert.FileExists(t, pkg.Path("licenses/LICENSE"))
	for _, d := range recipe.StripDirs {
		assert.NoDirExists(t, pkg.Path(d), d)
	}
	assert.Equal(t, []string{"pocketsphinx"}, pkg.Manifest.Info.Libs)
	assert.Equal(t, []string{"include"}, pkg.Manifest.Info.IncludeDirs)
	assert.Equal(t, map[string]string{"os": "Linux", "build_type": "Release"}, pkg.Manifest.Settings)
	assert.NoError(t, pkg.Verify(context.Background()))

	ws := newWorkspace(filepath.Join(e.Store().Root(), ".work"), n.Ref, n.PackageID)
	assert.FileExists(t, filepath.Join(ws.generators, generator.ToolchainFile))
	assert.FileExists(t, filepath.Join(ws.source, "src/lib.c"))
	assert.NoFileExists(t, filepath.Join(ws.source, "unrelated.txt"))
}

func TestEvaluateCacheAndForce(t *testing.T) {
	g := resolve(t, "zlib/1.3", library(t, "zlib/1.3"))
	log := &callLog{}
	e := newEvaluator(t, log)
	n := g.Root()

	first, err := e.Evaluate(context.Background(), g, n, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, first.Status)

	second, err := e.Evaluate(context.Background(), g, n, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusCached, second.Status)
	assert.Equal(t, first.Dir, second.Dir)
	assert.Equal(t, 1, log.count("build"))

	forced := New(e.Store(), WithToolchain(fakeFactory(log, libraryTree)), WithForce(true))
	third, err := forced.Evaluate(context.Background(), g, n, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusBuilt, third.Status)
	assert.Equal(t, 2, log.count("build"))
}

func TestEvaluateCallbackFailure(t *testing.T) {
	boom := errors.New("compiler exploded")

	tests := []struct {
		name  string
		patch func(d *recipe.Definition)
		phase string
	}{
		{
			name: "generate",
			patch: func(d *recipe.Definition) {
				d.GenerateFunc = func(context.Context, *recipe.GenerateContext) error { return boom }
			},
			phase: recipe.PhaseGenerate,
		},
		{
			name: "build",
			patch: func(d *recipe.Definition) {
				d.BuildFunc = func(context.Context, *recipe.BuildContext) error { return boom }
			},
			phase: recipe.PhaseBuild,
		},
		{
			name: "package",
			patch: func(d *recipe.Definition) {
				d.PackageFunc = func(context.Context, *recipe.PackageContext) error { return boom }
			},
			phase: recipe.PhasePackage,
		},
		{
			name: "package_info",
			patch: func(d *recipe.Definition) {
				d.InfoFunc = func(context.Context, *recipe.EvalContext, *recipe.PackageInfo) error { return boom }
			},
			phase: recipe.PhasePackageInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := library(t, "sdl/2.26.5")
			tt.patch(lib)
			g := resolve(t, "sdl/2.26.5", lib)
			e := newEvaluator(t, &callLog{})

			res, err := e.Evaluate(context.Background(), g, g.Root(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, StatusFailed, res.Status)

			se, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeRecipeEvaluation, se.Code)
			assert.Equal(t, "sdl/2.26.5", se.Context[apperrors.ContextNode])
			assert.Equal(t, tt.phase, se.Context[apperrors.ContextPhase])

			_, published := e.Lookup(g.Root())
			assert.False(t, published)
			assert.NoDirExists(t, e.Store().PackageDir(g.Root().Ref, g.Root().PackageID))
		})
	}
}

func TestEvaluateGenerateSeesDependencies(t *testing.T) {
	imgui := library(t, "imgui/cci.20230105+1.89.2.docking")
	app := library(t, "voicetuber/0.1.0", "imgui/cci.20230105+1.89.2.docking")
	app.Meta.PackageType = recipe.PackageTypeApplication
	app.GenerateFunc = func(_ context.Context, gc *recipe.GenerateContext) error {
		dep, ok := gc.Dependency("imgui")
		if !ok {
			return errors.New("imgui missing")
		}
		gc.SetVariable("imgui_RES_DIR", filepath.Join(dep.PackageDir, "res"))
		return nil
	}
	g := resolve(t, "voicetuber/0.1.0", app, imgui)

	log := &callLog{}
	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	withRes := map[string]string{"include/imgui.h": "h", "lib/libimgui.a": "a", "res/font.ttf": "ttf"}
	e := New(store, WithToolchain(fakeFactory(log, withRes)))

	published := evaluateAll(t, e, g)
	assert.Equal(t, []string{"res"}, published["imgui"].Manifest.Info.ResDirs)

	root := g.Root()
	ws := newWorkspace(filepath.Join(store.Root(), ".work"), root.Ref, root.PackageID)
	tc, err := os.ReadFile(filepath.Join(ws.generators, generator.ToolchainFile))
	require.NoError(t, err)
	want := filepath.ToSlash(filepath.Join(published["imgui"].Dir, "res"))
	assert.Contains(t, string(tc), `set(imgui_RES_DIR "`+want+`")`)

	cfg, err := os.ReadFile(filepath.Join(ws.generators, "imgui-config.cmake"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "imgui_RES_DIR")
}

func TestEvaluateDeclaredDirsMustSurviveStrip(t *testing.T) {
	tests := []struct {
		name string
		info recipe.PackageInfo
		keep []string
		ok   bool
	}{
		{name: "res dir stripped", info: recipe.PackageInfo{ResDirs: []string{"share/doc"}}},
		{name: "res dir kept", info: recipe.PackageInfo{ResDirs: []string{"share/doc"}}, keep: []string{"share"}, ok: true},
		{name: "include dir missing", info: recipe.PackageInfo{IncludeDirs: []string{"include/pocketsphinx"}}},
		{name: "bin dir missing", info: recipe.PackageInfo{BinDirs: []string{"bin"}}},
		{name: "default dirs", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := library(t, "pocketsphinx/5.0.3")
			lib.Meta.Keep = tt.keep
			lib.InfoFunc = func(_ context.Context, _ *recipe.EvalContext, info *recipe.PackageInfo) error {
				*info = tt.info
				return nil
			}
			g := resolve(t, "pocketsphinx/5.0.3", lib)
			e := newEvaluator(t, &callLog{})

			_, err := e.Evaluate(context.Background(), g, g.Root(), nil)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			se, ok := apperrors.As(err)
			require.True(t, ok, "expected structured error, got %v", err)
			assert.Equal(t, apperrors.ErrCodeRecipeEvaluation, se.Code)
			assert.Equal(t, recipe.PhasePackageInfo, se.Context[apperrors.ContextPhase])
			_, published := e.Lookup(g.Root())
			assert.False(t, published)
		})
	}
}

func TestEvaluateMissingDependency(t *testing.T) {
	g := resolve(t, "app/1.0", library(t, "app/1.0", "zlib/1.3"), library(t, "zlib/1.3"))
	e := newEvaluator(t, &callLog{})

	_, err := e.Evaluate(context.Background(), g, g.Root(), map[string]*artifact.Package{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInternal))
}

// markerPatcher records the directory it patched and drops a marker file.
type markerPatcher struct {
	dirs []string
}

func (p *markerPatcher) Apply(_ context.Context, dir, _ string, _ int) error {
	p.dirs = append(p.dirs, dir)
	return os.WriteFile(filepath.Join(dir, "src", "PATCHED"), []byte("yes"), 0o644)
}

func TestEvaluatePatchesExportedCopy(t *testing.T) {
	lib := library(t, "pocketsphinx/5.0.1")
	lib.Meta.Patches = []recipe.Patch{{File: "patches/0001-fix-build.patch", Description: "fix build"}}
	writeFiles(t, lib.Root, map[string]string{"patches/0001-fix-build.patch": "--- a\n+++ b\n"})
	g := resolve(t, "pocketsphinx/5.0.1", lib)

	p := &markerPatcher{}
	e := newEvaluator(t, &callLog{}, WithPatcher(p))
	_, err := e.Evaluate(context.Background(), g, g.Root(), nil)
	require.NoError(t, err)

	require.Len(t, p.dirs, 1)
	assert.NoFileExists(t, filepath.Join(lib.Root, "src", "PATCHED"))
	ws := newWorkspace(filepath.Join(e.Store().Root(), ".work"), g.Root().Ref, g.Root().PackageID)
	assert.FileExists(t, filepath.Join(ws.source, "src", "PATCHED"))
}

func TestEvaluateObserverPhases(t *testing.T) {
	g := resolve(t, "zlib/1.3", library(t, "zlib/1.3"))

	var mu sync.Mutex
	var started []string
	e := newEvaluator(t, &callLog{}, WithObserver(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if !ev.Finished {
			started = append(started, ev.Phase)
		}
	}))

	_, err := e.Evaluate(context.Background(), g, g.Root(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		PhaseExport, recipe.PhaseGenerate, recipe.PhaseBuild, recipe.PhasePackage, recipe.PhasePackageInfo,
	}, started)
}

func TestEvaluateCanceled(t *testing.T) {
	g := resolve(t, "zlib/1.3", library(t, "zlib/1.3"))
	e := newEvaluator(t, &callLog{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Evaluate(ctx, g, g.Root(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTimeout))
	assert.ErrorIs(t, err, context.Canceled)
}
