package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
)

func def(ref string, requires ...string) *recipe.Definition {
	r := recipe.MustParseReference(ref)
	d := &recipe.Definition{
		Meta: recipe.Metadata{
			Name:        r.Name,
			Version:     r.Version,
			PackageType: recipe.PackageTypeLibrary,
		},
	}
	for _, req := range requires {
		d.Requires = append(d.Requires, recipe.MustParseReference(req))
	}
	return d
}

func catalogOf(t *testing.T, defs ...*recipe.Definition) *recipe.Catalog {
	t.Helper()
	c := recipe.NewCatalog()
	for _, d := range defs {
		require.NoError(t, c.Register(d))
	}
	return c
}

func refs(ss ...string) []recipe.Reference {
	out := make([]recipe.Reference, len(ss))
	for i, s := range ss {
		out[i] = recipe.MustParseReference(s)
	}
	return out
}

func structured(t *testing.T, err error) *apperrors.StructuredError {
	t.Helper()
	require.Error(t, err)
	se, ok := apperrors.As(err)
	require.True(t, ok, "expected structured error, got %T: %v", err, err)
	return se
}

func TestBuildDiamond(t *testing.T) {
	c := catalogOf(t,
		def("root/1.0", "a/1.0", "b/1.0"),
		def("b/1.0", "a/1.0"),
		def("a/1.0"),
	)

	g, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("root/1.0"))
	require.NoError(t, err)

	assert.Equal(t, refs("a/1.0", "b/1.0", "root/1.0"), g.Order())
	assert.Equal(t, 3, g.Len())

	a, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, []string{"root/1.0", "b/1.0"}, a.Requesters)
	assert.Equal(t, 0, a.Level)

	b, _ := g.Node("b")
	assert.Same(t, a, g.Dependencies("b")[0])
	assert.Equal(t, 1, b.Level)
	assert.Equal(t, 2, g.Root().Level)
	assert.True(t, g.Root().IsRoot)
	assert.Equal(t, []string{RootRequester}, g.Root().Requesters)
}

func TestBuildNameAppearsOnce(t *testing.T) {
	c := catalogOf(t,
		def("app/1.0", "x/1.0", "y/1.0", "z/1.0"),
		def("x/1.0", "common/2.0"),
		def("y/1.0", "common/2.0", "x/1.0"),
		def("z/1.0", "common/2.0", "y/1.0"),
		def("common/2.0"),
	)

	g, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("app/1.0"))
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, n := range g.Nodes() {
		seen[n.Name()]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, name)
	}
	assert.Equal(t, refs("common/2.0", "x/1.0", "y/1.0", "z/1.0", "app/1.0"), g.Order())

	// every dependency precedes its dependents
	pos := make(map[string]int)
	for i, n := range g.Nodes() {
		pos[n.Name()] = i
	}
	for _, n := range g.Nodes() {
		for _, d := range g.Dependencies(n.Name()) {
			assert.Less(t, pos[d.Name()], pos[n.Name()], "%s before %s", d.Ref, n.Ref)
		}
	}
}

func TestBuildVersionConflict(t *testing.T) {
	c := catalogOf(t,
		def("root/1.0", "a/1.0", "b/1.0"),
		def("b/1.0", "a/2.0"),
		def("a/1.0"),
		def("a/2.0"),
	)

	_, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("root/1.0"))
	se := structured(t, err)
	assert.Equal(t, apperrors.ErrCodeVersionConflict, se.Code)
	assert.Equal(t, []string{"1.0", "2.0"}, se.Context[apperrors.ContextVersions])
	assert.Equal(t, []string{"root/1.0", "b/1.0"}, se.Context[apperrors.ContextRequesters])
	assert.Contains(t, se.Message, "a/1.0")
	assert.Contains(t, se.Message, "a/2.0")
}

func TestBuildVersionConflictWithAncestor(t *testing.T) {
	c := catalogOf(t,
		def("root/1.0", "b/1.0"),
		def("b/1.0", "c/1.0"),
		def("c/1.0", "b/2.0"),
		def("b/2.0"),
	)

	_, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("root/1.0"))
	se := structured(t, err)
	assert.Equal(t, apperrors.ErrCodeVersionConflict, se.Code)
	assert.Equal(t, []string{"1.0", "2.0"}, se.Context[apperrors.ContextVersions])
	assert.Equal(t, []string{"root/1.0", "c/1.0"}, se.Context[apperrors.ContextRequesters])
	assert.NotContains(t, se.Context, apperrors.ContextCycle)
}

func TestBuildCycle(t *testing.T) {
	tests := []struct {
		name  string
		defs  []*recipe.Definition
		root  string
		cycle []string
	}{
		{
			name:  "two nodes",
			defs:  []*recipe.Definition{def("a/1.0", "b/1.0"), def("b/1.0", "a/1.0")},
			root:  "a/1.0",
			cycle: []string{"a", "b", "a"},
		},
		{
			name:  "below root",
			defs:  []*recipe.Definition{def("app/1.0", "a/1.0"), def("a/1.0", "b/1.0"), def("b/1.0", "c/1.0"), def("c/1.0", "a/1.0")},
			root:  "app/1.0",
			cycle: []string{"a", "b", "c", "a"},
		},
		{
			name:  "self",
			defs:  []*recipe.Definition{def("a/1.0", "a/1.0")},
			root:  "a/1.0",
			cycle: []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(catalogOf(t, tt.defs...)).Build(context.Background(), recipe.MustParseReference(tt.root))
			se := structured(t, err)
			assert.Equal(t, apperrors.ErrCodeDependencyCycle, se.Code)
			assert.Equal(t, tt.cycle, se.Context[apperrors.ContextCycle])
		})
	}
}

func TestBuildUnknownReference(t *testing.T) {
	c := catalogOf(t, def("root/1.0", "missing/0.1"))

	_, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("root/1.0"))
	se := structured(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, se.Code)
	assert.Equal(t, []string{"root/1.0"}, se.Context[apperrors.ContextRequesters])
}

func TestBuildOptionOverrides(t *testing.T) {
	sdl := def("sdl/2.26.5")
	sdl.Meta.Options = map[string][]string{"shared": {"True", "False"}, "fPIC": {"True", "False"}}
	sdl.Meta.DefaultOptions = map[string]string{"shared": "False", "fPIC": "True"}
	sdl.ConfigureFunc = func(_ context.Context, cc *recipe.ConfigureContext) error {
		if v, _ := cc.Options.Value("shared"); v == "True" {
			cc.Options.Remove("fPIC")
		}
		return nil
	}

	newRoot := func() *recipe.Definition {
		root := def("app/1.0", "sdl/2.26.5")
		root.Meta.PackageType = recipe.PackageTypeApplication
		root.Meta.DefaultOptions = map[string]string{"sdl/*:shared": "True"}
		return root
	}

	tests := []struct {
		name      string
		overrides []string
		want      map[string]string
	}{
		{name: "root pattern default", want: map[string]string{"shared": "True"}},
		{name: "user exact beats pattern default", overrides: []string{"sdl:shared=False"}, want: map[string]string{"shared": "False", "fPIC": "True"}},
		{name: "user wildcard after pattern default", overrides: []string{"*:shared=False"}, want: map[string]string{"shared": "False", "fPIC": "True"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := options.ParseOverrides(tt.overrides)
			require.NoError(t, err)
			c := catalogOf(t, newRoot(), sdl)

			g, err := NewBuilder(c, WithOverrides(o...)).Build(context.Background(), recipe.MustParseReference("app/1.0"))
			require.NoError(t, err)
			n, _ := g.Node("sdl")
			assert.Equal(t, tt.want, n.Options.Map())
		})
	}
}

func TestBuildUnknownOptionOverride(t *testing.T) {
	c := catalogOf(t, def("app/1.0", "zlib/1.3"), def("zlib/1.3"))
	o, err := options.ParseOverrides([]string{"zlib:shared=True"})
	require.NoError(t, err)

	_, err = NewBuilder(c, WithOverrides(o...)).Build(context.Background(), recipe.MustParseReference("app/1.0"))
	se := structured(t, err)
	assert.Equal(t, apperrors.ErrCodeUnknownOption, se.Code)
	assert.Equal(t, "zlib/1.3", se.Context[apperrors.ContextNode])
}

func TestBuildSettingsNarrowedAndFrozen(t *testing.T) {
	lib := def("glm/1.0")
	lib.Meta.Settings = []string{recipe.AxisOS, recipe.AxisCompiler}
	lib.ConfigureFunc = func(_ context.Context, cc *recipe.ConfigureContext) error {
		cc.Settings.Remove(recipe.AxisCompiler)
		return nil
	}
	app := def("app/1.0", "glm/1.0")
	app.Meta.Settings = recipe.RootAxes

	settings, err := recipe.ParseSettings([]string{
		"os=Linux", "arch=x86_64", "compiler=gcc", "compiler.version=13", "build_type=Release",
	})
	require.NoError(t, err)

	g, err := NewBuilder(catalogOf(t, app, lib), WithSettings(settings)).Build(context.Background(), recipe.MustParseReference("app/1.0"))
	require.NoError(t, err)

	glm, _ := g.Node("glm")
	assert.Equal(t, map[string]string{"os": "Linux"}, glm.Settings.Map())
	assert.True(t, glm.Settings.Frozen())
	assert.Panics(t, func() { glm.Settings.Remove(recipe.AxisOS) })

	assert.Equal(t, 5, g.Root().Settings.Len())
}

func TestBuildRecipeEvaluationError(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		patch func(d *recipe.Definition)
		phase string
	}{
		{
			name: "configure",
			patch: func(d *recipe.Definition) {
				d.ConfigureFunc = func(context.Context, *recipe.ConfigureContext) error { return boom }
			},
			phase: recipe.PhaseConfigure,
		},
		{
			name: "requirements",
			patch: func(d *recipe.Definition) {
				d.RequirementsFunc = func(context.Context, *recipe.EvalContext) ([]recipe.Reference, error) { return nil, boom }
			},
			phase: recipe.PhaseRequirements,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := def("bad/1.0")
			tt.patch(bad)
			c := catalogOf(t, def("app/1.0", "bad/1.0"), bad)

			_, err := NewBuilder(c).Build(context.Background(), recipe.MustParseReference("app/1.0"))
			se := structured(t, err)
			assert.Equal(t, apperrors.ErrCodeRecipeEvaluation, se.Code)
			assert.Equal(t, "bad/1.0", se.Context[apperrors.ContextNode])
			assert.Equal(t, tt.phase, se.Context[apperrors.ContextPhase])
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestBuildRequirementsSeeFrozenOptions(t *testing.T) {
	app := def("app/1.0")
	app.Meta.Options = map[string][]string{"with_tts": {"True", "False"}}
	app.Meta.DefaultOptions = map[string]string{"with_tts": "False"}
	app.RequirementsFunc = func(_ context.Context, ec *recipe.EvalContext) ([]recipe.Reference, error) {
		if ec.Options.Bool("with_tts") {
			return refs("piper/1.2"), nil
		}
		return nil, nil
	}
	c := catalogOf(t, app, def("piper/1.2"))
	root := recipe.MustParseReference("app/1.0")

	g, err := NewBuilder(c).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())

	o, err := options.ParseOverrides([]string{"with_tts=True"})
	require.NoError(t, err)
	g, err = NewBuilder(c, WithOverrides(o...)).Build(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, refs("piper/1.2", "app/1.0"), g.Order())
}

func TestBuildPerRootIsolation(t *testing.T) {
	c := catalogOf(t,
		def("one/1.0", "shared/1.0"),
		def("two/1.0", "shared/1.0"),
		def("shared/1.0"),
	)
	b := NewBuilder(c)

	var wg sync.WaitGroup
	graphs := make([]*Graph, 2)
	errs := make([]error, 2)
	for i, root := range []string{"one/1.0", "two/1.0"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			graphs[i], errs[i] = b.Build(context.Background(), recipe.MustParseReference(root))
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	s1, _ := graphs[0].Node("shared")
	s2, _ := graphs[1].Node("shared")
	assert.NotSame(t, s1, s2)
	assert.Equal(t, []string{"one/1.0"}, s1.Requesters)
	assert.Equal(t, []string{"two/1.0"}, s2.Requesters)
	_, ok := graphs[0].Node("two")
	assert.False(t, ok)
}

func TestBuildEngineVersion(t *testing.T) {
	newer := def("app/1.0")
	newer.Meta.RequiredEngineVersion = ">=2.0.0"
	c := catalogOf(t, newer)
	root := recipe.MustParseReference("app/1.0")

	_, err := NewBuilder(c, WithEngineVersion("1.4.0")).Build(context.Background(), root)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = NewBuilder(c, WithEngineVersion("2.1.0")).Build(context.Background(), root)
	assert.NoError(t, err)

	_, err = NewBuilder(c).Build(context.Background(), root)
	assert.NoError(t, err)
}

func TestBuildCanceled(t *testing.T) {
	c := catalogOf(t, def("app/1.0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(c).Build(ctx, recipe.MustParseReference("app/1.0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildInvalidRoot(t *testing.T) {
	_, err := NewBuilder(recipe.NewCatalog()).Build(context.Background(), recipe.Reference{Name: "app"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
}
