package options

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

var libDomain = map[string][]string{
	"shared": {True, False},
	"fPIC":   {True, False},
}

func libDefaults() map[string]string {
	return map[string]string{"shared": False, "fPIC": True}
}

func mustOverrides(t *testing.T, entries ...string) []Override {
	t.Helper()
	o, err := ParseOverrides(entries)
	require.NoError(t, err)
	return o
}

func TestSetDefaults(t *testing.T) {
	s := NewSet("pocketsphinx", "5.0.1", false, libDomain, libDefaults())
	v, err := s.Freeze()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": False, "fPIC": True}, v.Map())
	assert.False(t, v.Bool("shared"))
	assert.True(t, v.Bool("fPIC"))
}

func TestWildcardThenExactPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		overrides []string
		want      string
	}{
		{name: "wildcard alone", overrides: []string{"sdl/*:shared=True"}, want: True},
		{name: "exact after wildcard", overrides: []string{"sdl/*:shared=True", "sdl:shared=False"}, want: False},
		{name: "exact before wildcard still wins", overrides: []string{"sdl:shared=False", "sdl/*:shared=True"}, want: False},
		{name: "later wildcard wins within tier", overrides: []string{"sdl/*:shared=True", "*:shared=False"}, want: False},
		{name: "later exact wins within tier", overrides: []string{"sdl:shared=False", "sdl/2.26.5:shared=True"}, want: True},
		{name: "other package ignored", overrides: []string{"sdl_ttf/*:shared=True"}, want: False},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet("sdl", "2.26.5", false, libDomain, libDefaults())
			s.Apply(mustOverrides(t, tt.overrides...))
			v, err := s.Freeze()
			require.NoError(t, err)
			got, _ := v.Value("shared")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBooleanNormalization(t *testing.T) {
	s := NewSet("sdl", "2.26.5", false, libDomain, map[string]string{"shared": "false", "fPIC": "1"})
	s.Apply(mustOverrides(t, "sdl:shared=yes"))
	v, err := s.Freeze()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": True, "fPIC": True}, v.Map())
}

func TestUnknownOption(t *testing.T) {
	tests := []struct {
		name      string
		overrides []string
		code      apperrors.ErrorCode
	}{
		{name: "named wildcard on undeclared option", overrides: []string{"sdl/*:static=True"}, code: apperrors.ErrCodeUnknownOption},
		{name: "exact on undeclared option", overrides: []string{"sdl:static=True"}, code: apperrors.ErrCodeUnknownOption},
		{name: "value outside domain", overrides: []string{"sdl:shared=Maybe"}, code: apperrors.ErrCodeUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet("sdl", "2.26.5", false, libDomain, libDefaults())
			s.Apply(mustOverrides(t, tt.overrides...))
			_, err := s.Freeze()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestGlobalWildcardSkipsUndeclared(t *testing.T) {
	s := NewSet("glm", "cci.20230113", false, nil, nil)
	s.Apply(mustOverrides(t, "*:shared=True"))
	v, err := s.Freeze()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())
}

func TestRemovedOptionTolerated(t *testing.T) {
	s := NewSet("pocketsphinx", "5.0.1", false, libDomain, libDefaults())
	s.Apply(mustOverrides(t, "pocketsphinx:shared=True", "pocketsphinx:fPIC=Bogus"))

	// configure: shared builds drop fPIC
	if v, _ := s.Value("shared"); v == True {
		s.Remove("fPIC")
	}

	v, err := s.Freeze()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": True}, v.Map())
	assert.False(t, v.Has("fPIC"))
}

func TestRemovedUndeclaredOverrideTolerated(t *testing.T) {
	s := NewSet("pocketsphinx", "5.0.1", false, libDomain, libDefaults())
	s.Apply(mustOverrides(t, "pocketsphinx:legacy=True"))
	s.Remove("legacy")
	_, err := s.Freeze()
	require.NoError(t, err)
}

func TestFrozenSetPanicsOnMutation(t *testing.T) {
	s := NewSet("sdl", "2.26.5", false, libDomain, libDefaults())
	_, err := s.Freeze()
	require.NoError(t, err)
	assert.True(t, s.Frozen())

	assert.Panics(t, func() { s.Remove("fPIC") })
	assert.Panics(t, func() { s.Set("shared", True) })
	assert.Panics(t, func() { s.Apply(nil) })
	assert.Panics(t, func() { _, _ = s.Freeze() })
}

func TestResolutionIsIdempotent(t *testing.T) {
	overrides := mustOverrides(t, "*:fPIC=False", "sdl/*:shared=True", "sdl:fPIC=True", "sdl/*:shared=False")

	var first Values
	for i := range 50 {
		s := NewSet("sdl", "2.26.5", false, libDomain, libDefaults())
		s.Apply(overrides)
		v, err := s.Freeze()
		require.NoError(t, err)
		if i == 0 {
			first = v
			continue
		}
		require.True(t, first.Equal(v), "run %d differs: %s vs %s", i, first.Canonical(), v.Canonical())
	}
	assert.Equal(t, "fPIC=True;shared=False", first.Canonical())
}

func TestRootOverride(t *testing.T) {
	root := NewSet("voicetuber", "0.1.0", true, map[string][]string{"fPIC": {True, False}}, map[string]string{"fPIC": True})
	root.Apply(mustOverrides(t, "fPIC=False"))
	v, err := root.Freeze()
	require.NoError(t, err)
	assert.False(t, v.Bool("fPIC"))
}

func TestValuesMarshal(t *testing.T) {
	v := NewValues(map[string]string{"shared": True, "fPIC": False})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fPIC":"False","shared":"True"}`, string(data))

	y, err := v.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shared": True, "fPIC": False}, y)
}
