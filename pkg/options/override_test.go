package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func TestParseOverride(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Override
		tier    Tier
		wantErr bool
	}{
		{name: "name wildcard", input: "sdl/*:shared=True", want: Override{Package: "sdl", Version: "*", Option: "shared", Value: "True"}, tier: TierWildcard},
		{name: "global wildcard", input: "*:fPIC=False", want: Override{Package: "*", Option: "fPIC", Value: "False"}, tier: TierWildcard},
		{name: "global with version wildcard", input: "*/*:fPIC=False", want: Override{Package: "*", Option: "fPIC", Value: "False"}, tier: TierWildcard},
		{name: "exact name", input: "sdl:shared=False", want: Override{Package: "sdl", Option: "shared", Value: "False"}, tier: TierExact},
		{name: "exact reference", input: "sdl/2.26.5:shared=True", want: Override{Package: "sdl", Version: "2.26.5", Option: "shared", Value: "True"}, tier: TierExact},
		{name: "root", input: "fPIC=False", want: Override{Option: "fPIC", Value: "False"}, tier: TierExact},
		{name: "spaces", input: " sdl : shared = True ", want: Override{Package: "sdl", Option: "shared", Value: "True"}, tier: TierExact},
		{name: "missing equals", input: "sdl:shared", wantErr: true},
		{name: "empty option", input: "sdl:=True", wantErr: true},
		{name: "empty value", input: "sdl:shared=", wantErr: true},
		{name: "empty target", input: ":shared=True", wantErr: true},
		{name: "partial wildcard", input: "sd*:shared=True", wantErr: true},
		{name: "version glob", input: "sdl/2.*:shared=True", wantErr: true},
		{name: "version without name", input: "*/2.0:shared=True", wantErr: true},
		{name: "empty version", input: "sdl/:shared=True", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOverride(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.tier, got.Tier())
		})
	}
}

func TestOverrideMatches(t *testing.T) {
	tests := []struct {
		override string
		name     string
		version  string
		root     bool
		want     bool
	}{
		{"sdl/*:shared=True", "sdl", "2.26.5", false, true},
		{"sdl/*:shared=True", "sdl_ttf", "2.20.1", false, false},
		{"sdl:shared=True", "sdl", "2.26.5", false, true},
		{"sdl/2.26.5:shared=True", "sdl", "2.26.5", false, true},
		{"sdl/2.26.5:shared=True", "sdl", "2.28.0", false, false},
		{"*:shared=True", "libuv", "1.45.0", false, true},
		{"shared=True", "voicetuber", "0.1.0", true, true},
		{"shared=True", "sdl", "2.26.5", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.override+"@"+tt.name, func(t *testing.T) {
			o, err := ParseOverride(tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.Matches(tt.name, tt.version, tt.root))
		})
	}
}

func TestOverrideString(t *testing.T) {
	for _, s := range []string{"sdl/*:shared=True", "*:fPIC=False", "sdl:shared=False", "sdl/2.26.5:shared=True", "fPIC=True"} {
		o, err := ParseOverride(s)
		require.NoError(t, err)
		assert.Equal(t, s, o.String())
	}
}

func TestParseOverridesStopsAtFirstError(t *testing.T) {
	_, err := ParseOverrides([]string{"sdl/*:shared=True", "broken"})
	assert.Error(t, err)

	got, err := ParseOverrides([]string{"sdl/*:shared=True", "sdl:shared=False"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
