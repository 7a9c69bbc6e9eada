package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func appMetadata() Metadata {
	return Metadata{
		Name:        "voicetuber",
		Version:     "0.1.0",
		PackageType: PackageTypeApplication,
		Settings:    []string{AxisOS, AxisCompiler, AxisBuildType, AxisArch},
		Options:     map[string][]string{"fPIC": {"True", "False"}},
		DefaultOptions: map[string]string{
			"fPIC":                "True",
			"sdl/*:shared":        "True",
			"libcurl/*:shared":    "True",
			"pulseaudio/*:shared": "True",
		},
	}
}

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Metadata)
		code   apperrors.ErrorCode
	}{
		{name: "valid", mutate: func(*Metadata) {}},
		{name: "missing version", mutate: func(m *Metadata) { m.Version = "" }, code: apperrors.ErrCodeInvalidRequest},
		{name: "bad package type", mutate: func(m *Metadata) { m.PackageType = "plugin" }, code: apperrors.ErrCodeInvalidRequest},
		{name: "unknown axis", mutate: func(m *Metadata) { m.Settings = append(m.Settings, "distro") }, code: apperrors.ErrCodeInvalidRequest},
		{name: "empty domain", mutate: func(m *Metadata) { m.Options["shared"] = nil }, code: apperrors.ErrCodeInvalidRequest},
		{name: "default for undeclared option", mutate: func(m *Metadata) { m.DefaultOptions["shared"] = "True" }, code: apperrors.ErrCodeUnknownOption},
		{name: "default outside domain", mutate: func(m *Metadata) { m.DefaultOptions["fPIC"] = "Maybe" }, code: apperrors.ErrCodeUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := appMetadata()
			tt.mutate(&m)
			err := m.Validate()
			if tt.code == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMetadataDefaultsSplit(t *testing.T) {
	m := appMetadata()
	assert.Equal(t, map[string]string{"fPIC": "True"}, m.OwnDefaults())
	assert.Equal(t, []string{
		"libcurl/*:shared=True",
		"pulseaudio/*:shared=True",
		"sdl/*:shared=True",
	}, m.PatternDefaults())
}

func TestStripList(t *testing.T) {
	m := appMetadata()
	assert.Equal(t, StripDirs, m.StripList())

	m.Keep = []string{"share"}
	assert.Equal(t, []string{"cmake", "lib/cmake", "lib/pkgconfig", "libdata"}, m.StripList())
}

func TestInDomain(t *testing.T) {
	assert.True(t, InDomain([]string{"True", "False"}, "True"))
	assert.False(t, InDomain([]string{"True", "False"}, "true"))
	assert.True(t, InDomain([]string{AnyValue}, "anything"))
}
