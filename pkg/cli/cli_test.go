package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/api"
	"github.com/voicetuber/kiln/pkg/artifact"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/evaluator"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/serializer"
)

const (
	testRecipes = "testdata/recipes"
	testProfile = "testdata/profile.yaml"
)

// run executes the root command with args and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.Writer = &out
	cmd.ErrWriter = io.Discard
	err := cmd.Run(context.Background(), append([]string{name, "--log-level", "error"}, args...))
	return out.String(), err
}

// installToolchain writes a library, a header and a binary named after the node.
type installToolchain struct {
	name string
}

func (f *installToolchain) Configure(context.Context, map[string]string) error { return nil }

func (f *installToolchain) Build(context.Context) error { return nil }

func (f *installToolchain) Install(_ context.Context, prefix string) error {
	files := [][2]string{
		{filepath.Join("lib", "lib"+f.name+".a"), f.name},
		{filepath.Join("include", f.name+".h"), "#pragma once\n"},
		{filepath.Join("bin", f.name), "#!/bin/sh\n"},
		{filepath.Join("lib", "cmake", "stale.cmake"), ""},
	}
	for _, file := range files {
		p := filepath.Join(prefix, file[0])
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(file[1]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func useFakeToolchain(t *testing.T) {
	t.Helper()
	orig := toolchainFactory
	toolchainFactory = func(string) evaluator.ToolchainFactory {
		return func(c evaluator.ToolchainConfig) recipe.Toolchain {
			// <work>/<name>/<version>/<id>/src
			return &installToolchain{name: filepath.Base(filepath.Dir(filepath.Dir(filepath.Dir(c.SourceDir))))}
		}
	}
	t.Cleanup(func() { toolchainFactory = orig })
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		wantFormat serializer.Format
		wantErr    bool
	}{
		{name: "valid yaml format", format: "yaml", wantFormat: serializer.FormatYAML},
		{name: "valid json format", format: "json", wantFormat: serializer.FormatJSON},
		{name: "valid table format", format: "table", wantFormat: serializer.FormatTable},
		{name: "invalid format xml", format: "xml", wantErr: true},
		{name: "empty format", format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cli.Command{
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: tt.format,
					},
				},
				Action: func(_ context.Context, c *cli.Command) error {
					got, err := parseOutputFormat(c)
					if (err != nil) != tt.wantErr {
						t.Errorf("parseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
						return nil
					}
					if !tt.wantErr && got != tt.wantFormat {
						t.Errorf("parseOutputFormat() = %v, want %v", got, tt.wantFormat)
					}
					return nil
				},
			}

			if err := cmd.Run(context.Background(), []string{"test"}); err != nil {
				t.Fatalf("failed to run command: %v", err)
			}
		})
	}
}

func TestParseArchiveFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    artifact.Format
		wantErr bool
	}{
		{".tar.zst", artifact.FormatTarZstd, false},
		{"tar.gz", artifact.FormatTarGzip, false},
		{".tar.xz", artifact.FormatTarXz, false},
		{".tar", artifact.FormatTar, false},
		{".zip", "", true},
	}
	for _, tt := range tests {
		got, err := parseArchiveFormat(tt.in)
		if tt.wantErr {
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest), "format %q", tt.in)
			continue
		}
		require.NoError(t, err, "format %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestEngineVersion(t *testing.T) {
	assert.Empty(t, engineVersion(), "development builds do not pin an engine version")

	orig := version
	version = "1.2.0"
	t.Cleanup(func() { version = orig })
	assert.Equal(t, "1.2.0", engineVersion())
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "graph", "--recipes", testRecipes, "--profile", testProfile, "--format", "json", "app/1.0.0")
	require.NoError(t, err)

	var g api.GraphResponse
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, "Graph", g.Kind.String())
	assert.Equal(t, []string{"zlib/1.3.1", "app/1.0.0"}, g.Order)

	zlib := g.Nodes[0]
	assert.Equal(t, "True", zlib.Options["shared"], "profile override applies to libraries")
	assert.NotContains(t, zlib.Options, "fPIC", "configure removes fPIC from shared builds")
	assert.Equal(t, "gcc", zlib.Settings["compiler"])
}

func TestGraphCommandFlagsOverrideProfile(t *testing.T) {
	out, err := run(t, "graph",
		"--recipes", testRecipes,
		"--profile", testProfile,
		"-s", "build_type=Debug",
		"-O", "app/*:with_zlib=False",
		"--format", "json",
		"app/1.0.0")
	require.NoError(t, err)

	var g api.GraphResponse
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "Debug", g.Nodes[0].Settings["build_type"])
	assert.Equal(t, "False", g.Nodes[0].Options["with_zlib"])
}

func TestGraphCommandOutputFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "graph.yaml")
	_, err := run(t, "graph", "--recipes", testRecipes, "-s", "os=Linux", "-o", dst, "zlib/1.3.1")
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: Graph")
	assert.Contains(t, string(data), "zlib/1.3.1")
}

func TestGraphCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code apperrors.ErrorCode
	}{
		{"no reference", []string{"graph", "--recipes", testRecipes}, apperrors.ErrCodeInvalidRequest},
		{"bad reference", []string{"graph", "--recipes", testRecipes, "app"}, apperrors.ErrCodeInvalidRequest},
		{"bad setting", []string{"graph", "--recipes", testRecipes, "-s", "os", "app/1.0.0"}, apperrors.ErrCodeInvalidRequest},
		{"unknown axis", []string{"graph", "--recipes", testRecipes, "-s", "platform=vita", "app/1.0.0"}, apperrors.ErrCodeInvalidRequest},
		{"bad override", []string{"graph", "--recipes", testRecipes, "-O", "shared", "app/1.0.0"}, apperrors.ErrCodeInvalidRequest},
		{"unknown option", []string{"graph", "--recipes", testRecipes, "-s", "os=Linux", "-O", "app:turbo=True", "app/1.0.0"}, apperrors.ErrCodeUnknownOption},
		{"unknown recipe", []string{"graph", "--recipes", testRecipes, "curl/8.0.0"}, apperrors.ErrCodeNotFound},
		{"missing profile", []string{"graph", "--recipes", testRecipes, "--profile", "testdata/nope.yaml", "app/1.0.0"}, apperrors.ErrCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}

	_, err := run(t, "graph", "--recipes", testRecipes, "--format", "xml", "app/1.0.0")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestBuildExportAndList(t *testing.T) {
	useFakeToolchain(t)
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	common := []string{"--recipes", testRecipes, "--profile", testProfile, "--store", store, "--no-progress"}

	out, err := run(t, append(append([]string{"build"}, common...), "app/1.0.0")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Built 2, cached 0, failed 0, skipped 0 of 2 packages")

	out, err = run(t, append(append([]string{"build"}, common...), "app/1.0.0")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Built 0, cached 2")

	resultFile := filepath.Join(dir, "result.json")
	_, err = run(t, append(append([]string{"build"}, common...), "--force", "-o", resultFile, "-t", "json", "app/1.0.0")...)
	require.NoError(t, err)
	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "BuildResult"`)

	dist := filepath.Join(dir, "dist")
	out, err = run(t, append(append([]string{"export"}, common...), "--dir", dist, "--archive-format", ".tar.gz", "app/1.0.0")...)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "exported"))

	archives, err := filepath.Glob(filepath.Join(dist, "*.tar.gz"))
	require.NoError(t, err)
	require.Len(t, archives, 2)

	unpacked := filepath.Join(dir, "unpacked")
	var zlibArchive string
	for _, a := range archives {
		if strings.HasPrefix(filepath.Base(a), "zlib-1.3.1-") {
			zlibArchive = a
		}
	}
	require.NotEmpty(t, zlibArchive)
	require.NoError(t, artifact.Unpack(context.Background(), zlibArchive, unpacked))
	assert.FileExists(t, filepath.Join(unpacked, "lib", "libzlib.a"))
	assert.FileExists(t, filepath.Join(unpacked, "include", "zlib.h"))
	assert.NoDirExists(t, filepath.Join(unpacked, "lib", "cmake"), "cmake/ is stripped from packages")

	out, err = run(t, "packages", "--store", store, "--verify", "--format", "json")
	require.NoError(t, err)
	var list PackageList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Packages, 2)
	for _, p := range list.Packages {
		require.NotNil(t, p.Verified)
		assert.True(t, *p.Verified, p.Ref)
	}
}

func TestExportRootOnly(t *testing.T) {
	useFakeToolchain(t)
	dir := t.TempDir()

	_, err := run(t, "export",
		"--recipes", testRecipes,
		"--profile", testProfile,
		"--store", filepath.Join(dir, "store"),
		"--no-progress",
		"--dir", filepath.Join(dir, "dist"),
		"--root-only",
		"app/1.0.0")
	require.NoError(t, err)

	archives, err := filepath.Glob(filepath.Join(dir, "dist", "*.tar.zst"))
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(archives[0]), "app-1.0.0-"))
}

func TestPublishRejectsUnknownTarget(t *testing.T) {
	_, err := run(t, "publish", "--recipes", testRecipes, "--to", "ftp://example.com/pkgs", "app/1.0.0")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = run(t, "publish", "--recipes", testRecipes, "--to", "oci://registry.example.com/pkgs@sha256:"+strings.Repeat("a", 64), "app/1.0.0")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestPackagesEmptyStore(t *testing.T) {
	out, err := run(t, "packages", "--store", t.TempDir(), "--format", "json")
	require.NoError(t, err)

	var list PackageList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, "PackageList", list.Kind.String())
	assert.Empty(t, list.Packages)
}
