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

package generator

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"lukechampine.com/blake3"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// File names written by the generator.
const (
	ToolchainFile  = "kiln_toolchain.cmake"
	DescriptorFile = "kiln_descriptor.json"
	configSuffix   = "-config.cmake"
)

// Input is everything a node's generated files depend on.
type Input struct {
	Ref          recipe.Reference
	Settings     map[string]string
	Options      map[string]string
	Variables    map[string]string
	Dependencies []recipe.Dependency

	// Dir is the output directory. It does not affect rendered content.
	Dir string
}

// File is one rendered file.
type File struct {
	Name    string
	Content []byte
}

// Output describes a generator run.
type Output struct {
	Dir    string
	Files  []File
	Digest string

	// Written lists the files whose content changed on disk.
	Written []string
}

// ConfigFileName returns the config file name for a dependency.
func ConfigFileName(name string) string {
	return name + configSuffix
}

// Render produces the generated files and their digest.
func Render(in Input) ([]File, string, error) {
	deps := slices.Clone(in.Dependencies)
	slices.SortFunc(deps, func(a, b recipe.Dependency) int {
		return strings.Compare(a.Ref.Name, b.Ref.Name)
	})

	files := []File{{Name: ToolchainFile, Content: renderToolchain(in)}}
	for _, d := range deps {
		files = append(files, File{Name: ConfigFileName(d.Ref.Name), Content: renderConfig(d)})
	}

	digest := contentDigest(files)
	desc, err := renderDescriptor(in, deps, files, digest)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to render descriptor", err)
	}
	files = append(files, File{Name: DescriptorFile, Content: desc})
	return files, digest, nil
}

// Write renders in and writes changed files into in.Dir.
func Write(ctx context.Context, in Input) (*Output, error) {
	if in.Dir == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "generator output directory is required")
	}
	files, digest, err := Render(in)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal,
			fmt.Sprintf("failed to create %s", in.Dir), err)
	}

	out := &Output{Dir: in.Dir, Files: files, Digest: digest}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, "generator canceled", err)
		}
		path := filepath.Join(in.Dir, f.Name)
		current, err := os.ReadFile(path)
		if err == nil && bytes.Equal(current, f.Content) {
			continue
		}
		if err := writeFileAtomic(path, f.Content); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInternal,
				fmt.Sprintf("failed to write %s", path), err)
		}
		out.Written = append(out.Written, f.Name)
	}
	return out, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

func contentDigest(files []File) string {
	h := blake3.New(32, nil)
	for _, f := range files {
		fmt.Fprintf(h, "%s\x00%d\x00", f.Name, len(f.Content))
		_, _ = h.Write(f.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type descriptorDependency struct {
	Ref        string `json:"ref"`
	PackageDir string `json:"packageDir"`
	Direct     bool   `json:"direct"`
}

type descriptor struct {
	Ref          string                 `json:"ref"`
	Settings     map[string]string      `json:"settings"`
	Options      map[string]string      `json:"options"`
	Variables    map[string]string      `json:"variables"`
	Dependencies []descriptorDependency `json:"dependencies"`
	Files        []string               `json:"files"`
	Digest       string                 `json:"digest"`
}

func renderDescriptor(in Input, deps []recipe.Dependency, files []File, digest string) ([]byte, error) {
	d := descriptor{
		Ref:          in.Ref.String(),
		Settings:     nonNil(in.Settings),
		Options:      nonNil(in.Options),
		Variables:    nonNil(in.Variables),
		Dependencies: make([]descriptorDependency, 0, len(deps)),
		Files:        make([]string, 0, len(files)),
		Digest:       digest,
	}
	for _, dep := range deps {
		d.Dependencies = append(d.Dependencies, descriptorDependency{
			Ref:        dep.Ref.String(),
			PackageDir: slashed(dep.PackageDir),
			Direct:     dep.Direct,
		})
	}
	for _, f := range files {
		d.Files = append(d.Files, f.Name)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
