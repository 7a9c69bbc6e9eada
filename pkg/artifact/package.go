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

package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/header"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// ManifestFileName is the name of the package manifest.
const ManifestFileName = "kilnpackage.yaml"

// Manifest describes a published package.
type Manifest struct {
	header.Header `json:",inline" yaml:",inline"`

	Ref         string             `json:"ref" yaml:"ref"`
	PackageID   string             `json:"packageId" yaml:"packageId"`
	PackageType recipe.PackageType `json:"packageType,omitempty" yaml:"packageType,omitempty"`
	Settings    map[string]string  `json:"settings,omitempty" yaml:"settings,omitempty"`
	Options     map[string]string  `json:"options,omitempty" yaml:"options,omitempty"`
	Requires    []string           `json:"requires,omitempty" yaml:"requires,omitempty"`
	Info        recipe.PackageInfo `json:"info" yaml:"info"`
}

// Package is a published package in the store.
type Package struct {
	Ref      recipe.Reference
	ID       string
	Dir      string
	Manifest Manifest
}

// Path returns the absolute path of rel inside the package.
func (p *Package) Path(rel string) string {
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// HasDir reports whether the package contains directory rel.
func (p *Package) HasDir(rel string) bool {
	info, err := os.Stat(p.Path(rel))
	return err == nil && info.IsDir()
}

// Verify checks every file against checksums.txt.
func (p *Package) Verify(ctx context.Context) error {
	if err := VerifyChecksums(ctx, p.Dir); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeArtifactStaging,
			fmt.Sprintf("package %s is corrupt", p.Ref), err,
			map[string]any{apperrors.ContextNode: p.Ref.String()})
	}
	return nil
}

// Archive writes the package tree to dst. The format follows dst's extension.
func (p *Package) Archive(ctx context.Context, dst string) error {
	return ArchiveDir(ctx, p.Dir, dst)
}

func readManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("invalid manifest in %s: %w", dir, err)
	}
	if err := m.Expect(header.KindPackage); err != nil {
		return m, fmt.Errorf("invalid manifest in %s: %w", dir, err)
	}
	return m, nil
}

func writeManifest(dir string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644)
}
