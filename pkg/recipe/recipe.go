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

package recipe

import (
	"context"
	"maps"
	"slices"
)

// Lifecycle phases, in the order the engine runs them.
const (
	PhaseConfigure    = "configure"
	PhaseRequirements = "requirements"
	PhaseGenerate     = "generate"
	PhaseBuild        = "build"
	PhasePackage      = "package"
	PhasePackageInfo  = "package_info"
)

// Phases returns the lifecycle phases in execution order.
func Phases() []string {
	return []string{PhaseConfigure, PhaseRequirements, PhaseGenerate, PhaseBuild, PhasePackage, PhasePackageInfo}
}

// Recipe is the minimum every recipe provides. Lifecycle behaviour is added
// by implementing the capability interfaces below; the engine invokes only
// the ones a recipe implements.
type Recipe interface {
	Metadata() *Metadata
}

// Configurer may remove settings axes and options before they are frozen.
type Configurer interface {
	Configure(ctx context.Context, cc *ConfigureContext) error
}

// Requirer declares dependencies from frozen settings and options.
type Requirer interface {
	Requirements(ctx context.Context, ec *EvalContext) ([]Reference, error)
}

// Generator contributes variables to the generated build descriptors.
type Generator interface {
	Generate(ctx context.Context, gc *GenerateContext) error
}

// Builder compiles the exported, patched sources.
type Builder interface {
	Build(ctx context.Context, bc *BuildContext) error
}

// Packager installs build outputs into the staging tree.
type Packager interface {
	Package(ctx context.Context, pc *PackageContext) error
}

// InfoProvider describes what consumers should link against. It must not
// touch the filesystem beyond reading.
type InfoProvider interface {
	PackageInfo(ctx context.Context, ec *EvalContext, info *PackageInfo) error
}

// SourceProvider locates the directory exports_sources patterns are relative to.
type SourceProvider interface {
	SourceRoot() string
}

// OptionEditor is the view of a node's options during configure.
type OptionEditor interface {
	Value(name string) (string, bool)
	Has(name string) bool
	Set(name, value string)
	Remove(name string)
}

// OptionValues is the frozen view of a node's options.
type OptionValues interface {
	Value(name string) (string, bool)
	Has(name string) bool
	Bool(name string) bool
	Map() map[string]string
}

// Toolchain drives the native build tool.
type Toolchain interface {
	Configure(ctx context.Context, definitions map[string]string) error
	Build(ctx context.Context) error
	Install(ctx context.Context, prefix string) error
}

// ConfigureContext is passed to Configure.
type ConfigureContext struct {
	Ref      Reference
	Settings *Settings
	Options  OptionEditor
}

// EvalContext carries a node's identity and frozen configuration.
type EvalContext struct {
	Ref      Reference
	Settings *Settings
	Options  OptionValues
}

// Dependency is a published upstream package visible to a node.
type Dependency struct {
	Ref        Reference   `json:"ref" yaml:"ref"`
	PackageDir string      `json:"packageDir" yaml:"packageDir"`
	Info       PackageInfo `json:"info" yaml:"info"`
	Direct     bool        `json:"direct" yaml:"direct"`
	Requires   []string    `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// GenerateContext is passed to Generate.
type GenerateContext struct {
	EvalContext
	Variables    map[string]string
	Dependencies []Dependency
}

// NewGenerateContext returns a context with an empty variable set.
func NewGenerateContext(ec EvalContext, deps []Dependency) *GenerateContext {
	return &GenerateContext{
		EvalContext:  ec,
		Variables:    make(map[string]string),
		Dependencies: deps,
	}
}

// SetVariable records a variable for the generated toolchain file.
func (g *GenerateContext) SetVariable(name, value string) {
	g.Variables[name] = value
}

// Dependency returns the dependency with the given name.
func (g *GenerateContext) Dependency(name string) (Dependency, bool) {
	i := slices.IndexFunc(g.Dependencies, func(d Dependency) bool { return d.Ref.Name == name })
	if i < 0 {
		return Dependency{}, false
	}
	return g.Dependencies[i], true
}

// BuildContext is passed to Build.
type BuildContext struct {
	EvalContext
	SourceDir     string
	BuildDir      string
	GeneratorsDir string
	Toolchain     Toolchain
}

// PackageContext is passed to Package.
type PackageContext struct {
	EvalContext
	SourceDir  string
	BuildDir   string
	PackageDir string
	Toolchain  Toolchain
}

// DefaultBuild configures and builds with the toolchain.
func DefaultBuild(ctx context.Context, bc *BuildContext) error {
	if err := bc.Toolchain.Configure(ctx, nil); err != nil {
		return err
	}
	return bc.Toolchain.Build(ctx)
}

// DefaultPackage installs the build into the staging tree.
func DefaultPackage(ctx context.Context, pc *PackageContext) error {
	return pc.Toolchain.Install(ctx, pc.PackageDir)
}

// PackageInfo is the package_info contract: what a consumer links and where
// it finds headers, libraries, and resources, relative to the package folder.
type PackageInfo struct {
	Libs        []string          `json:"libs,omitempty" yaml:"libs,omitempty"`
	IncludeDirs []string          `json:"includeDirs,omitempty" yaml:"includeDirs,omitempty"`
	LibDirs     []string          `json:"libDirs,omitempty" yaml:"libDirs,omitempty"`
	BinDirs     []string          `json:"binDirs,omitempty" yaml:"binDirs,omitempty"`
	ResDirs     []string          `json:"resDirs,omitempty" yaml:"resDirs,omitempty"`
	Defines     []string          `json:"defines,omitempty" yaml:"defines,omitempty"`
	Variables   map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// WithDefaults fills empty include and lib dirs with "include" and "lib".
func (p PackageInfo) WithDefaults() PackageInfo {
	out := p.Clone()
	if len(out.IncludeDirs) == 0 {
		out.IncludeDirs = []string{"include"}
	}
	if len(out.LibDirs) == 0 {
		out.LibDirs = []string{"lib"}
	}
	return out
}

// Clone returns a deep copy.
func (p PackageInfo) Clone() PackageInfo {
	return PackageInfo{
		Libs:        slices.Clone(p.Libs),
		IncludeDirs: slices.Clone(p.IncludeDirs),
		LibDirs:     slices.Clone(p.LibDirs),
		BinDirs:     slices.Clone(p.BinDirs),
		ResDirs:     slices.Clone(p.ResDirs),
		Defines:     slices.Clone(p.Defines),
		Variables:   maps.Clone(p.Variables),
	}
}
