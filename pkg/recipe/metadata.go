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
	"fmt"
	"slices"
	"sort"
	"strings"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// PackageType tags what a recipe produces.
type PackageType string

const (
	PackageTypeApplication PackageType = "application"
	PackageTypeLibrary     PackageType = "library"
	PackageTypeHeaderOnly  PackageType = "header-library"
)

// IsValid reports whether t is a known package type.
func (t PackageType) IsValid() bool {
	switch t {
	case PackageTypeApplication, PackageTypeLibrary, PackageTypeHeaderOnly:
		return true
	default:
		return false
	}
}

// AnyValue in an option domain admits every value.
const AnyValue = "ANY"

// StripDirs are removed from a package tree unless listed in Metadata.Keep.
var StripDirs = []string{"cmake", "lib/cmake", "lib/pkgconfig", "libdata", "share"}

// Patch is a diff applied to the exported source tree before build.
type Patch struct {
	File        string `json:"file" yaml:"file"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Strip       int    `json:"strip,omitempty" yaml:"strip,omitempty"`
}

// StripLevel returns the -p level, defaulting to 1.
func (p Patch) StripLevel() int {
	if p.Strip <= 0 {
		return 1
	}
	return p.Strip
}

// Metadata is the declarative part of a recipe. It is immutable once the
// recipe is loaded.
type Metadata struct {
	Name        string      `json:"name" yaml:"name"`
	Version     string      `json:"version" yaml:"version"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	License     string      `json:"license,omitempty" yaml:"license,omitempty"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty"`
	Homepage    string      `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Topics      []string    `json:"topics,omitempty" yaml:"topics,omitempty"`
	PackageType PackageType `json:"packageType" yaml:"packageType"`

	// Settings lists the root axes the recipe is sensitive to.
	Settings []string `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Options maps option names to their value domains.
	Options map[string][]string `json:"options,omitempty" yaml:"options,omitempty"`

	// DefaultOptions holds plain "option" keys for the recipe's own defaults and
	// "pattern:option" keys for overrides pushed onto the graph.
	DefaultOptions map[string]string `json:"defaultOptions,omitempty" yaml:"defaultOptions,omitempty"`

	ExportsSources []string `json:"exportsSources,omitempty" yaml:"exportsSources,omitempty"`
	Patches        []Patch  `json:"patches,omitempty" yaml:"patches,omitempty"`

	// Licenses are glob patterns, relative to the source tree, copied to licenses/.
	Licenses []string `json:"licenses,omitempty" yaml:"licenses,omitempty"`

	// Keep exempts entries of StripDirs from stripping.
	Keep []string `json:"keep,omitempty" yaml:"keep,omitempty"`

	RequiredEngineVersion string `json:"requiredEngineVersion,omitempty" yaml:"requiredEngineVersion,omitempty"`
}

// Reference returns the recipe's identity.
func (m *Metadata) Reference() Reference {
	return Reference{Name: m.Name, Version: m.Version}
}

// Validate checks identity, package type, settings axes, option domains, and
// that plain default options name declared options with in-domain values.
func (m *Metadata) Validate() error {
	if err := m.Reference().Validate(); err != nil {
		return err
	}
	if !m.PackageType.IsValid() {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("recipe %s: invalid package type %q", m.Reference(), m.PackageType))
	}
	for _, axis := range m.Settings {
		if !IsRootAxis(axis) {
			return apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("recipe %s: unknown settings axis %q", m.Reference(), axis))
		}
	}
	for name, domain := range m.Options {
		if len(domain) == 0 {
			return apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("recipe %s: option %q has an empty domain", m.Reference(), name))
		}
	}
	for key, value := range m.DefaultOptions {
		if IsPatternKey(key) {
			continue
		}
		domain, ok := m.Options[key]
		if !ok {
			return apperrors.NewWithContext(apperrors.ErrCodeUnknownOption,
				fmt.Sprintf("recipe %s: default for undeclared option %q", m.Reference(), key),
				map[string]any{apperrors.ContextNode: m.Reference().String(), apperrors.ContextOption: key})
		}
		if !InDomain(domain, value) {
			return apperrors.NewWithContext(apperrors.ErrCodeUnknownOption,
				fmt.Sprintf("recipe %s: default %s=%s outside domain %v", m.Reference(), key, value, domain),
				map[string]any{apperrors.ContextNode: m.Reference().String(), apperrors.ContextOption: key})
		}
	}
	return nil
}

// OwnDefaults returns the plain option defaults.
func (m *Metadata) OwnDefaults() map[string]string {
	out := make(map[string]string)
	for k, v := range m.DefaultOptions {
		if !IsPatternKey(k) {
			out[k] = v
		}
	}
	return out
}

// PatternDefaults returns "pattern:option=value" override strings for the
// pattern keys of DefaultOptions, sorted for determinism.
func (m *Metadata) PatternDefaults() []string {
	out := make([]string, 0)
	for k, v := range m.DefaultOptions {
		if IsPatternKey(k) {
			out = append(out, k+"="+v)
		}
	}
	sort.Strings(out)
	return out
}

// IsPatternKey reports whether a default_options key targets other packages.
func IsPatternKey(key string) bool {
	return strings.Contains(key, ":")
}

// InDomain reports whether value is admitted by domain.
func InDomain(domain []string, value string) bool {
	return slices.Contains(domain, AnyValue) || slices.Contains(domain, value)
}

// StripList returns StripDirs minus Keep.
func (m *Metadata) StripList() []string {
	out := make([]string, 0, len(StripDirs))
	for _, d := range StripDirs {
		if !slices.Contains(m.Keep, d) {
			out = append(out, d)
		}
	}
	return out
}
