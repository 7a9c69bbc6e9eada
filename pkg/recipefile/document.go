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

package recipefile

import (
	"slices"
	"strings"

	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// Document is the decoded form of a recipe file.
type Document struct {
	recipe.Metadata `json:",inline" yaml:",inline"`

	Requires    []Requirement      `json:"requires,omitempty" yaml:"requires,omitempty"`
	Configure   []ConfigureRule    `json:"configure,omitempty" yaml:"configure,omitempty"`
	Variables   map[string]string  `json:"variables,omitempty" yaml:"variables,omitempty"`
	Definitions map[string]string  `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Info        recipe.PackageInfo `json:"packageInfo,omitempty" yaml:"packageInfo,omitempty"`
}

// Requirement is a dependency, optionally conditional.
type Requirement struct {
	Ref  string `json:"ref" yaml:"ref"`
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// ConfigureRule edits a node's settings and options during configure when
// its condition holds. Removals run before SetOptions.
type ConfigureRule struct {
	When           string            `json:"when,omitempty" yaml:"when,omitempty"`
	RemoveOptions  []string          `json:"removeOptions,omitempty" yaml:"removeOptions,omitempty"`
	RemoveSettings []string          `json:"removeSettings,omitempty" yaml:"removeSettings,omitempty"`
	SetOptions     map[string]string `json:"setOptions,omitempty" yaml:"setOptions,omitempty"`
}

// normalize rewrites boolean spellings in option domains and defaults to
// True and False.
func (d *Document) normalize() {
	for name, domain := range d.Options {
		out := make([]string, len(domain))
		for i, v := range domain {
			out[i] = normalizeLiteral(v)
		}
		d.Options[name] = out
	}
	for key, value := range d.DefaultOptions {
		if recipe.IsPatternKey(key) {
			d.DefaultOptions[key] = normalizeLiteral(value)
			continue
		}
		if domain := d.Options[key]; slices.Contains(domain, options.True) && slices.Contains(domain, options.False) {
			if b, ok := options.NormalizeBool(value); ok {
				d.DefaultOptions[key] = b
			}
		}
	}
}

// normalizeLiteral only rewrites the spellings YAML and HCL produce for
// boolean literals.
func normalizeLiteral(v string) string {
	switch strings.ToLower(v) {
	case "true":
		return options.True
	case "false":
		return options.False
	default:
		return v
	}
}
