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

package options

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// Boolean option values.
const (
	True  = "True"
	False = "False"
)

// NormalizeBool maps common spellings of booleans to True/False.
func NormalizeBool(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return True, true
	case "false", "0", "no", "off":
		return False, true
	default:
		return v, false
	}
}

func isBoolDomain(domain []string) bool {
	return slices.Contains(domain, True) && slices.Contains(domain, False)
}

// Set is the mutable option set of one graph node. It starts from the
// recipe's own defaults, takes overrides, may be edited by configure, and is
// frozen into Values exactly once.
type Set struct {
	name    string
	version string
	root    bool
	domain  map[string][]string
	values  map[string]string
	pending map[string]string
	removed map[string]bool
	frozen  bool
}

// NewSet creates the option set for name/version with the declared domain and
// plain defaults. root marks the package at the top of the graph.
func NewSet(name, version string, root bool, domain map[string][]string, defaults map[string]string) *Set {
	s := &Set{
		name:    name,
		version: version,
		root:    root,
		domain:  maps.Clone(domain),
		values:  make(map[string]string),
		pending: make(map[string]string),
		removed: make(map[string]bool),
	}
	if s.domain == nil {
		s.domain = make(map[string][]string)
	}
	for _, k := range sortedKeys(defaults) {
		s.assign(k, defaults[k])
	}
	return s
}

// NewSetFor creates the option set for a recipe's metadata.
func NewSetFor(meta *recipe.Metadata, root bool) *Set {
	return NewSet(meta.Name, meta.Version, root, meta.Options, meta.OwnDefaults())
}

func (s *Set) mustBeMutable() {
	if s.frozen {
		panic(fmt.Sprintf("options: mutation of frozen option set %s/%s", s.name, s.version))
	}
}

func (s *Set) assign(name, value string) {
	domain, declared := s.domain[name]
	if !declared {
		s.pending[name] = value
		return
	}
	if isBoolDomain(domain) {
		value, _ = NormalizeBool(value)
	}
	s.values[name] = value
	delete(s.pending, name)
}

// Apply applies matching overrides: wildcard tier first, then exact tier,
// list order within a tier. A bare "*" override is skipped for packages that
// do not declare the option; every other matching override must name a
// declared option or be removed by configure before Freeze.
func (s *Set) Apply(overrides []Override) {
	s.mustBeMutable()
	ordered := slices.Clone(overrides)
	slices.SortStableFunc(ordered, func(a, b Override) int {
		return int(a.Tier()) - int(b.Tier())
	})
	for _, o := range ordered {
		if !o.Matches(s.name, s.version, s.root) {
			continue
		}
		if _, declared := s.domain[o.Option]; !declared && o.IsGlobal() {
			continue
		}
		s.assign(o.Option, o.Value)
	}
}

// Value returns the current value of name.
func (s *Set) Value(name string) (string, bool) {
	if s.removed[name] {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is currently set.
func (s *Set) Has(name string) bool {
	_, ok := s.Value(name)
	return ok
}

// Set assigns a value during configure.
func (s *Set) Set(name, value string) {
	s.mustBeMutable()
	delete(s.removed, name)
	s.assign(name, value)
}

// Remove drops name from the set together with any pending override for it.
func (s *Set) Remove(name string) {
	s.mustBeMutable()
	delete(s.values, name)
	delete(s.pending, name)
	s.removed[name] = true
}

// Frozen reports whether Freeze was called.
func (s *Set) Frozen() bool {
	return s.frozen
}

// Freeze validates the set and returns its immutable values. It fails with
// an Unknown Option error when an override names an undeclared option or a
// value falls outside its domain. The set cannot be mutated afterwards.
func (s *Set) Freeze() (Values, error) {
	s.mustBeMutable()
	s.frozen = true
	node := s.name + "/" + s.version

	if pending := sortedKeys(s.pending); len(pending) > 0 {
		name := pending[0]
		return Values{}, apperrors.NewWithContext(apperrors.ErrCodeUnknownOption,
			fmt.Sprintf("option %q is not declared by %s", name, node),
			map[string]any{apperrors.ContextNode: node, apperrors.ContextOption: name})
	}

	out := make(map[string]string, len(s.values))
	for _, name := range sortedKeys(s.domain) {
		if s.removed[name] {
			continue
		}
		value, ok := s.values[name]
		if !ok {
			return Values{}, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("option %q of %s has no value", name, node),
				map[string]any{apperrors.ContextNode: node, apperrors.ContextOption: name})
		}
		if !recipe.InDomain(s.domain[name], value) {
			return Values{}, apperrors.NewWithContext(apperrors.ErrCodeUnknownOption,
				fmt.Sprintf("value %q for option %q of %s is outside domain %v", value, name, node, s.domain[name]),
				map[string]any{apperrors.ContextNode: node, apperrors.ContextOption: name})
		}
		out[name] = value
	}
	return NewValues(out), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values is a frozen option mapping.
type Values struct {
	m map[string]string
}

// NewValues copies m into an immutable Values.
func NewValues(m map[string]string) Values {
	return Values{m: maps.Clone(m)}
}

// Value returns the value of name.
func (v Values) Value(name string) (string, bool) {
	val, ok := v.m[name]
	return val, ok
}

// Has reports whether name is present.
func (v Values) Has(name string) bool {
	_, ok := v.m[name]
	return ok
}

// Bool reports whether name is present and True.
func (v Values) Bool(name string) bool {
	return v.m[name] == True
}

// Len returns the number of options.
func (v Values) Len() int {
	return len(v.m)
}

// Keys returns option names sorted.
func (v Values) Keys() []string {
	return sortedKeys(v.m)
}

// Map returns a copy of the mapping.
func (v Values) Map() map[string]string {
	out := maps.Clone(v.m)
	if out == nil {
		out = make(map[string]string)
	}
	return out
}

// Canonical renders "k=v" pairs sorted by key, joined by ";".
func (v Values) Canonical() string {
	keys := v.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + v.m[k]
	}
	return strings.Join(parts, ";")
}

// Equal reports whether both mappings hold the same pairs.
func (v Values) Equal(other Values) bool {
	return maps.Equal(v.m, other.m)
}

// MarshalJSON encodes the mapping as an object.
func (v Values) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Map())
}

// MarshalYAML encodes the mapping as a map.
func (v Values) MarshalYAML() (any, error) {
	return v.Map(), nil
}
