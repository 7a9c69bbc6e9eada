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

// Root settings axes. Sub-settings are dotted, e.g. "compiler.cppstd".
const (
	AxisOS        = "os"
	AxisArch      = "arch"
	AxisCompiler  = "compiler"
	AxisBuildType = "build_type"
)

// RootAxes lists the settings axes recipes may declare.
var RootAxes = []string{AxisOS, AxisArch, AxisCompiler, AxisBuildType}

// IsRootAxis reports whether axis is one of RootAxes.
func IsRootAxis(axis string) bool {
	return slices.Contains(RootAxes, axis)
}

// RootOf returns the root axis of a possibly dotted key.
func RootOf(key string) string {
	root, _, _ := strings.Cut(key, ".")
	return root
}

// Settings is an ordered mapping of settings keys to values. A node receives
// its own copy narrowed to the axes its recipe declares; configure may remove
// axes, after which the copy is frozen.
type Settings struct {
	keys   []string
	values map[string]string
	frozen bool
}

// NewSettings returns an empty settings set.
func NewSettings() *Settings {
	return &Settings{values: make(map[string]string)}
}

// ParseSettings builds settings from "key=value" entries, in order.
func ParseSettings(entries []string) (*Settings, error) {
	s := NewSettings()
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid setting %q: expected key=value", e))
		}
		if err := s.Set(strings.TrimSpace(k), strings.TrimSpace(v)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SettingsFromMap builds settings from a map; keys are inserted root axes first,
// then sorted.
func SettingsFromMap(m map[string]string) (*Settings, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := axisRank(RootOf(keys[i])), axisRank(RootOf(keys[j]))
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	s := NewSettings()
	for _, k := range keys {
		if err := s.Set(k, m[k]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func axisRank(axis string) int {
	if i := slices.Index(RootAxes, axis); i >= 0 {
		return i
	}
	return len(RootAxes)
}

func (s *Settings) mustBeMutable() {
	if s.frozen {
		panic("recipe: mutation of frozen settings")
	}
}

// Set assigns a value. The key's root must be a known axis.
func (s *Settings) Set(key, value string) error {
	s.mustBeMutable()
	if key == "" || !IsRootAxis(RootOf(key)) {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown settings axis %q (valid: %s)", key, strings.Join(RootAxes, ", ")))
	}
	if value == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("empty value for setting %q", key))
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return nil
}

// Get returns the value of key.
func (s *Settings) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value of key or "".
func (s *Settings) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// Has reports whether key is present.
func (s *Settings) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Remove deletes key and all of its sub-settings.
func (s *Settings) Remove(key string) {
	s.mustBeMutable()
	prefix := key + "."
	kept := s.keys[:0]
	for _, k := range s.keys {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(s.values, k)
			continue
		}
		kept = append(kept, k)
	}
	s.keys = kept
}

// Keys returns keys in insertion order.
func (s *Settings) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Len returns the number of keys.
func (s *Settings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Map returns a copy of the settings as a map.
func (s *Settings) Map() map[string]string {
	out := make(map[string]string, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns a mutable deep copy.
func (s *Settings) Clone() *Settings {
	c := NewSettings()
	if s == nil {
		return c
	}
	c.keys = slices.Clone(s.keys)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Narrow returns a mutable copy holding only keys whose root axis is in axes.
func (s *Settings) Narrow(axes []string) *Settings {
	c := NewSettings()
	if s == nil {
		return c
	}
	for _, k := range s.keys {
		if slices.Contains(axes, RootOf(k)) {
			c.keys = append(c.keys, k)
			c.values[k] = s.values[k]
		}
	}
	return c
}

// Freeze makes the settings immutable. Further mutation panics.
func (s *Settings) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze was called.
func (s *Settings) Frozen() bool {
	return s.frozen
}

// Canonical renders "k=v" pairs sorted by key, joined by ";". Equal settings
// always produce equal strings.
func (s *Settings) Canonical() string {
	keys := s.Keys()
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + s.values[k]
	}
	return strings.Join(parts, ";")
}

// String renders settings in insertion order.
func (s *Settings) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = k + "=" + s.values[k]
	}
	return strings.Join(parts, " ")
}
