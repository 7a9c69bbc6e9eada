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
	"fmt"
	"strings"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// Wildcard matches any package name or any version in an override target.
const Wildcard = "*"

// Tier orders overrides by specificity. Lower tiers are applied first.
type Tier int

const (
	// TierWildcard covers "*" and "name/*" targets.
	TierWildcard Tier = iota
	// TierExact covers "name", "name/version" and root ("") targets.
	TierExact
)

func (t Tier) String() string {
	if t == TierWildcard {
		return "wildcard"
	}
	return "exact"
}

// Override is one "<target>:<option>=<value>" entry. An empty target
// addresses the root package of the invocation.
type Override struct {
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Option  string `json:"option" yaml:"option"`
	Value   string `json:"value" yaml:"value"`
}

// ParseOverride parses "sdl/*:shared=True", "sdl:shared=False",
// "*:fPIC=True", "sdl/2.26.5:shared=True" or "shared=True" (root).
func ParseOverride(s string) (Override, error) {
	raw := strings.TrimSpace(s)
	assignment := raw
	var target string
	if t, rest, ok := strings.Cut(raw, ":"); ok {
		target, assignment = strings.TrimSpace(t), rest
		if target == "" {
			return Override{}, invalid(s, "empty package pattern")
		}
	}

	name, value, ok := strings.Cut(assignment, "=")
	if !ok {
		return Override{}, invalid(s, "expected option=value")
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if name == "" {
		return Override{}, invalid(s, "empty option name")
	}
	if value == "" {
		return Override{}, invalid(s, "empty value")
	}

	o := Override{Option: name, Value: value}
	if target != "" {
		pkg, ver, hasVersion := strings.Cut(target, "/")
		if pkg == "" || (hasVersion && ver == "") || strings.Contains(ver, "/") {
			return Override{}, invalid(s, fmt.Sprintf("invalid package pattern %q", target))
		}
		if pkg == Wildcard && hasVersion && ver != Wildcard {
			return Override{}, invalid(s, "a version requires a package name")
		}
		if pkg != Wildcard && strings.Contains(pkg, Wildcard) || ver != Wildcard && strings.Contains(ver, Wildcard) {
			return Override{}, invalid(s, "wildcards must stand alone")
		}
		o.Package, o.Version = pkg, ver
		if pkg == Wildcard {
			o.Version = ""
		}
	}
	return o, nil
}

func invalid(s, reason string) error {
	return apperrors.New(apperrors.ErrCodeInvalidRequest,
		fmt.Sprintf("invalid option override %q: %s", s, reason))
}

// ParseOverrides parses entries in order.
func ParseOverrides(entries []string) ([]Override, error) {
	out := make([]Override, 0, len(entries))
	for _, e := range entries {
		o, err := ParseOverride(e)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// IsRoot reports whether the override addresses the root package.
func (o Override) IsRoot() bool {
	return o.Package == ""
}

// IsGlobal reports whether the target is the bare "*".
func (o Override) IsGlobal() bool {
	return o.Package == Wildcard
}

// Tier returns the override's specificity tier.
func (o Override) Tier() Tier {
	if o.Package == Wildcard || o.Version == Wildcard {
		return TierWildcard
	}
	return TierExact
}

// Matches reports whether the override addresses package name/version.
// root marks the package at the top of the graph.
func (o Override) Matches(name, version string, root bool) bool {
	switch {
	case o.IsRoot():
		return root
	case o.IsGlobal():
		return true
	case o.Package != name:
		return false
	case o.Version == "" || o.Version == Wildcard:
		return true
	default:
		return o.Version == version
	}
}

// Target renders the package pattern.
func (o Override) Target() string {
	switch {
	case o.IsRoot():
		return ""
	case o.Version == "":
		return o.Package
	default:
		return o.Package + "/" + o.Version
	}
}

// String renders the override in its input syntax.
func (o Override) String() string {
	if o.IsRoot() {
		return o.Option + "=" + o.Value
	}
	return o.Target() + ":" + o.Option + "=" + o.Value
}
