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
	"strings"
	"unicode"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// Reference identifies a recipe by name and exact version, written "name/version".
// Versions are opaque: "cci.20230105+1.89.2.docking" is as valid as "2.26.5".
type Reference struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// ParseReference parses "name/version".
func ParseReference(s string) (Reference, error) {
	name, ver, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Reference{}, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid reference %q: expected name/version", s))
	}
	ref := Reference{Name: name, Version: ver}
	if err := ref.Validate(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// MustParseReference is like ParseReference but panics on error.
func MustParseReference(s string) Reference {
	ref, err := ParseReference(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Validate checks that both parts are present and free of separators and whitespace.
func (r Reference) Validate() error {
	if r.Name == "" || r.Version == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid reference %q: name and version are required", r.String()))
	}
	for _, part := range []string{r.Name, r.Version} {
		if strings.ContainsAny(part, "/:*") || strings.IndexFunc(part, unicode.IsSpace) >= 0 {
			return apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid reference %q: illegal character in %q", r.String(), part))
		}
	}
	return nil
}

// String returns "name/version".
func (r Reference) String() string {
	return r.Name + "/" + r.Version
}

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool {
	return r.Name == "" && r.Version == ""
}
