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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// URIScheme is the URI scheme for OCI registry targets (e.g., "oci://ghcr.io/org/packages").
const URIScheme = "oci://"

// IsTarget reports whether target uses the oci:// scheme.
func IsTarget(target string) bool {
	return strings.HasPrefix(target, URIScheme)
}

// Reference is a parsed OCI publish target. Packages are pushed to
// <Registry>/<Repository>/<package name>.
type Reference struct {
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the repository prefix (e.g., "voicetuber/packages").
	Repository string
	// Tag overrides the per-package default tag when set.
	Tag string
}

// ParseReference parses "oci://registry/repository[:tag]".
func ParseReference(target string) (*Reference, error) {
	if !IsTarget(target) {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid OCI target %q: expected %sregistry/repository", target, URIScheme))
	}

	ref, err := reference.ParseNormalizedNamed(stripProtocol(strings.TrimPrefix(target, URIScheme)))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid OCI target %q: digests cannot be pushed to", target))
	}

	r := &Reference{
		Registry:   reference.Domain(ref),
		Repository: reference.Path(ref),
	}
	if tagged, ok := ref.(reference.Tagged); ok {
		r.Tag = tagged.Tag()
	}
	return r, nil
}

// String returns the target in oci:// form.
func (r *Reference) String() string {
	if r.Tag == "" {
		return fmt.Sprintf("%s%s/%s", URIScheme, r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s%s/%s:%s", URIScheme, r.Registry, r.Repository, r.Tag)
}

// Repo returns the repository a package named name is pushed to.
func (r *Reference) Repo(name string) string {
	return fmt.Sprintf("%s/%s/%s", r.Registry, r.Repository, name)
}

// ImageReference returns the Docker-style reference for a package and tag.
func (r *Reference) ImageReference(name, tag string) string {
	return fmt.Sprintf("%s:%s", r.Repo(name), tag)
}
