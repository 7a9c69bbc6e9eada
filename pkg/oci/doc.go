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

// Package oci publishes kiln packages to OCI-compliant registries.
//
// Each published package becomes an OCI 1.1 artifact with media type
// "application/vnd.kiln.package.v1" and a single gzip layer holding the
// package tree. Manifest annotations carry the package reference and ID.
// Layers are built with reproducible tar headers and a fixed creation time,
// so pushing the same package twice yields the same digest.
//
// # Targets
//
// Targets use the "oci://" scheme:
//
//	ref, err := oci.ParseReference("oci://ghcr.io/voicetuber/packages")
//
// A package named sdl is pushed to ghcr.io/voicetuber/packages/sdl. The tag
// is taken from the target when it has one, otherwise DefaultTag derives it
// from the package version and ID.
//
// # Usage
//
//	res, err := oci.Push(ctx, pkg, ref, oci.PushOptions{PlainHTTP: true})
//
// Layout writes the artifact to a local OCI image layout without pushing.
//
// # Authentication
//
// Credentials are loaded from the standard Docker configuration
// (~/.docker/config.json) using the ORAS credentials package.
package oci
