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

// Package header provides the common header carried by kiln documents.
//
// Every file kiln writes or reads as a resource (package manifests,
// profiles, build results, graph views) starts with the same header:
//
//	kind: Package
//	apiVersion: kiln.voicetuber.dev/v1
//	metadata:
//	  version: v0.3.0
//
// Create one with functional options:
//
//	h := header.New(
//	    header.WithKind(header.KindPackage),
//	    header.WithAPIVersion(header.APIVersion),
//	    header.WithMetadata("version", version),
//	)
//
// Init stamps a timestamp in addition to the version and is meant for
// reports; artifacts that must be reproducible use New without a timestamp.
//
// Readers check the kind before decoding the rest of a document:
//
//	if err := h.Expect(header.KindProfile); err != nil {
//	    return err
//	}
package header
