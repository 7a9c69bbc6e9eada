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

// Package generator renders the files a native build consumes to find its
// dependencies and pick up the node's configuration.
//
// For every node the writer emits, into one directory:
//
//   - kiln_toolchain.cmake: build type, shared/fPIC switches, C++ standard,
//     search paths and recipe variables.
//   - <dep>-config.cmake for every direct and transitive dependency, each
//     defining a <dep>::<dep> imported interface target.
//   - kiln_descriptor.json: the canonical inputs and a BLAKE3 digest of all
//     rendered content.
//
// Render is a pure function of its Input. Write only touches files whose
// content changed, so unchanged inputs never invalidate the native build.
package generator
