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

// Package cli implements the kiln command line.
//
// # Commands
//
// graph - resolve a dependency graph:
//
//	kiln graph voicetuber/0.3.0 -s os=Linux -s arch=x86_64 -O '*:shared=True'
//
// build - build every package, leaves first:
//
//	kiln build voicetuber/0.3.0 --profile linux-gcc.yaml --jobs 8
//
// export - write package archives:
//
//	kiln export voicetuber/0.3.0 --profile linux-gcc.yaml --dir dist --archive-format .tar.gz
//
// publish - push packages to a registry or bucket:
//
//	kiln publish voicetuber/0.3.0 --to oci://ghcr.io/voicetuber/packages
//	kiln publish voicetuber/0.3.0 --to s3://kiln-artifacts/linux --region eu-west-1
//
// packages - list the store:
//
//	kiln packages --verify --format table
//
// serve - serve graph resolution over HTTP:
//
//	kiln serve --recipes recipes --port 8080
//
// # Profiles
//
// A profile holds the settings, option overrides, parallelism and store of an
// environment:
//
//	kind: Profile
//	apiVersion: kiln.voicetuber.dev/v1
//	settings:
//	  os: Linux
//	  arch: x86_64
//	  compiler: gcc
//	  compiler.version: "13"
//	  build_type: Release
//	options:
//	  - "*:shared=False"
//	jobs: 4
//
// Flags take precedence over the profile. --setting values replace the
// profile's value for the same key; --option overrides are applied after the
// profile's, so they win within the same specificity tier.
//
// # Environment Variables
//
//	KILN_RECIPES          Recipe catalog directory
//	KILN_PROFILE          Profile file
//	KILN_STORE            Package store directory
//	KILN_JOBS             Packages built in parallel
//	KILN_BUILD_JOBS       Native build tool parallelism
//	KILN_CMAKE_GENERATOR  CMake generator
//	KILN_PUBLISH_TARGET   Default publish target
//	KILN_LOG_LEVEL        Log level (LOG_LEVEL is also honored)
//
// # Exit Codes
//
//	0  Success
//	1  Resolution, build or publish failure
//	2  Interrupted
package cli
