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

package defaults

import "time"

// Graph resolution and build timeouts.
const (
	// GraphResolveTimeout bounds a single graph resolution.
	GraphResolveTimeout = 30 * time.Second

	// NodeBuildTimeout bounds the build and package steps of one node.
	NodeBuildTimeout = 2 * time.Hour

	// BuildTimeout bounds a whole build invocation.
	BuildTimeout = 6 * time.Hour

	// ProcessWaitDelay is how long a killed build process may hold its
	// output pipes open before they are closed.
	ProcessWaitDelay = 5 * time.Second
)

// Handler timeouts for HTTP request processing.
const (
	// GraphHandlerTimeout is the timeout for graph resolution requests.
	GraphHandlerTimeout = 30 * time.Second

	// GraphBuildTimeout is the internal resolution timeout of the graph handler.
	// Should be less than GraphHandlerTimeout to allow error handling.
	GraphBuildTimeout = 25 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Publishing timeouts for remote artifact stores.
const (
	// PublishTimeout bounds one artifact upload to an OCI registry or S3.
	PublishTimeout = 10 * time.Minute

	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second
)

// Limits.
const (
	// MaxRequestBodyBytes caps API request bodies.
	MaxRequestBodyBytes = 1 << 20

	// DefaultJobs is the node build parallelism when none is configured.
	DefaultJobs = 4
)
