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

// Package api exposes graph resolution over HTTP.
//
// It is a thin layer over pkg/server: Serve configures structured logging,
// registers the catalog handlers and delegates lifecycle, middleware and
// system endpoints to the server package.
//
// # Usage
//
//	catalog, err := recipefile.LoadCatalog(ctx, "recipes")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := api.Serve(ctx, catalog); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
// Application endpoints (rate limited):
//   - POST /v1/graph   - resolve a dependency graph from a JSON or YAML body
//   - GET  /v1/recipes - list the references in the loaded catalog
//
// System endpoints:
//   - GET /health  - liveness
//   - GET /ready   - readiness
//   - GET /metrics - Prometheus metrics
//
// # Request Body (POST /v1/graph)
//
//	{
//	  "root": "voicetuber/0.3.0",
//	  "settings": {"os": "Linux", "arch": "x86_64", "compiler": "gcc", "compiler.version": "13"},
//	  "options": ["*:shared=False", "voicetuber/*:with_gui=False"]
//	}
//
// Send Content-Type: application/yaml to post the same document as YAML.
// Unknown fields are rejected.
//
// # Response
//
// A Graph resource: kind, apiVersion and metadata followed by the root,
// the build order (leaves first), the dependency levels and one entry per
// node with its package ID, frozen settings and options.
//
// Resolution failures are returned as server.ErrorResponse with the
// structured error code: 409 for VERSION_CONFLICT, 422 for DEPENDENCY_CYCLE
// and RECIPE_EVALUATION, 400 for UNKNOWN_OPTION and INVALID_REQUEST, 404 for
// NOT_FOUND.
package api
