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

// Package evaluator runs the post-resolution lifecycle of one graph node.
//
// Configure and requirements run while the graph is resolved. For a
// resolved node the evaluator then:
//
//  1. returns the published package when the store already holds one for
//     the node's package ID (unless forced),
//  2. exports the recipe's sources into a per-node work directory,
//  3. runs generate and writes the generator files,
//  4. applies patches to the exported copy, all-or-nothing,
//  5. runs build and package into a staging directory,
//  6. copies licences and strips build-tool metadata directories,
//  7. runs package_info and publishes the staged tree.
//
// Recipes only implement the capabilities they need; a missing build or
// package capability falls back to the toolchain defaults. Any callback
// failure is returned as a RECIPE_EVALUATION error carrying the node and
// the phase, and nothing is published for that node.
package evaluator
