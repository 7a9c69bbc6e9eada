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

// Package graph resolves a root recipe into an option-consistent,
// acyclic dependency graph.
//
// Resolution walks requirements depth first from the root. For every node the
// builder narrows the invocation settings to the axes the recipe declares,
// applies the option overrides, runs configure, freezes settings and options,
// and only then asks the recipe for its requirements:
//
//	b := graph.NewBuilder(catalog,
//	    graph.WithSettings(settings),
//	    graph.WithOverrides(overrides...),
//	)
//	g, err := b.Build(ctx, recipe.MustParseReference("voicetuber/0.1.0"))
//
// Each package name appears at most once. A second request for the same name
// and version shares the existing node; a different version fails with a
// VERSION_CONFLICT error naming both versions and both requesters. A name that
// is requested while it is still being expanded fails with DEPENDENCY_CYCLE and
// the cycle path.
//
// Graph.Order is the post-order of the walk: leaves first, siblings in
// requirement declaration order, the root last. Graph.Levels groups nodes into
// waves that may be built in parallel.
//
// Every Build call owns its resolution state, so concurrent builds of
// different roots never share nodes.
package graph
