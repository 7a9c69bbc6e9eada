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

package graph

import (
	"slices"

	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// RootRequester names the requester of the root node in errors and views.
const RootRequester = "<root>"

// Node is one resolved package of a graph. Its settings and options are
// frozen and never change after resolution.
type Node struct {
	Ref      recipe.Reference
	Recipe   recipe.Recipe
	Settings *recipe.Settings
	Options  options.Values

	// Requires lists direct requirements in declaration order.
	Requires []recipe.Reference

	// Requesters lists every node that required this one, in discovery order.
	Requesters []string

	// Level is 0 for leaves and one more than the deepest direct dependency otherwise.
	Level int

	// PackageID identifies the binary this node produces.
	PackageID string

	IsRoot bool
}

// Name returns the package name.
func (n *Node) Name() string {
	return n.Ref.Name
}

// EvalContext returns the frozen view passed to post-configure callbacks.
func (n *Node) EvalContext() recipe.EvalContext {
	return recipe.EvalContext{
		Ref:      n.Ref,
		Settings: n.Settings,
		Options:  n.Options,
	}
}

// Graph is a resolved dependency graph.
type Graph struct {
	root  *Node
	nodes map[string]*Node
	order []*Node
}

// Root returns the root node.
func (g *Graph) Root() *Node {
	return g.root
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Node returns the node with the given package name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in build order.
func (g *Graph) Nodes() []*Node {
	return slices.Clone(g.order)
}

// Order returns node references in build order, deepest leaves first.
func (g *Graph) Order() []recipe.Reference {
	out := make([]recipe.Reference, len(g.order))
	for i, n := range g.order {
		out[i] = n.Ref
	}
	return out
}

// Dependencies returns the direct dependencies of name in declaration order.
func (g *Graph) Dependencies(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]*Node, 0, len(n.Requires))
	for _, r := range n.Requires {
		out = append(out, g.nodes[r.Name])
	}
	return out
}

// Transitive returns every dependency reachable from name, in build order.
func (g *Graph) Transitive(name string) []*Node {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	reach := make(map[string]bool)
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, r := range cur.Requires {
			if reach[r.Name] {
				continue
			}
			reach[r.Name] = true
			walk(g.nodes[r.Name])
		}
	}
	walk(n)

	out := make([]*Node, 0, len(reach))
	for _, cur := range g.order {
		if reach[cur.Ref.Name] {
			out = append(out, cur)
		}
	}
	return out
}

// Levels groups nodes by level. Nodes within a level do not depend on each
// other; each level is in build order.
func (g *Graph) Levels() [][]*Node {
	if len(g.order) == 0 {
		return nil
	}
	levels := make([][]*Node, g.root.Level+1)
	for _, n := range g.order {
		levels[n.Level] = append(levels[n.Level], n)
	}
	return levels
}
