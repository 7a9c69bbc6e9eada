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

// NodeView is the serializable form of a Node.
type NodeView struct {
	Ref         string            `json:"ref" yaml:"ref"`
	PackageID   string            `json:"packageId" yaml:"packageId"`
	PackageType string            `json:"packageType" yaml:"packageType"`
	Level       int               `json:"level" yaml:"level"`
	Settings    map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
	Options     map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	Requires    []string          `json:"requires,omitempty" yaml:"requires,omitempty"`
	Requesters  []string          `json:"requesters" yaml:"requesters"`
}

// View is the serializable form of a Graph.
type View struct {
	Root   string     `json:"root" yaml:"root"`
	Order  []string   `json:"order" yaml:"order"`
	Levels [][]string `json:"levels" yaml:"levels"`
	Nodes  []NodeView `json:"nodes" yaml:"nodes"`
}

// View renders the graph for output.
func (g *Graph) View() View {
	v := View{
		Root:  g.root.Ref.String(),
		Order: make([]string, 0, len(g.order)),
		Nodes: make([]NodeView, 0, len(g.order)),
	}
	for _, n := range g.order {
		v.Order = append(v.Order, n.Ref.String())

		requires := make([]string, len(n.Requires))
		for i, r := range n.Requires {
			requires[i] = r.String()
		}
		opts := n.Options.Map()
		if len(opts) == 0 {
			opts = nil
		}
		v.Nodes = append(v.Nodes, NodeView{
			Ref:         n.Ref.String(),
			PackageID:   n.PackageID,
			PackageType: string(n.Recipe.Metadata().PackageType),
			Level:       n.Level,
			Settings:    n.Settings.Map(),
			Options:     opts,
			Requires:    requires,
			Requesters:  n.Requesters,
		})
	}
	for _, level := range g.Levels() {
		names := make([]string, len(level))
		for i, n := range level {
			names[i] = n.Ref.String()
		}
		v.Levels = append(v.Levels, names)
	}
	return v
}
