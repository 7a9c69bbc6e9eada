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
	"encoding/hex"
	"io"
	"slices"
	"strings"

	"lukechampine.com/blake3"
)

// packageIDSize is the digest length in bytes.
const packageIDSize = 20

// packageID hashes the node's reference, narrowed settings, frozen options
// and the package IDs of its direct dependencies sorted by name.
func packageID(n *Node, deps []*Node) string {
	h := blake3.New(packageIDSize, nil)
	writeSection(h, "ref", n.Ref.String())
	writeSection(h, "settings", n.Settings.Canonical())
	writeSection(h, "options", n.Options.Canonical())

	requires := make([]string, 0, len(deps))
	for _, d := range deps {
		requires = append(requires, d.Ref.String()+"#"+d.PackageID)
	}
	slices.Sort(requires)
	writeSection(h, "requires", strings.Join(requires, ";"))

	return hex.EncodeToString(h.Sum(nil))
}

func writeSection(w io.Writer, name, value string) {
	_, _ = io.WriteString(w, "["+name+"]\n"+value+"\n")
}
