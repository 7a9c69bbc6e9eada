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

// Package result aggregates the per-node outcomes of a build into a report.
//
// Output collects one evaluator.Result per graph node in build order and
// renders a one-line Summary and a per-node Details listing:
//
//	out := &result.Output{Root: root, Results: results}
//	fmt.Println(out.Summary())
//	// Output:
//	// Built 2, cached 3, failed 0, skipped 0 of 5 packages (4.2 MB) in 12.5s.
//
// Output serializes to JSON and YAML through pkg/serializer.
package result
