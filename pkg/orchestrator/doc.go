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

// Package orchestrator builds a resolved graph leaves first.
//
// Every node runs in its own goroutine and waits until each of its direct
// dependencies has published. A weighted semaphore bounds how many nodes
// build at once. The first failure cancels the run: nodes in flight are
// canceled and nodes that have not started are reported as skipped, so a
// dependent never starts after one of its dependencies failed.
//
//	o := orchestrator.New(eval, orchestrator.WithJobs(8))
//	out, err := o.Run(ctx, g)
//	fmt.Println(out.Summary())
package orchestrator
