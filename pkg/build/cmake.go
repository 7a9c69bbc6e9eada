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

package build

import (
	"context"
	"sort"
	"strconv"
)

// CMake drives a CMake project through a Runner.
type CMake struct {
	Runner        Runner
	SourceDir     string
	BuildDir      string
	ToolchainFile string
	BuildType     string

	// Generator is passed to -G when set.
	Generator string

	// Jobs bounds build parallelism; zero lets the tool decide.
	Jobs int

	// Binary defaults to "cmake".
	Binary string
}

func (c *CMake) binary() string {
	if c.Binary == "" {
		return "cmake"
	}
	return c.Binary
}

// Configure generates the build tree. Definitions are passed as sorted -D flags.
func (c *CMake) Configure(ctx context.Context, definitions map[string]string) error {
	args := []string{"-S", c.SourceDir, "-B", c.BuildDir}
	if c.Generator != "" {
		args = append(args, "-G", c.Generator)
	}
	if c.ToolchainFile != "" {
		args = append(args, "-DCMAKE_TOOLCHAIN_FILE="+c.ToolchainFile)
	}
	keys := make([]string, 0, len(definitions))
	for k := range definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-D"+k+"="+definitions[k])
	}
	return c.Runner.Run(ctx, Command{Name: c.binary(), Args: args, Dir: c.BuildDir})
}

// Build compiles the configured tree.
func (c *CMake) Build(ctx context.Context) error {
	args := []string{"--build", c.BuildDir}
	if c.BuildType != "" {
		args = append(args, "--config", c.BuildType)
	}
	if c.Jobs > 0 {
		args = append(args, "--parallel", strconv.Itoa(c.Jobs))
	}
	return c.Runner.Run(ctx, Command{Name: c.binary(), Args: args, Dir: c.BuildDir})
}

// Install installs the build into prefix.
func (c *CMake) Install(ctx context.Context, prefix string) error {
	args := []string{"--install", c.BuildDir, "--prefix", prefix}
	if c.BuildType != "" {
		args = append(args, "--config", c.BuildType)
	}
	return c.Runner.Run(ctx, Command{Name: c.binary(), Args: args, Dir: c.BuildDir})
}
