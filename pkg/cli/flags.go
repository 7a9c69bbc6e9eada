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

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/serializer"
)

const (
	defaultRecipesDir = "recipes"
	storeDirName      = ".kiln"
)

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (supported: %v)", serializer.SupportedFormats()),
	}
}

// resolveFlags select what to resolve. They are shared by every command that
// builds a graph.
func resolveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "recipes",
			Aliases: []string{"r"},
			Usage:   fmt.Sprintf("recipe catalog directory (default: profile value or %q)", defaultRecipesDir),
			Sources: cli.EnvVars("KILN_RECIPES"),
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "profile file (path or http(s) URL) with settings, options, jobs and store",
			Sources: cli.EnvVars("KILN_PROFILE"),
		},
		&cli.StringSliceFlag{
			Name:    "setting",
			Aliases: []string{"s"},
			Usage:   "setting as key=value, e.g. os=Linux or compiler.version=13 (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:    "option",
			Aliases: []string{"O"},
			Usage:   "option override as <pattern>:<option>=<value>, e.g. *:shared=True (repeatable)",
		},
	}
}

// storeFlags select the package store and build parallelism.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Usage:   "package store directory (default: profile value or ~/.kiln/store)",
			Sources: cli.EnvVars("KILN_STORE"),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "number of packages built in parallel (default: profile value or 4)",
			Sources: cli.EnvVars("KILN_JOBS"),
		},
	}
}

// buildFlags tune how packages are produced.
func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "rebuild packages already present in the store",
		},
		&cli.StringFlag{
			Name:    "generator",
			Usage:   "CMake generator, e.g. Ninja (default: CMake's platform default)",
			Sources: cli.EnvVars("KILN_CMAKE_GENERATOR"),
		},
		&cli.IntFlag{
			Name:    "build-jobs",
			Usage:   "parallelism passed to the native build tool (0: tool default)",
			Sources: cli.EnvVars("KILN_BUILD_JOBS"),
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "disable the progress bar",
		},
	}
}

// parseOutputFormat returns the validated --format value.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q", f)
	}
	return f, nil
}

// newOutputWriter writes to --output, or to the root command's writer when
// none is set. Callers must Close it.
func newOutputWriter(cmd *cli.Command) (*serializer.Writer, error) {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return nil, err
	}
	if path := cmd.String("output"); path != "" && path != "-" {
		return serializer.NewFileWriter(format, path)
	}
	return serializer.NewWriter(format, cmd.Root().Writer), nil
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(storeDirName, "store")
	}
	return filepath.Join(home, storeDirName, "store")
}
