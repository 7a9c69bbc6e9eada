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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/logging"
)

const (
	name           = "kiln"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// engineVersion returns the version checked against required_engine_version,
// or "" for development builds.
func engineVersion() string {
	if version == versionDefault {
		return ""
	}
	return version
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Resolve, build and publish native recipe graphs",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		Description: `kiln turns declarative recipes and a target environment into a resolved
dependency graph, generated CMake descriptors and packaged artifact trees.

  graph    - resolve and print the dependency graph of a recipe
  build    - build every package of the graph, leaves first
  export   - write package archives of a built graph
  publish  - push built packages to an OCI registry or S3 bucket
  packages - list the packages in the store
  serve    - serve graph resolution over HTTP`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("KILN_LOG_LEVEL", logging.EnvVarLogLevel),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logLevel := cmd.String("log-level")
			logging.SetDefaultStructuredLoggerWithLevel(name, version, logLevel)
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date,
				"logLevel", logLevel)
			return ctx, nil
		},
		Commands: []*cli.Command{
			graphCmd(),
			buildCmd(),
			exportCmd(),
			publishCmd(),
			packagesCmd(),
			serveCmd(),
		},
	}
}

// Execute runs the CLI and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Sprint(err.Error()))
		if ctx.Err() != nil {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
