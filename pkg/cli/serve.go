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

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/api"
	"github.com/voicetuber/kiln/pkg/recipefile"
	"github.com/voicetuber/kiln/pkg/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve graph resolution over HTTP",
		Description: `Load the recipe catalog once and serve POST /v1/graph and GET /v1/recipes,
plus /health, /ready and /metrics. The server stops gracefully on SIGINT or
SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "recipes",
				Aliases: []string{"r"},
				Value:   defaultRecipesDir,
				Usage:   "recipe catalog directory",
				Sources: cli.EnvVars("KILN_RECIPES"),
			},
			&cli.StringFlag{
				Name:    "address",
				Usage:   "address to listen on (default: all interfaces)",
				Sources: cli.EnvVars("KILN_ADDRESS"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "port to listen on",
				Sources: cli.EnvVars("KILN_PORT", "PORT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			catalog, err := recipefile.LoadCatalog(ctx, cmd.String("recipes"))
			if err != nil {
				return err
			}
			return api.Serve(ctx, catalog,
				server.WithVersion(version),
				server.WithAddress(cmd.String("address"), cmd.Int("port")),
			)
		},
	}
}
