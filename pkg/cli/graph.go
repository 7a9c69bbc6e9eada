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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/api"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Resolve and print the dependency graph of a recipe",
		ArgsUsage: "<name/version>",
		Description: `Resolve the dependency graph of a recipe for the given settings and option
overrides without building anything. The output lists the build order (leaves
first), the parallel build levels and, per node, the package ID with its
frozen settings and options.`,
		Flags: append(resolveFlags(), outputFlag(), formatFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			inv, err := loadInvocation(ctx, cmd)
			if err != nil {
				return err
			}
			g, err := inv.resolve(ctx)
			if err != nil {
				return err
			}

			w, err := newOutputWriter(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := w.Close(); err != nil {
					slog.Warn("failed to close output", "error", err)
				}
			}()
			return w.Serialize(ctx, api.NewGraphResponse(g))
		},
	}
}
