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
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/defaults"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

func exportCmd() *cli.Command {
	flags := append(resolveFlags(), storeFlags()...)
	flags = append(flags, buildFlags()...)
	return &cli.Command{
		Name:      "export",
		Usage:     "Write archives of the packages of a recipe's graph",
		ArgsUsage: "<name/version>",
		Description: `Build the graph (reusing packages already in the store) and write one
deterministic archive per package into --dir, named
<name>-<version>-<package-id><ext>. Supported archive formats: .tar, .tar.gz,
.tar.xz and .tar.zst.`,
		Flags: append(flags,
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "dist",
				Usage:   "directory the archives are written to",
			},
			&cli.StringFlag{
				Name:  "archive-format",
				Value: string(artifact.FormatTarZstd),
				Usage: "archive extension (.tar, .tar.gz, .tar.xz, .tar.zst)",
			},
			&cli.BoolFlag{
				Name:  "root-only",
				Usage: "export only the root package",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseArchiveFormat(cmd.String("archive-format"))
			if err != nil {
				return err
			}
			out, err := runBuild(ctx, cmd)
			if err != nil {
				return err
			}

			dir := cmd.String("dir")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return apperrors.Wrap(apperrors.ErrCodeArtifactStaging,
					fmt.Sprintf("failed to create %s", dir), err)
			}

			ctx, cancel := context.WithTimeout(ctx, defaults.PublishTimeout)
			defer cancel()

			for _, pkg := range packages(out, cmd.Bool("root-only")) {
				dst := filepath.Join(dir, archiveName(pkg, format))
				if err := pkg.Archive(ctx, dst); err != nil {
					return apperrors.WrapWithContext(apperrors.ErrCodeArtifactStaging,
						fmt.Sprintf("failed to archive %s", pkg.Ref), err,
						map[string]any{apperrors.ContextNode: pkg.Ref.String()})
				}
				fmt.Fprintf(cmd.Root().Writer, "%s %s\n", successStyle.Sprint("exported"), dst)
			}
			return nil
		},
	}
}

func parseArchiveFormat(v string) (artifact.Format, error) {
	if !strings.HasPrefix(v, ".") {
		v = "." + v
	}
	f, err := artifact.FormatFromPath("package" + v)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid --archive-format", err)
	}
	return f, nil
}

func archiveName(pkg *artifact.Package, format artifact.Format) string {
	return fmt.Sprintf("%s-%s-%s%s", pkg.Ref.Name, pkg.Ref.Version, pkg.ID, format)
}
