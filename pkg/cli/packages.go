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

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/header"
)

// PackageList is the store listing written by the packages command.
type PackageList struct {
	header.Header `json:",inline" yaml:",inline"`

	Store    string         `json:"store" yaml:"store"`
	Packages []PackageEntry `json:"packages" yaml:"packages"`
}

// PackageEntry is one published package.
type PackageEntry struct {
	Ref         string `json:"ref" yaml:"ref"`
	PackageID   string `json:"packageId" yaml:"packageId"`
	PackageType string `json:"packageType,omitempty" yaml:"packageType,omitempty"`
	Dir         string `json:"dir" yaml:"dir"`
	Verified    *bool  `json:"verified,omitempty" yaml:"verified,omitempty"`
}

func packagesCmd() *cli.Command {
	return &cli.Command{
		Name:  "packages",
		Usage: "List the packages in the store",
		Flags: append(storeFlags(),
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "check every package against its checksums",
			},
			outputFlag(),
			formatFlag(),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := parseOutputFormat(cmd); err != nil {
				return err
			}
			dir := cmd.String("store")
			if dir == "" {
				dir = defaultStoreDir()
			}
			store, err := artifact.NewStore(dir)
			if err != nil {
				return err
			}
			pkgs, err := store.List()
			if err != nil {
				return err
			}

			list := PackageList{
				Header: *header.New(
					header.WithKind(header.KindPackageList),
					header.WithAPIVersion(header.APIVersion),
				),
				Store:    store.Root(),
				Packages: make([]PackageEntry, 0, len(pkgs)),
			}
			for _, p := range pkgs {
				e := PackageEntry{
					Ref:         p.Ref.String(),
					PackageID:   p.ID,
					PackageType: string(p.Manifest.PackageType),
					Dir:         p.Dir,
				}
				if cmd.Bool("verify") {
					ok := p.Verify(ctx) == nil
					if !ok {
						slog.Warn("package failed verification", "ref", e.Ref, "package_id", p.ID)
					}
					e.Verified = &ok
				}
				list.Packages = append(list.Packages, e)
			}

			w, err := newOutputWriter(cmd)
			if err != nil {
				return err
			}
			defer w.Close()
			return w.Serialize(ctx, list)
		},
	}
}
