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

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/defaults"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/oci"
	"github.com/voicetuber/kiln/pkg/s3"
)

// publisher sends one package to a publish target and returns where it went.
type publisher func(ctx context.Context, pkg *artifact.Package) (string, error)

func publishCmd() *cli.Command {
	flags := append(resolveFlags(), storeFlags()...)
	flags = append(flags, buildFlags()...)
	return &cli.Command{
		Name:      "publish",
		Usage:     "Push the packages of a recipe's graph to an OCI registry or S3 bucket",
		ArgsUsage: "<name/version>",
		Description: `Build the graph (reusing packages already in the store) and publish every
package to --to:

  oci://registry/repository[:tag]  each package is pushed as an OCI artifact
                                   to <repository>/<name>; without a tag the
                                   package version plus its package ID prefix
                                   is used.
  s3://bucket/prefix               each package is uploaded as an archive plus
                                   its manifest under <prefix>/<name>/<version>/.

Registry credentials come from the Docker credential store; AWS credentials
from the default AWS configuration chain.`,
		Flags: append(flags,
			&cli.StringFlag{
				Name:     "to",
				Usage:    "publish target (oci://... or s3://...)",
				Required: true,
				Sources:  cli.EnvVars("KILN_PUBLISH_TARGET"),
			},
			&cli.BoolFlag{
				Name:  "root-only",
				Usage: "publish only the root package",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "use HTTP instead of HTTPS for the OCI registry",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "skip TLS verification for the OCI registry",
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region of the S3 bucket",
				Sources: cli.EnvVars("KILN_S3_REGION", "AWS_REGION"),
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "S3-compatible endpoint URL (uses path-style addressing)",
				Sources: cli.EnvVars("KILN_S3_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:  "archive-format",
				Value: string(artifact.FormatTarZstd),
				Usage: "archive extension for S3 uploads",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			publish, err := newPublisher(ctx, cmd)
			if err != nil {
				return err
			}
			out, err := runBuild(ctx, cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, defaults.PublishTimeout)
			defer cancel()

			for _, pkg := range packages(out, cmd.Bool("root-only")) {
				dest, err := publish(ctx, pkg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "%s %s -> %s\n",
					successStyle.Sprint("published"), nodeStyle.Sprint(pkg.Ref.String()), dest)
			}
			return nil
		},
	}
}

func newPublisher(ctx context.Context, cmd *cli.Command) (publisher, error) {
	target := cmd.String("to")
	switch {
	case oci.IsTarget(target):
		ref, err := oci.ParseReference(target)
		if err != nil {
			return nil, err
		}
		opts := oci.PushOptions{
			PlainHTTP:   cmd.Bool("plain-http"),
			InsecureTLS: cmd.Bool("insecure-tls"),
		}
		return func(ctx context.Context, pkg *artifact.Package) (string, error) {
			res, err := oci.Push(ctx, pkg, ref, opts)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s@%s", res.Reference, res.Digest), nil
		}, nil

	case s3.IsTarget(target):
		t, err := s3.ParseTarget(target)
		if err != nil {
			return nil, err
		}
		format, err := parseArchiveFormat(cmd.String("archive-format"))
		if err != nil {
			return nil, err
		}
		opts := []s3.Option{s3.WithFormat(format)}
		if r := cmd.String("region"); r != "" {
			opts = append(opts, s3.WithRegion(r))
		}
		if e := cmd.String("endpoint"); e != "" {
			opts = append(opts, s3.WithEndpoint(e))
		}
		up, err := s3.New(ctx, *t, opts...)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, pkg *artifact.Package) (string, error) {
			res, err := up.Upload(ctx, pkg)
			if err != nil {
				return "", err
			}
			return s3.URIScheme + t.Bucket + "/" + res.ArchiveKey, nil
		}, nil

	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported publish target %q: expected %s... or %s...", target, oci.URIScheme, s3.URIScheme))
	}
}
