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

package api

import (
	"context"
	"log/slog"

	"github.com/voicetuber/kiln/pkg/logging"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/server"
)

const (
	name           = "kilnd"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/voicetuber/kiln/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// EngineVersion returns the build version used for required_engine_version
// checks, or "" for development builds.
func EngineVersion() string {
	if version == versionDefault {
		return ""
	}
	return version
}

// Serve starts the API server over catalog and blocks until ctx is done or
// the process receives SIGINT/SIGTERM. opts are applied after the defaults.
func Serve(ctx context.Context, catalog *recipe.Catalog, opts ...server.Option) error {
	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"recipes", len(catalog.List()),
	)

	h := NewHandler(catalog, WithEngineVersion(EngineVersion()))

	s := server.New(append([]server.Option{
		server.WithName(name),
		server.WithVersion(version),
		server.WithHandler(h.Routes()),
	}, opts...)...)

	if err := s.Run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}
