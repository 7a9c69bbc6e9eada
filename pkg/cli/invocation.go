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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/voicetuber/kiln/pkg/defaults"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/graph"
	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/recipefile"
)

// invocation is everything one command resolves against. Flags take
// precedence over the profile, the profile over built-in defaults. Settings
// and overrides from flags are applied after the profile's.
type invocation struct {
	root      recipe.Reference
	catalog   *recipe.Catalog
	settings  *recipe.Settings
	overrides []options.Override
	storeDir  string
	jobs      int
}

func loadInvocation(ctx context.Context, cmd *cli.Command) (*invocation, error) {
	if cmd.Args().Len() != 1 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("expected exactly one recipe reference (name/version), got %d arguments", cmd.Args().Len()))
	}
	root, err := recipe.ParseReference(cmd.Args().First())
	if err != nil {
		return nil, err
	}

	var profile *recipefile.Profile
	if src := cmd.String("profile"); src != "" {
		if profile, err = recipefile.LoadProfile(ctx, src); err != nil {
			return nil, err
		}
	}

	inv := &invocation{root: root}

	settings := make(map[string]string)
	var overrides []string
	recipesDir := defaultRecipesDir
	inv.storeDir = defaultStoreDir()
	inv.jobs = defaults.DefaultJobs

	if profile != nil {
		for k, v := range profile.Settings {
			settings[k] = v
		}
		overrides = append(overrides, profile.Options...)
		if profile.Recipes != "" {
			recipesDir = profile.Recipes
		}
		if profile.Store != "" {
			inv.storeDir = profile.Store
		}
		if profile.Jobs > 0 {
			inv.jobs = profile.Jobs
		}
	}

	for _, e := range cmd.StringSlice("setting") {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid setting %q: expected key=value", e))
		}
		settings[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	overrides = append(overrides, cmd.StringSlice("option")...)

	if v := cmd.String("recipes"); v != "" {
		recipesDir = v
	}
	if v := cmd.String("store"); v != "" {
		inv.storeDir = v
	}
	if cmd.IsSet("jobs") {
		if j := cmd.Int("jobs"); j > 0 {
			inv.jobs = j
		}
	}

	if inv.settings, err = recipe.SettingsFromMap(settings); err != nil {
		return nil, err
	}
	if inv.overrides, err = options.ParseOverrides(overrides); err != nil {
		return nil, err
	}
	if inv.catalog, err = recipefile.LoadCatalog(ctx, recipesDir); err != nil {
		return nil, err
	}

	slog.Debug("invocation",
		"root", root.String(),
		"recipes", recipesDir,
		"settings", inv.settings.String(),
		"overrides", len(inv.overrides),
		"store", inv.storeDir,
		"jobs", inv.jobs,
	)
	return inv, nil
}

// resolve builds the dependency graph of the invocation's root.
func (inv *invocation) resolve(ctx context.Context) (*graph.Graph, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.GraphResolveTimeout)
	defer cancel()

	opts := []graph.Option{
		graph.WithSettings(inv.settings),
		graph.WithOverrides(inv.overrides...),
	}
	if v := engineVersion(); v != "" {
		opts = append(opts, graph.WithEngineVersion(v))
	}
	return graph.NewBuilder(inv.catalog, opts...).Build(ctx, inv.root)
}
