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

package recipefile

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/header"
	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/serializer"
)

// Profile is a reusable build configuration.
type Profile struct {
	header.Header `json:",inline" yaml:",inline"`

	// Settings maps axes, including dotted sub-settings, to values.
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Options are overrides in "<pattern>:<option>=<value>" form.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	Jobs    int    `json:"jobs,omitempty" yaml:"jobs,omitempty"`
	Store   string `json:"store,omitempty" yaml:"store,omitempty"`
	Recipes string `json:"recipes,omitempty" yaml:"recipes,omitempty"`
}

// LoadProfile reads a Profile document from a local path or URL.
func LoadProfile(ctx context.Context, source string) (*Profile, error) {
	p, err := serializer.FromFile[Profile](ctx, source, serializer.WithStrict())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, fmt.Sprintf("failed to load profile %s", source), err)
	}
	if err := p.Expect(header.KindProfile); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, fmt.Sprintf("invalid profile %s", source), err)
	}
	if _, err := p.ParseSettings(); err != nil {
		return nil, err
	}
	if _, err := p.ParseOverrides(); err != nil {
		return nil, err
	}
	return p, nil
}

// SettingEntries returns the settings as sorted "key=value" entries.
func (p *Profile) SettingEntries() []string {
	out := make([]string, 0, len(p.Settings))
	for k, v := range p.Settings {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// ParseSettings validates and returns the profile's settings.
func (p *Profile) ParseSettings() (*recipe.Settings, error) {
	return recipe.SettingsFromMap(p.Settings)
}

// ParseOverrides validates and returns the profile's option overrides.
func (p *Profile) ParseOverrides() ([]options.Override, error) {
	return options.ParseOverrides(p.Options)
}
