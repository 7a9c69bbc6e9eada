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
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/voicetuber/kiln/pkg/recipe"
)

// templateInput is what variable templates can see.
type templateInput struct {
	settings map[string]string
	options  map[string]string
	deps     []recipe.Dependency
}

func (in templateInput) funcs() template.FuncMap {
	return template.FuncMap{
		"dep": func(name string) (string, error) {
			for _, d := range in.deps {
				if d.Ref.Name == name {
					return filepath.ToSlash(d.PackageDir), nil
				}
			}
			return "", fmt.Errorf("%s is not a dependency", name)
		},
		"option": func(name string) string {
			return in.options[name]
		},
		"setting": func(name string) string {
			return in.settings[name]
		},
	}
}

// templateSet is a parsed name → template mapping.
type templateSet map[string]*template.Template

// parseTemplates parses every value of src. Function calls are checked at
// execution time, so parsing uses placeholder functions.
func parseTemplates(kind string, src map[string]string) (templateSet, error) {
	if len(src) == 0 {
		return nil, nil
	}
	set := make(templateSet, len(src))
	funcs := templateInput{}.funcs()
	for name, text := range src {
		t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %s: %w", kind, name, err)
		}
		set[name] = t
	}
	return set, nil
}

// render executes every template in name order.
func (s templateSet) render(in templateInput) (map[string]string, error) {
	if len(s) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(s))
	for _, name := range names {
		t, err := s[name].Clone()
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		if err := t.Funcs(in.funcs()).Execute(&b, nil); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
		out[name] = b.String()
	}
	return out, nil
}
