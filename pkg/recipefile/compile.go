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

	"github.com/voicetuber/kiln/pkg/recipe"
)

type compiledRequirement struct {
	ref  recipe.Reference
	when *condition
}

type compiledRule struct {
	rule ConfigureRule
	when *condition
}

// Compile turns doc into a recipe whose sources live in root.
func Compile(doc *Document, root string) (*recipe.Definition, error) {
	doc.normalize()
	if err := doc.Metadata.Validate(); err != nil {
		return nil, err
	}

	env, err := newConditionEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create condition environment: %w", err)
	}

	reqs := make([]compiledRequirement, 0, len(doc.Requires))
	for _, r := range doc.Requires {
		ref, err := recipe.ParseReference(r.Ref)
		if err != nil {
			return nil, err
		}
		when, err := compileCondition(env, r.When)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, compiledRequirement{ref: ref, when: when})
	}

	rules := make([]compiledRule, 0, len(doc.Configure))
	for _, r := range doc.Configure {
		when, err := compileCondition(env, r.When)
		if err != nil {
			return nil, err
		}
		rules = append(rules, compiledRule{rule: r, when: when})
	}

	vars, err := parseTemplates("variable", doc.Variables)
	if err != nil {
		return nil, err
	}
	defs, err := parseTemplates("definition", doc.Definitions)
	if err != nil {
		return nil, err
	}

	d := &recipe.Definition{Meta: doc.Metadata, Root: root}
	for _, r := range reqs {
		if r.when == nil {
			d.Requires = append(d.Requires, r.ref)
		}
	}

	if len(rules) > 0 {
		d.ConfigureFunc = configureFunc(&d.Meta, rules)
	}
	if len(reqs) != len(d.Requires) {
		d.RequirementsFunc = requirementsFunc(reqs)
	}
	if len(vars) > 0 {
		d.GenerateFunc = func(_ context.Context, gc *recipe.GenerateContext) error {
			out, err := vars.render(templateInput{
				settings: gc.Settings.Map(),
				options:  gc.Options.Map(),
				deps:     gc.Dependencies,
			})
			if err != nil {
				return err
			}
			for k, v := range out {
				gc.SetVariable(k, v)
			}
			return nil
		}
	}
	if len(defs) > 0 {
		d.BuildFunc = func(ctx context.Context, bc *recipe.BuildContext) error {
			out, err := defs.render(templateInput{
				settings: bc.Settings.Map(),
				options:  bc.Options.Map(),
			})
			if err != nil {
				return err
			}
			if err := bc.Toolchain.Configure(ctx, out); err != nil {
				return err
			}
			return bc.Toolchain.Build(ctx)
		}
	}
	if !isZeroInfo(doc.Info) {
		info := doc.Info.Clone()
		d.InfoFunc = func(_ context.Context, _ *recipe.EvalContext, pi *recipe.PackageInfo) error {
			*pi = info.Clone()
			return nil
		}
	}
	return d, nil
}

func configureFunc(meta *recipe.Metadata, rules []compiledRule) func(context.Context, *recipe.ConfigureContext) error {
	declared := make([]string, 0, len(meta.Options))
	for name := range meta.Options {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	return func(_ context.Context, cc *recipe.ConfigureContext) error {
		for _, r := range rules {
			opts := make(map[string]string, len(declared))
			for _, name := range declared {
				if v, ok := cc.Options.Value(name); ok {
					opts[name] = v
				}
			}
			ok, err := r.when.holds(conditionInput{
				name:     cc.Ref.Name,
				version:  cc.Ref.Version,
				settings: cc.Settings.Map(),
				options:  opts,
			})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			for _, name := range r.rule.RemoveOptions {
				cc.Options.Remove(name)
			}
			for _, axis := range r.rule.RemoveSettings {
				cc.Settings.Remove(axis)
			}
			keys := make([]string, 0, len(r.rule.SetOptions))
			for k := range r.rule.SetOptions {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				cc.Options.Set(k, r.rule.SetOptions[k])
			}
		}
		return nil
	}
}

func requirementsFunc(reqs []compiledRequirement) func(context.Context, *recipe.EvalContext) ([]recipe.Reference, error) {
	return func(_ context.Context, ec *recipe.EvalContext) ([]recipe.Reference, error) {
		in := conditionInput{
			name:     ec.Ref.Name,
			version:  ec.Ref.Version,
			settings: ec.Settings.Map(),
			options:  ec.Options.Map(),
		}
		out := make([]recipe.Reference, 0, len(reqs))
		for _, r := range reqs {
			ok, err := r.when.holds(in)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, r.ref)
			}
		}
		return out, nil
	}
}

func isZeroInfo(p recipe.PackageInfo) bool {
	return len(p.Libs) == 0 && len(p.IncludeDirs) == 0 && len(p.LibDirs) == 0 &&
		len(p.BinDirs) == 0 && len(p.ResDirs) == 0 && len(p.Defines) == 0 &&
		len(p.Variables) == 0
}

