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

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// hclRecipe is the schema of recipe.hcl.
type hclRecipe struct {
	Name                  string            `hcl:"name"`
	Version               string            `hcl:"version"`
	Description           string            `hcl:"description,optional"`
	License               string            `hcl:"license,optional"`
	URL                   string            `hcl:"url,optional"`
	Homepage              string            `hcl:"homepage,optional"`
	Topics                []string          `hcl:"topics,optional"`
	PackageType           string            `hcl:"package_type"`
	Settings              []string          `hcl:"settings,optional"`
	DefaultOptions        *cty.Value        `hcl:"default_options,optional"`
	ExportsSources        []string          `hcl:"exports_sources,optional"`
	Licenses              []string          `hcl:"licenses,optional"`
	Keep                  []string          `hcl:"keep,optional"`
	RequiredEngineVersion string            `hcl:"required_engine_version,optional"`
	Variables             map[string]string `hcl:"variables,optional"`
	Definitions           map[string]string `hcl:"definitions,optional"`

	Options   []*hclOption    `hcl:"option,block"`
	Patches   []*hclPatch     `hcl:"patch,block"`
	Requires  []*hclRequire   `hcl:"requires,block"`
	Configure []*hclConfigure `hcl:"configure,block"`
	Info      *hclInfo        `hcl:"package_info,block"`
}

type hclOption struct {
	Name    string     `hcl:"name,label"`
	Values  cty.Value  `hcl:"values"`
	Default *cty.Value `hcl:"default,optional"`
}

type hclPatch struct {
	File        string `hcl:"file,label"`
	Description string `hcl:"description,optional"`
	Strip       int    `hcl:"strip,optional"`
}

type hclRequire struct {
	Ref  string `hcl:"ref,label"`
	When string `hcl:"when,optional"`
}

type hclConfigure struct {
	When           string            `hcl:"when,optional"`
	RemoveOptions  []string          `hcl:"remove_options,optional"`
	RemoveSettings []string          `hcl:"remove_settings,optional"`
	SetOptions     map[string]string `hcl:"set_options,optional"`
}

type hclInfo struct {
	Libs        []string          `hcl:"libs,optional"`
	IncludeDirs []string          `hcl:"include_dirs,optional"`
	LibDirs     []string          `hcl:"lib_dirs,optional"`
	BinDirs     []string          `hcl:"bin_dirs,optional"`
	ResDirs     []string          `hcl:"res_dirs,optional"`
	Defines     []string          `hcl:"defines,optional"`
	Variables   map[string]string `hcl:"variables,optional"`
}

// hclContext offers string helpers to recipe expressions.
func hclContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"concat": stdlib.ConcatFunc,
			"format": stdlib.FormatFunc,
			"trim":   stdlib.TrimSpaceFunc,
		},
	}
}

// decodeHCL parses an HCL recipe. filename is used in diagnostics.
func decodeHCL(filename string, src []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	var r hclRecipe
	if diags := gohcl.DecodeBody(file.Body, hclContext(), &r); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}
	return r.document()
}

func (r *hclRecipe) document() (*Document, error) {
	doc := &Document{
		Metadata: recipe.Metadata{
			Name:                  r.Name,
			Version:               r.Version,
			Description:           r.Description,
			License:               r.License,
			URL:                   r.URL,
			Homepage:              r.Homepage,
			Topics:                r.Topics,
			PackageType:           recipe.PackageType(r.PackageType),
			Settings:              r.Settings,
			ExportsSources:        r.ExportsSources,
			Licenses:              r.Licenses,
			Keep:                  r.Keep,
			RequiredEngineVersion: r.RequiredEngineVersion,
		},
		Variables:   r.Variables,
		Definitions: r.Definitions,
	}

	if r.DefaultOptions != nil {
		m, err := ctyStringMap(*r.DefaultOptions)
		if err != nil {
			return nil, fmt.Errorf("default_options: %w", err)
		}
		doc.DefaultOptions = m
	}

	for _, o := range r.Options {
		values, err := ctyStrings(o.Values)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", o.Name, err)
		}
		if doc.Options == nil {
			doc.Options = make(map[string][]string)
		}
		doc.Options[o.Name] = values
		if o.Default != nil {
			def, err := ctyString(*o.Default)
			if err != nil {
				return nil, fmt.Errorf("option %s default: %w", o.Name, err)
			}
			if doc.DefaultOptions == nil {
				doc.DefaultOptions = make(map[string]string)
			}
			doc.DefaultOptions[o.Name] = def
		}
	}

	for _, p := range r.Patches {
		doc.Patches = append(doc.Patches, recipe.Patch{File: p.File, Description: p.Description, Strip: p.Strip})
	}
	for _, q := range r.Requires {
		doc.Requires = append(doc.Requires, Requirement{Ref: q.Ref, When: q.When})
	}
	for _, c := range r.Configure {
		doc.Configure = append(doc.Configure, ConfigureRule{
			When:           c.When,
			RemoveOptions:  c.RemoveOptions,
			RemoveSettings: c.RemoveSettings,
			SetOptions:     c.SetOptions,
		})
	}
	if r.Info != nil {
		doc.Info = recipe.PackageInfo{
			Libs:        r.Info.Libs,
			IncludeDirs: r.Info.IncludeDirs,
			LibDirs:     r.Info.LibDirs,
			BinDirs:     r.Info.BinDirs,
			ResDirs:     r.Info.ResDirs,
			Defines:     r.Info.Defines,
			Variables:   r.Info.Variables,
		}
	}
	return doc, nil
}

// ctyString renders a primitive value the way option values are spelled.
func ctyString(v cty.Value) (string, error) {
	if v.IsNull() || !v.IsKnown() {
		return "", fmt.Errorf("value must be known and not null")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		if v.True() {
			return options.True, nil
		}
		return options.False, nil
	case cty.Number:
		return v.AsBigFloat().Text('f', -1), nil
	default:
		return "", fmt.Errorf("unsupported value of type %s", v.Type().FriendlyName())
	}
}

func ctyStrings(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.CanIterateElements() || v.Type().IsMapType() || v.Type().IsObjectType() {
		return nil, fmt.Errorf("values must be a list")
	}
	out := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		s, err := ctyString(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func ctyStringMap(v cty.Value) (map[string]string, error) {
	if v.IsNull() || !(v.Type().IsMapType() || v.Type().IsObjectType()) {
		return nil, fmt.Errorf("value must be an object")
	}
	out := make(map[string]string, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, ev := it.Element()
		s, err := ctyString(ev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.AsString(), err)
		}
		out[k.AsString()] = s
	}
	return out, nil
}
