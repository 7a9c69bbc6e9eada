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

package recipe

import (
	"context"
)

// Definition is a recipe written in Go. Nil functions fall back to the
// engine defaults: no configure changes, the static Requires list, no
// generator variables, a toolchain build and install, and default package info.
type Definition struct {
	Meta     Metadata
	Root     string
	Requires []Reference

	ConfigureFunc    func(ctx context.Context, cc *ConfigureContext) error
	RequirementsFunc func(ctx context.Context, ec *EvalContext) ([]Reference, error)
	GenerateFunc     func(ctx context.Context, gc *GenerateContext) error
	BuildFunc        func(ctx context.Context, bc *BuildContext) error
	PackageFunc      func(ctx context.Context, pc *PackageContext) error
	InfoFunc         func(ctx context.Context, ec *EvalContext, info *PackageInfo) error
}

func (d *Definition) Metadata() *Metadata { return &d.Meta }

func (d *Definition) SourceRoot() string { return d.Root }

func (d *Definition) Configure(ctx context.Context, cc *ConfigureContext) error {
	if d.ConfigureFunc == nil {
		return nil
	}
	return d.ConfigureFunc(ctx, cc)
}

func (d *Definition) Requirements(ctx context.Context, ec *EvalContext) ([]Reference, error) {
	if d.RequirementsFunc == nil {
		return d.Requires, nil
	}
	return d.RequirementsFunc(ctx, ec)
}

func (d *Definition) Generate(ctx context.Context, gc *GenerateContext) error {
	if d.GenerateFunc == nil {
		return nil
	}
	return d.GenerateFunc(ctx, gc)
}

func (d *Definition) Build(ctx context.Context, bc *BuildContext) error {
	if d.BuildFunc == nil {
		return DefaultBuild(ctx, bc)
	}
	return d.BuildFunc(ctx, bc)
}

func (d *Definition) Package(ctx context.Context, pc *PackageContext) error {
	if d.PackageFunc == nil {
		return DefaultPackage(ctx, pc)
	}
	return d.PackageFunc(ctx, pc)
}

func (d *Definition) PackageInfo(ctx context.Context, ec *EvalContext, info *PackageInfo) error {
	if d.InfoFunc == nil {
		return nil
	}
	return d.InfoFunc(ctx, ec, info)
}
