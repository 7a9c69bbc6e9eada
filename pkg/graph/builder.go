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

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"k8s.io/utils/set"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/recipe/version"
)

// Resolver looks up recipes by reference. *recipe.Catalog implements it.
type Resolver interface {
	Get(ref recipe.Reference) (recipe.Recipe, error)
}

// Builder resolves dependency graphs. A Builder is safe for concurrent use;
// every Build call keeps its own state.
type Builder struct {
	resolver      Resolver
	settings      *recipe.Settings
	overrides     []options.Override
	engineVersion string
}

// Option configures a Builder.
type Option func(*Builder)

// WithSettings sets the invocation settings every node is narrowed from.
func WithSettings(s *recipe.Settings) Option {
	return func(b *Builder) {
		b.settings = s.Clone()
	}
}

// WithOverrides appends option overrides. Later overrides win within a tier.
func WithOverrides(o ...options.Override) Option {
	return func(b *Builder) {
		b.overrides = append(b.overrides, o...)
	}
}

// WithEngineVersion enables required engine version checks against v.
func WithEngineVersion(v string) Option {
	return func(b *Builder) {
		b.engineVersion = v
	}
}

// NewBuilder creates a Builder over resolver.
func NewBuilder(resolver Resolver, opts ...Option) *Builder {
	b := &Builder{
		resolver: resolver,
		settings: recipe.NewSettings(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// resolution is the state of one Build call.
type resolution struct {
	b          *Builder
	engine     *version.Version
	overrides  []options.Override
	nodes      map[string]*Node
	inProgress map[string]*Node
	path       []string
	order      []*Node
}

// Build resolves the graph rooted at root.
func (b *Builder) Build(ctx context.Context, root recipe.Reference) (*Graph, error) {
	start := time.Now()
	g, err := b.build(ctx, root)
	graphResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		graphResolutions.WithLabelValues(string(apperrors.CodeOf(err))).Inc()
		slog.Debug("graph resolution failed", "root", root.String(), "error", err)
		return nil, err
	}
	graphResolutions.WithLabelValues("ok").Inc()
	graphNodes.Observe(float64(g.Len()))
	slog.Debug("graph resolved",
		"root", root.String(),
		"nodes", g.Len(),
		"duration", time.Since(start))
	return g, nil
}

func (b *Builder) build(ctx context.Context, root recipe.Reference) (*Graph, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}

	res := &resolution{
		b:          b,
		nodes:      make(map[string]*Node),
		inProgress: make(map[string]*Node),
	}

	if b.engineVersion != "" {
		v, err := version.ParseVersion(b.engineVersion)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid engine version %q", b.engineVersion), err)
		}
		res.engine = &v
	}

	r, err := res.lookup(root, RootRequester)
	if err != nil {
		return nil, err
	}
	patterns, err := options.ParseOverrides(r.Metadata().PatternDefaults())
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeRecipeEvaluation,
			fmt.Sprintf("invalid pattern default options of %s", root), err,
			map[string]any{apperrors.ContextNode: root.String()})
	}
	res.overrides = append(patterns, b.overrides...)

	rootNode, err := res.visit(ctx, root, RootRequester)
	if err != nil {
		return nil, err
	}
	rootNode.IsRoot = true

	return &Graph{
		root:  rootNode,
		nodes: res.nodes,
		order: res.order,
	}, nil
}

func (res *resolution) lookup(ref recipe.Reference, requester string) (recipe.Recipe, error) {
	r, err := res.b.resolver.Get(ref)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.CodeOf(err),
			fmt.Sprintf("cannot resolve %s required by %s", ref, requester), err,
			map[string]any{
				apperrors.ContextNode:       ref.String(),
				apperrors.ContextRequesters: []string{requester},
			})
	}
	return r, nil
}

func (res *resolution) visit(ctx context.Context, ref recipe.Reference, requester string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTimeout, "graph resolution canceled", err)
	}

	if pending, ok := res.inProgress[ref.Name]; ok {
		if pending.Ref.Version != ref.Version {
			return nil, versionConflict(pending, ref, requester)
		}
		return nil, res.cycle(ref.Name)
	}

	if existing, ok := res.nodes[ref.Name]; ok {
		if existing.Ref.Version != ref.Version {
			return nil, versionConflict(existing, ref, requester)
		}
		if !slices.Contains(existing.Requesters, requester) {
			existing.Requesters = append(existing.Requesters, requester)
		}
		return existing, nil
	}

	r, err := res.lookup(ref, requester)
	if err != nil {
		return nil, err
	}
	meta := r.Metadata()
	if err := res.checkEngine(ref, meta); err != nil {
		return nil, err
	}

	node, err := res.configure(ctx, ref, r, requester == RootRequester)
	if err != nil {
		return nil, err
	}
	node.Requesters = []string{requester}

	reqs, err := res.requirements(ctx, node)
	if err != nil {
		return nil, err
	}

	res.inProgress[ref.Name] = node
	res.path = append(res.path, ref.Name)

	children := make([]*Node, 0, len(reqs))
	for _, req := range reqs {
		child, err := res.visit(ctx, req, ref.String())
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		node.Level = max(node.Level, child.Level+1)
	}

	res.path = res.path[:len(res.path)-1]
	delete(res.inProgress, ref.Name)

	node.Requires = reqs
	node.PackageID = packageID(node, children)
	res.nodes[ref.Name] = node
	res.order = append(res.order, node)

	slog.Debug("graph node resolved",
		"node", ref.String(),
		"package_id", node.PackageID,
		"level", node.Level)
	return node, nil
}

// versionConflict reports ref, wanted by requester, against the node already
// chosen for the same name.
func versionConflict(chosen *Node, ref recipe.Reference, requester string) error {
	return apperrors.NewWithContext(apperrors.ErrCodeVersionConflict,
		fmt.Sprintf("version conflict for %s: %s requires %s but %s requires %s",
			ref.Name, chosen.Requesters[0], chosen.Ref, requester, ref),
		map[string]any{
			apperrors.ContextNode:       ref.Name,
			apperrors.ContextVersions:   []string{chosen.Ref.Version, ref.Version},
			apperrors.ContextRequesters: []string{chosen.Requesters[0], requester},
		})
}

func (res *resolution) cycle(name string) error {
	start := slices.Index(res.path, name)
	loop := append(slices.Clone(res.path[start:]), name)
	return apperrors.NewWithContext(apperrors.ErrCodeDependencyCycle,
		fmt.Sprintf("dependency cycle: %s", strings.Join(loop, " -> ")),
		map[string]any{
			apperrors.ContextNode:  name,
			apperrors.ContextCycle: loop,
		})
}

func (res *resolution) checkEngine(ref recipe.Reference, meta *recipe.Metadata) error {
	if res.engine == nil || meta.RequiredEngineVersion == "" {
		return nil
	}
	c, err := version.ParseConstraint(meta.RequiredEngineVersion)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("recipe %s: invalid required engine version", ref), err,
			map[string]any{apperrors.ContextNode: ref.String()})
	}
	if !c.Check(*res.engine) {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("recipe %s requires engine %s, running %s", ref, c, res.engine),
			map[string]any{apperrors.ContextNode: ref.String()})
	}
	return nil
}

// configure narrows settings, resolves options, runs configure and freezes both.
func (res *resolution) configure(ctx context.Context, ref recipe.Reference, r recipe.Recipe, root bool) (*Node, error) {
	meta := r.Metadata()
	settings := res.b.settings.Narrow(meta.Settings)
	opts := options.NewSetFor(meta, root)
	opts.Apply(res.overrides)

	if c, ok := r.(recipe.Configurer); ok {
		cc := &recipe.ConfigureContext{Ref: ref, Settings: settings, Options: opts}
		if err := c.Configure(ctx, cc); err != nil {
			return nil, evaluationError(ref, recipe.PhaseConfigure, err)
		}
	}

	settings.Freeze()
	values, err := opts.Freeze()
	if err != nil {
		return nil, err
	}

	return &Node{
		Ref:      ref,
		Recipe:   r,
		Settings: settings,
		Options:  values,
	}, nil
}

func (res *resolution) requirements(ctx context.Context, node *Node) ([]recipe.Reference, error) {
	rq, ok := node.Recipe.(recipe.Requirer)
	if !ok {
		return nil, nil
	}
	ec := node.EvalContext()
	reqs, err := rq.Requirements(ctx, &ec)
	if err != nil {
		return nil, evaluationError(node.Ref, recipe.PhaseRequirements, err)
	}

	out := make([]recipe.Reference, 0, len(reqs))
	seen := set.New[recipe.Reference]()
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, evaluationError(node.Ref, recipe.PhaseRequirements, err)
		}
		if seen.Has(req) {
			continue
		}
		seen.Insert(req)
		out = append(out, req)
	}
	return out, nil
}

func evaluationError(ref recipe.Reference, phase string, err error) error {
	return apperrors.WrapWithContext(apperrors.ErrCodeRecipeEvaluation,
		fmt.Sprintf("%s of %s failed", phase, ref), err,
		map[string]any{
			apperrors.ContextNode:  ref.String(),
			apperrors.ContextPhase: phase,
		})
}
