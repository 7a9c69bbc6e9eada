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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/voicetuber/kiln/pkg/artifact"
	"github.com/voicetuber/kiln/pkg/defaults"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/evaluator"
	"github.com/voicetuber/kiln/pkg/graph"
	"github.com/voicetuber/kiln/pkg/result"
)

// Orchestrator drives the evaluation of every node of a graph.
type Orchestrator struct {
	eval        *evaluator.Evaluator
	jobs        int
	nodeTimeout time.Duration
	onResult    func(*evaluator.Result)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJobs bounds the number of nodes building at once. Values below one
// are ignored.
func WithJobs(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.jobs = n
		}
	}
}

// WithNodeTimeout bounds the evaluation of a single node.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.nodeTimeout = d
		}
	}
}

// WithResultHandler registers fn to be called as each node finishes,
// skipped nodes included. Calls are serialized.
func WithResultHandler(fn func(*evaluator.Result)) Option {
	return func(o *Orchestrator) {
		o.onResult = fn
	}
}

// New returns an Orchestrator evaluating nodes with eval.
func New(eval *evaluator.Evaluator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eval:        eval,
		jobs:        defaults.DefaultJobs,
		nodeTimeout: defaults.NodeBuildTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the shared state of one Run call.
type run struct {
	g    *graph.Graph
	sem  *semaphore.Weighted
	done map[string]chan struct{}

	mu        sync.Mutex
	published map[string]*artifact.Package
	results   map[string]*evaluator.Result
	errs      map[string]error
	failed    bool
}

func (r *run) aborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Run builds every node of g. The returned Output lists every node in
// build order; the error is the first node failure, if any.
func (o *Orchestrator) Run(ctx context.Context, g *graph.Graph) (*result.Output, error) {
	start := time.Now()
	nodes := g.Nodes()

	r := &run{
		g:         g,
		sem:       semaphore.NewWeighted(int64(o.jobs)),
		done:      make(map[string]chan struct{}, len(nodes)),
		published: make(map[string]*artifact.Package, len(nodes)),
		results:   make(map[string]*evaluator.Result, len(nodes)),
		errs:      make(map[string]error),
	}
	for _, n := range nodes {
		r.done[n.Name()] = make(chan struct{})
	}

	slog.Info("building graph",
		"root", g.Root().Ref.String(),
		"nodes", len(nodes),
		"jobs", o.jobs,
	)

	eg, gctx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		eg.Go(func() error {
			defer close(r.done[n.Name()])
			return o.node(gctx, r, n)
		})
	}
	err := eg.Wait()
	if err == nil && ctx.Err() != nil {
		err = apperrors.Wrap(apperrors.ErrCodeTimeout, "build canceled", ctx.Err())
	}

	out := result.New(g.Root().Ref, o.eval.Store().Root())
	for _, n := range nodes {
		res := r.results[n.Name()]
		out.Add(res, r.errs[n.Name()])
		if res.Package != nil {
			size, serr := result.TreeSize(res.Package.Dir)
			if serr != nil {
				slog.Warn("failed to measure package", "node", n.Ref.String(), "error", serr)
			}
			out.TotalSize += size
		}
	}
	out.TotalDuration = time.Since(start)
	runDuration.Observe(out.TotalDuration.Seconds())

	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		slog.Error("graph build failed", "root", g.Root().Ref.String(), "error", err)
		return out, err
	}
	runsTotal.WithLabelValues("success").Inc()
	slog.Info("graph build complete",
		"root", g.Root().Ref.String(),
		"built", out.Count(evaluator.StatusBuilt),
		"cached", out.Count(evaluator.StatusCached),
		"duration", out.TotalDuration,
	)
	return out, nil
}

// node evaluates n once its dependencies have published.
func (o *Orchestrator) node(ctx context.Context, r *run, n *graph.Node) error {
	for _, dep := range n.Requires {
		select {
		case <-r.done[dep.Name]:
		case <-ctx.Done():
			o.finish(r, n, skipped(n, "build aborted"), nil)
			return nil
		}
		r.mu.Lock()
		_, ok := r.published[dep.Name]
		r.mu.Unlock()
		if !ok {
			o.finish(r, n, skipped(n, fmt.Sprintf("dependency %s did not publish", dep)), nil)
			return nil
		}
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		o.finish(r, n, skipped(n, "build aborted"), nil)
		return nil
	}
	defer r.sem.Release(1)
	if ctx.Err() != nil {
		o.finish(r, n, skipped(n, "build aborted"), nil)
		return nil
	}

	nodesInFlight.Inc()
	defer nodesInFlight.Dec()

	nctx, cancel := context.WithTimeout(ctx, o.nodeTimeout)
	defer cancel()
	res, err := o.eval.Evaluate(nctx, r.g, n, r.snapshot(n))
	if err != nil {
		// A node canceled because another node failed did not fail itself.
		// Any other error after the abort is still its own failure.
		if ctx.Err() != nil && r.aborted() && errors.Is(err, context.Canceled) {
			o.finish(r, n, skipped(n, "build aborted"), nil)
			return nil
		}
		o.finish(r, n, res, err)
		return err
	}
	o.finish(r, n, res, nil)
	return nil
}

// snapshot returns the published packages n may see.
func (r *run) snapshot(n *graph.Node) map[string]*artifact.Package {
	r.mu.Lock()
	defer r.mu.Unlock()
	deps := r.g.Transitive(n.Name())
	out := make(map[string]*artifact.Package, len(deps))
	for _, d := range deps {
		if pkg, ok := r.published[d.Name()]; ok {
			out[d.Name()] = pkg
		}
	}
	return out
}

func (o *Orchestrator) finish(r *run, n *graph.Node, res *evaluator.Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[n.Name()] = res
	if err != nil {
		r.errs[n.Name()] = err
		r.failed = true
	} else if res.Package != nil {
		r.published[n.Name()] = res.Package
	}

	slog.Debug("node finished",
		"node", n.Ref.String(),
		"status", string(res.Status),
		"duration", res.Duration,
	)
	if o.onResult != nil {
		o.onResult(res)
	}
}

func skipped(n *graph.Node, reason string) *evaluator.Result {
	return &evaluator.Result{
		Ref:       n.Ref,
		PackageID: n.PackageID,
		Status:    evaluator.StatusSkipped,
		Error:     reason,
	}
}
