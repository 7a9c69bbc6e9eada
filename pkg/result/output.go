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

package result

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/evaluator"
	"github.com/voicetuber/kiln/pkg/header"
	"github.com/voicetuber/kiln/pkg/recipe"
)

// Output contains the aggregated results of one build.
type Output struct {
	header.Header `json:",inline" yaml:",inline"`

	// Root is the reference the graph was resolved from.
	Root recipe.Reference `json:"root" yaml:"root"`

	// Results holds one entry per node in build order.
	Results []*evaluator.Result `json:"results" yaml:"results"`

	// TotalSize is the size in bytes of all built or cached package trees.
	TotalSize int64 `json:"totalSizeBytes" yaml:"totalSizeBytes"`

	// TotalDuration is the wall time of the build.
	TotalDuration time.Duration `json:"totalDuration" yaml:"totalDuration"`

	// StoreDir is the package store the build published into.
	StoreDir string `json:"storeDir" yaml:"storeDir"`

	// Errors contains the failures that aborted the build.
	Errors []NodeError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NodeError is the failure of one node.
type NodeError struct {
	Node  string `json:"node" yaml:"node"`
	Code  string `json:"code" yaml:"code"`
	Phase string `json:"phase,omitempty" yaml:"phase,omitempty"`
	Error string `json:"error" yaml:"error"`
}

// New returns an empty Output for root.
func New(root recipe.Reference, storeDir string) *Output {
	return &Output{
		Header: *header.New(
			header.WithKind(header.KindBuildResult),
			header.WithAPIVersion(header.APIVersion),
			header.WithMetadata("root", root.String()),
		),
		Root:     root,
		Results:  make([]*evaluator.Result, 0),
		StoreDir: storeDir,
	}
}

// Add appends res, recording its error when it failed.
func (o *Output) Add(res *evaluator.Result, err error) {
	o.Results = append(o.Results, res)
	if res.Status != evaluator.StatusFailed || err == nil {
		return
	}
	ne := NodeError{Node: res.Ref.String(), Code: string(apperrors.CodeOf(err)), Error: err.Error()}
	if se, ok := apperrors.As(err); ok {
		if p, ok := se.Context[apperrors.ContextPhase].(string); ok {
			ne.Phase = p
		}
	}
	o.Errors = append(o.Errors, ne)
}

// HasErrors returns true if any node failed.
func (o *Output) HasErrors() bool {
	return len(o.Errors) > 0
}

// Count returns the number of nodes with status s.
func (o *Output) Count(s evaluator.Status) int {
	count := 0
	for _, r := range o.Results {
		if r.Status == s {
			count++
		}
	}
	return count
}

// ByStatus returns node names grouped by status.
func (o *Output) ByStatus() map[evaluator.Status][]string {
	out := make(map[evaluator.Status][]string)
	for _, r := range o.Results {
		out[r.Status] = append(out[r.Status], r.Ref.Name)
	}
	return out
}

// Summary returns a human-readable summary of the build.
func (o *Output) Summary() string {
	return fmt.Sprintf(
		"Built %d, cached %d, failed %d, skipped %d of %d packages (%s) in %v.",
		o.Count(evaluator.StatusBuilt),
		o.Count(evaluator.StatusCached),
		o.Count(evaluator.StatusFailed),
		o.Count(evaluator.StatusSkipped),
		len(o.Results),
		formatBytes(o.TotalSize),
		o.TotalDuration.Round(time.Millisecond),
	)
}

// Details returns one line per node.
func (o *Output) Details() string {
	title := cases.Title(language.English)
	var b strings.Builder
	for _, r := range o.Results {
		fmt.Fprintf(&b, "%-8s %s", title.String(string(r.Status)), r.Ref)
		if r.Status == evaluator.StatusBuilt {
			fmt.Fprintf(&b, " in %v", r.Duration.Round(time.Millisecond))
		}
		if r.Error != "" {
			fmt.Fprintf(&b, ": %s", r.Error)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TreeSize returns the total size of the regular files under dir.
func TreeSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// formatBytes formats bytes into human-readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
