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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/voicetuber/kiln/pkg/evaluator"
	"github.com/voicetuber/kiln/pkg/result"
)

var (
	errorStyle   = color.New(color.FgRed, color.OpBold)
	successStyle = color.New(color.FgGreen, color.OpBold)
	nodeStyle    = color.New(color.FgCyan)
	phaseStyle   = color.New(color.FgYellow)
)

// progress reports node evaluation. On a terminal it drives a progress bar;
// otherwise it prints one line per finished node.
type progress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgress(out io.Writer, total int, enabled bool) *progress {
	p := &progress{out: out}
	if enabled && isTerminal(out) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("resolving"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

// observe receives phase transitions.
func (p *progress) observe(e evaluator.Event) {
	if p.bar == nil || e.Finished {
		return
	}
	p.bar.Describe(fmt.Sprintf("%s %s", e.Ref, e.Phase))
}

// done receives finished nodes.
func (p *progress) done(r *evaluator.Result) {
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", statusStyle(r.Status).Sprintf("%-8s", r.Status), nodeStyle.Sprint(r.Ref.String()))
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// printSummary writes the per-node details and the totals of out.
func printSummary(w io.Writer, out *result.Output) {
	fmt.Fprint(w, out.Details())
	for _, e := range out.Errors {
		fmt.Fprintf(w, "%s %s", errorStyle.Sprint(e.Code), nodeStyle.Sprint(e.Node))
		if e.Phase != "" {
			fmt.Fprintf(w, " in %s", phaseStyle.Sprint(e.Phase))
		}
		fmt.Fprintln(w)
	}
	if out.HasErrors() {
		fmt.Fprintln(w, errorStyle.Sprint(out.Summary()))
		return
	}
	fmt.Fprintln(w, successStyle.Sprint(out.Summary()))
}

func statusStyle(s evaluator.Status) color.Style {
	switch s {
	case evaluator.StatusBuilt:
		return successStyle
	case evaluator.StatusFailed:
		return errorStyle
	case evaluator.StatusSkipped:
		return phaseStyle
	default:
		return nodeStyle
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
