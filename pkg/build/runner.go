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

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/voicetuber/kiln/pkg/errors"
)

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string

	// Env is appended to the current process environment.
	Env []string

	// Stdout and Stderr override the runner's writers when set.
	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	stdout    io.Writer
	stderr    io.Writer
	waitDelay time.Duration
}

// RunnerOption configures an ExecRunner.
type RunnerOption func(*ExecRunner)

// WithOutput sets the default writers for child output.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *ExecRunner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithWaitDelay bounds how long Run waits for output pipes after the
// process group was killed.
func WithWaitDelay(d time.Duration) RunnerOption {
	return func(r *ExecRunner) {
		r.waitDelay = d
	}
}

// NewExecRunner returns a runner that discards output unless configured.
func NewExecRunner(opts ...RunnerOption) *ExecRunner {
	r := &ExecRunner{
		stdout:    io.Discard,
		stderr:    io.Discard,
		waitDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts cmd in its own process group and waits for it. Canceling ctx
// kills the group.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeTimeout, fmt.Sprintf("%s not started", c.Name), err)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdin = nil
	cmd.Stdout = firstWriter(c.Stdout, r.stdout)
	cmd.Stderr = firstWriter(c.Stderr, r.stderr)
	cmd.WaitDelay = r.waitDelay
	isolate(cmd)

	slog.Debug("running command", "command", c.String(), "dir", c.Dir)
	start := time.Now()

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.Wrap(apperrors.ErrCodeTimeout,
			fmt.Sprintf("%s aborted after %s", c.Name, time.Since(start).Round(time.Millisecond)), ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %w", c, exitErr.ExitCode(), err)
		}
		return fmt.Errorf("failed to run %s: %w", c, err)
	}
	return nil
}

func firstWriter(a, b io.Writer) io.Writer {
	if a != nil {
		return a
	}
	return b
}
