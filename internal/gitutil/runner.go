// Copyright 2024 The git-pm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gitutil implements C4, the cache/fetcher: it drives the `git`
// subprocess to resolve refs and materialize sparse checkouts into a
// content-addressed cache (spec §4.4).
package gitutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"k8s.io/klog/v2"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

// Runner runs git commands in a fixed directory, exactly like kpt's
// GitLocalRunner.
type Runner struct {
	gitPath     string
	Dir         string
	ExtraHeader string // passed as -c http.extraheader=<value> on every invocation, never persisted
}

// NewRunner returns a Runner rooted at dir, failing fast if `git` is not
// on PATH.
func NewRunner(dir string) (*Runner, error) {
	const op pmerrors.Op = "gitutil.NewRunner"
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, pmerrors.E(op, pmerrors.Git, fmt.Errorf("no 'git' program on path: %w", err))
	}
	return &Runner{gitPath: p, Dir: dir}, nil
}

// RunResult carries the captured output of a git invocation.
type RunResult struct {
	Stdout string
	Stderr string
}

// Run runs `git <args...>` in g.Dir, omitting the leading "git".
func (g *Runner) Run(ctx context.Context, args ...string) (RunResult, error) {
	const op pmerrors.Op = "gitutil.Run"

	fullArgs := args
	if g.ExtraHeader != "" {
		fullArgs = append([]string{"-c", "http.extraheader=" + g.ExtraHeader}, args...)
	}

	klog.V(2).Infof("git %s (dir=%s)", strings.Join(fullArgs, " "), g.Dir)

	cmd := exec.CommandContext(ctx, g.gitPath, fullArgs...)
	cmd.Dir = g.Dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = io.Writer(&stdout)
	cmd.Stderr = io.Writer(&stderr)

	if err := cmd.Run(); err != nil {
		return RunResult{}, pmerrors.E(op, pmerrors.Git, &ExecError{
			Args:   args,
			Err:    err,
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		})
	}
	return RunResult{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// ExecError wraps a failed git invocation with its captured output.
type ExecError struct {
	Args   []string
	Err    error
	Stdout string
	Stderr string
}

func (e *ExecError) Error() string {
	b := new(strings.Builder)
	b.WriteString("git ")
	b.WriteString(strings.Join(e.Args, " "))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.Stderr))
	}
	return b.String()
}

func (e *ExecError) Unwrap() error { return e.Err }
