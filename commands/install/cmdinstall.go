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

// Package install implements the `install` command: C1 through C7 for
// one invocation (spec §6).
package install

import (
	"context"

	"github.com/spf13/cobra"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/engine"
)

// NewRunner returns a command runner for `install`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "install",
		Short: "resolve and materialize all declared packages",
		RunE:  r.runE,
	}
	c.Flags().BoolVar(&r.noGitignore, "no-gitignore", false,
		"do not maintain the workspace ignore file")
	c.Flags().BoolVar(&r.noResolveDeps, "no-resolve-deps", false,
		"install only direct root entries, without recursing into their manifests")
	r.Command = c
	return r
}

// NewCommand returns the cobra.Command for `install`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the flag values and shared context for `install`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	noGitignore   bool
	noResolveDeps bool
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op pmerrors.Op = "cmdinstall.runE"

	eng, err := engine.New(".")
	if err != nil {
		return pmerrors.E(op, err)
	}

	if _, err := eng.Install(r.ctx, r.noResolveDeps, r.noGitignore); err != nil {
		return pmerrors.E(op, err)
	}
	return nil
}
