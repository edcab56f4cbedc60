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

// Package clean implements the `clean` command: deleting packages_dir
// and the generated environment file, leaving manifests and cache intact
// (spec §6).
package clean

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Warrenn/git-pm/internal/engine"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/workspace"
)

// NewRunner returns a command runner for `clean`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	r.Command = &cobra.Command{
		Use:   "clean",
		Short: "delete the packages directory and generated environment file",
		RunE:  r.runE,
	}
	return r
}

// NewCommand returns the cobra.Command for `clean`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the shared context for `clean`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op pmerrors.Op = "cmdclean.runE"
	pr := printer.FromContextOrDie(r.ctx)

	eng, err := engine.New(".")
	if err != nil {
		return pmerrors.E(op, err)
	}

	if err := workspace.Clean(eng.WorkspaceRoot, eng.PackagesDir()); err != nil {
		return pmerrors.E(op, err)
	}

	pr.Printf("cleaned %s\n", eng.PackagesDir())
	return nil
}
