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

// Package remove implements the `remove` command: cascading removal of
// one package per spec §4.7.
package remove

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Warrenn/git-pm/internal/engine"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/printer"
)

// NewRunner returns a command runner for `remove`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "remove <name>",
		Short: "remove a package and anything it alone required",
		Args:  cobra.ExactArgs(1),
		RunE:  r.runE,
	}
	c.Flags().BoolVarP(&r.yes, "yes", "y", false, "do not prompt for confirmation")
	r.Command = c
	return r
}

// NewCommand returns the cobra.Command for `remove`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the flag values and shared context for `remove`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	yes bool
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op pmerrors.Op = "cmdremove.runE"
	pr := printer.FromContextOrDie(r.ctx)
	name := args[0]

	if !r.yes && !confirm(name) {
		pr.Printf("aborted\n")
		return nil
	}

	eng, err := engine.New(".")
	if err != nil {
		return pmerrors.E(op, err)
	}

	removed, err := eng.Remove(r.ctx, name)
	if err != nil {
		return pmerrors.E(op, err)
	}

	pr.Event("removed", name, "")
	for _, dep := range removed {
		pr.Event("removed", dep, "no longer required")
	}
	return nil
}

func confirm(name string) bool {
	fmt.Printf("remove %q and any dependency it alone required? [y/N] ", name)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return line == "y\n" || line == "Y\n" || line == "yes\n"
}
