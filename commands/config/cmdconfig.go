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

// Package config implements the `config` command: reading and writing a
// single key in project- or user-scope config, and listing the effective
// merged values with their source (spec §6).
package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	pmconfig "github.com/Warrenn/git-pm/internal/config"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/printer"
)

// NewRunner returns a command runner for `config`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "read or write a single git-pm config key",
		Args:  cobra.MaximumNArgs(2),
		RunE:  r.runE,
	}
	c.Flags().BoolVar(&r.list, "list", false, "print effective merged values with their source")
	c.Flags().BoolVar(&r.unset, "unset", false, "remove the given key from the selected scope")
	c.Flags().BoolVar(&r.global, "global", false, "operate on the user-scope config instead of project-scope")
	r.Command = c
	return r
}

// NewCommand returns the cobra.Command for `config`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the flag values and shared context for `config`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	list   bool
	unset  bool
	global bool
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op pmerrors.Op = "cmdconfig.runE"

	if r.list {
		return r.runList()
	}

	if len(args) == 0 {
		return pmerrors.E(op, pmerrors.MissingParam, fmt.Errorf("config requires a key, or --list"))
	}
	key := args[0]
	if !pmconfig.IsValidKey(key) {
		return pmerrors.E(op, pmerrors.UnknownConfigKey, fmt.Errorf("unknown config key %q", key))
	}

	path, err := r.scopePath()
	if err != nil {
		return pmerrors.E(op, err)
	}

	if r.unset {
		if err := pmconfig.UnsetKey(path, key); err != nil {
			return pmerrors.E(op, err)
		}
		return nil
	}

	if len(args) == 1 {
		pr := printer.FromContextOrDie(r.ctx)
		value, err := pmconfig.GetKey(".", key)
		if err != nil {
			return pmerrors.E(op, err)
		}
		pr.Printf("%s\n", value)
		return nil
	}

	if err := pmconfig.SetKey(path, key, args[1]); err != nil {
		return pmerrors.E(op, err)
	}
	return nil
}

func (r *Runner) scopePath() (string, error) {
	if r.global {
		return pmconfig.UserConfigPath()
	}
	return pmconfig.ProjectConfigPath("."), nil
}

func (r *Runner) runList() error {
	const op pmerrors.Op = "cmdconfig.runList"
	pr := printer.FromContextOrDie(r.ctx)

	rows, err := pmconfig.EffectiveWithSource(".")
	if err != nil {
		return pmerrors.E(op, err)
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"key", "value", "source"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, rows[k].Value, rows[k].Source})
	}
	pr.Printf("%s\n", t.Render())
	return nil
}
