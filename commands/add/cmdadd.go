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

// Package add implements the `add` command: inserting or replacing one
// entry in the root manifest without installing (spec §6).
package add

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/urlresolve"
)

// NewRunner returns a command runner for `add`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:   "add <name> <repo>",
		Short: "insert or replace one package entry in the manifest",
		Args:  cobra.ExactArgs(2),
		RunE:  r.runE,
	}
	c.Flags().StringVar(&r.path, "path", "", "subpath within the repository")
	c.Flags().StringVar(&r.refType, "ref-type", "branch", "one of tag, branch, commit")
	c.Flags().StringVar(&r.refValue, "ref-value", "main", "the tag, branch, or commit value")
	r.Command = c
	return r
}

// NewCommand returns the cobra.Command for `add`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the flag values and shared context for `add`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	path     string
	refType  string
	refValue string
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op pmerrors.Op = "cmdadd.runE"
	pr := printer.FromContextOrDie(r.ctx)

	name, rawRepo := args[0], args[1]

	repo, err := urlresolve.ParseRepoID(rawRepo)
	if err != nil {
		return pmerrors.E(op, pmerrors.InvalidParam, err)
	}

	ref, err := parseRef(r.refType, r.refValue)
	if err != nil {
		return pmerrors.E(op, pmerrors.InvalidParam, err)
	}

	m, err := manifest.Load(manifest.FileName)
	if err != nil {
		return pmerrors.E(op, err)
	}
	if m.Packages == nil {
		m.Packages = map[string]manifest.PackageSource{}
	}
	m.Packages[name] = manifest.PackageSource{
		Kind: manifest.SourceGit,
		Repo: repo,
		Path: strings.Trim(r.path, "/"),
		Ref:  ref,
	}

	if err := manifest.Save(manifest.FileName, m); err != nil {
		return pmerrors.E(op, err)
	}

	pr.Printf("added %s -> %s\n", name, repo)
	return nil
}

func parseRef(kind, value string) (manifest.Ref, error) {
	switch kind {
	case "tag":
		return manifest.Tag(value), nil
	case "branch":
		return manifest.Branch(value), nil
	case "commit":
		return manifest.Commit(value), nil
	default:
		return manifest.Ref{}, fmt.Errorf("unknown ref type %q, want one of tag, branch, commit", kind)
	}
}
