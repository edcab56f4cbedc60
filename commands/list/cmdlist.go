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

// Package list implements the `list` command: a read-only inspection of
// the resolved dependency graph of the current workspace, printed as a
// tree, mirroring kpt's own dedicated tree-inspection command
// (thirdparty/cmdconfig/commands/cmdtree) kept separate from get/update.
package list

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/Warrenn/git-pm/internal/engine"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/resolve"
)

// NewRunner returns a command runner for `list`.
func NewRunner(ctx context.Context) *Runner {
	r := &Runner{ctx: ctx}
	r.Command = &cobra.Command{
		Use:   "list",
		Short: "print the resolved dependency graph as a tree",
		RunE:  r.runE,
	}
	return r
}

// NewCommand returns the cobra.Command for `list`.
func NewCommand(ctx context.Context) *cobra.Command {
	return NewRunner(ctx).Command
}

// Runner holds the shared context for `list`.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, _ []string) error {
	const op pmerrors.Op = "cmdlist.runE"
	pr := printer.FromContextOrDie(r.ctx)

	eng, err := engine.New(".")
	if err != nil {
		return pmerrors.E(op, err)
	}

	graph, err := eng.Resolve(r.ctx, false)
	if err != nil {
		return pmerrors.E(op, err)
	}

	tree := treeprint.New()
	tree.SetValue(workspaceLabel(eng.WorkspaceRoot))

	visited := map[string]treeprint.Tree{}
	for _, name := range graph.Order {
		pkg := graph.Packages[name]
		if len(dependents(graph, name)) > 0 {
			// printed as a child of its dependent below
			continue
		}
		addBranch(tree, graph, pkg, visited)
	}

	pr.Printf("%s\n", tree.String())
	return nil
}

// addBranch renders pkg and, recursively, its direct dependencies. A
// package reachable from more than one parent is rendered under each
// parent, the same way a dependency tree over a DAG (rather than a
// strict tree) is conventionally flattened for display.
func addBranch(parent treeprint.Tree, graph resolve.Graph, pkg *resolve.ResolvedPackage, visited map[string]treeprint.Tree) treeprint.Tree {
	meta := fmt.Sprintf("%s @ %s", pkg.ResolvedRef, shortSHA(pkg.CommitSHA))
	branch := parent.AddMetaBranch(pkg.Name, meta)
	visited[pkg.Name] = branch

	for _, dep := range pkg.SortedDirectDeps() {
		child, ok := graph.Packages[dep]
		if !ok {
			continue
		}
		addBranch(branch, graph, child, visited)
	}
	return branch
}

// dependents returns the names of packages in graph that declare name as
// a direct dependency, used to find the root packages to start the tree
// from (those no other resolved package depends on).
func dependents(graph resolve.Graph, name string) []string {
	var out []string
	for _, other := range graph.Packages {
		if other.DirectDeps[name] {
			out = append(out, other.Name)
		}
	}
	return out
}

func shortSHA(sha string) string {
	if len(sha) > 10 {
		return sha[:10]
	}
	return sha
}

func workspaceLabel(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return filepath.Base(abs)
}
