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

// Package engine wires C1 through C7 together for the command layer:
// resolving config, constructing the URL resolver and fetcher, and
// driving discovery, installation, and workspace maintenance for one
// invocation.
package engine

import (
	"context"
	"path/filepath"

	"github.com/Warrenn/git-pm/internal/config"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/gitutil"
	"github.com/Warrenn/git-pm/internal/install"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/resolve"
	"github.com/Warrenn/git-pm/internal/urlresolve"
	"github.com/Warrenn/git-pm/internal/workspace"
)

// Engine holds the resolved configuration for one invocation rooted at
// WorkspaceRoot.
type Engine struct {
	WorkspaceRoot string
	Config        config.Config
	Hints         config.AuthHints
}

// New resolves C1 for workspaceRoot and returns an Engine ready to drive
// the remaining components.
func New(workspaceRoot string) (*Engine, error) {
	const op pmerrors.Op = "engine.New"
	cfg, err := config.Resolve(workspaceRoot)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}
	return &Engine{
		WorkspaceRoot: workspaceRoot,
		Config:        cfg,
		Hints:         config.ResolveAuthHints(cfg),
	}, nil
}

// PackagesDir returns the packages directory configured for this
// workspace, resolved relative to WorkspaceRoot.
func (e *Engine) PackagesDir() string {
	dir := e.Config.PackagesDir
	if dir == "" {
		dir = ".git-packages"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(e.WorkspaceRoot, dir)
}

func (e *Engine) fetcher() *gitutil.Fetcher {
	resolveURL := func(repo manifest.RepoID) urlresolve.FetchURL {
		return urlresolve.Resolve(repo, e.Config, e.Hints)
	}
	return gitutil.NewFetcher(e.Config.EffectiveCacheDir(), resolveURL)
}

// Resolve runs C5 over the effective manifest (root merged with local
// override), honoring noRecurse for `install --no-resolve-deps`.
func (e *Engine) Resolve(ctx context.Context, noRecurse bool) (resolve.Graph, error) {
	const op pmerrors.Op = "engine.Resolve"

	rootM, err := manifest.Load(filepath.Join(e.WorkspaceRoot, manifest.FileName))
	if err != nil {
		return resolve.Graph{}, pmerrors.E(op, err)
	}
	overrideM, err := manifest.Load(filepath.Join(e.WorkspaceRoot, manifest.OverrideFileName))
	if err != nil {
		return resolve.Graph{}, pmerrors.E(op, err)
	}

	effective := manifest.Merge(rootM.Specs(), overrideM.Specs())
	overrides := overrideM.Specs()

	resolver := resolve.NewResolver(e.fetcher(), noRecurse)
	graph, err := resolver.Resolve(ctx, effective, overrides)
	if err != nil {
		return resolve.Graph{}, pmerrors.E(op, err)
	}
	return graph, nil
}

// Install runs C5 followed by C6 and C7 (env file + optional ignore-file
// maintenance), implementing the `install` command contract.
func (e *Engine) Install(ctx context.Context, noResolveDeps, noGitignore bool) (install.Summary, error) {
	const op pmerrors.Op = "engine.Install"

	graph, err := e.Resolve(ctx, noResolveDeps)
	if err != nil {
		return install.Summary{}, pmerrors.E(op, err)
	}

	installer := install.New(e.PackagesDir())
	summary, err := installer.Install(ctx, graph)
	if err != nil {
		return install.Summary{}, pmerrors.E(op, err)
	}

	if err := workspace.WriteEnvFile(e.WorkspaceRoot, e.PackagesDir(), graph.Packages); err != nil {
		return install.Summary{}, pmerrors.E(op, err)
	}

	if !noGitignore {
		ignorePath := filepath.Join(e.WorkspaceRoot, workspace.IgnoreFileName)
		if err := workspace.EnsureIgnoreEntries(ignorePath, workspace.ManagedEntries(e.PackagesDir())); err != nil {
			return install.Summary{}, pmerrors.E(op, err)
		}
	}

	pr := printer.FromContextOrDie(ctx)
	pr.Printf("packages installed at %s\n", e.PackagesDir())
	return summary, nil
}

// Remove performs the cascading removal of spec §4.7: drop name from the
// manifests, recompute the surviving required set, prune anything in
// packages_dir no longer reachable, and regenerate the env file.
func (e *Engine) Remove(ctx context.Context, name string) ([]string, error) {
	const op pmerrors.Op = "engine.Remove"

	if err := workspace.RemoveFromManifests(e.WorkspaceRoot, name); err != nil {
		return nil, pmerrors.E(op, err)
	}

	graph, err := e.Resolve(ctx, false)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}

	removed, err := workspace.PruneUnreferenced(e.PackagesDir(), requiredSet(graph))
	if err != nil {
		return nil, pmerrors.E(op, err)
	}

	if err := workspace.WriteEnvFile(e.WorkspaceRoot, e.PackagesDir(), graph.Packages); err != nil {
		return nil, pmerrors.E(op, err)
	}
	return removed, nil
}

func requiredSet(graph resolve.Graph) map[string]bool {
	out := make(map[string]bool, len(graph.Packages))
	for name := range graph.Packages {
		out[name] = true
	}
	return out
}
