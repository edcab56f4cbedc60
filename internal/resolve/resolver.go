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

package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toposort "github.com/philopon/go-toposort"
	"k8s.io/klog/v2"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/gitutil"
	"github.com/Warrenn/git-pm/internal/manifest"
)

// Resolver is C5. One Resolver is used per install invocation.
type Resolver struct {
	fetcher   *gitutil.Fetcher
	noRecurse bool

	packages       map[string]*ResolvedPackage
	discoveryOrder []string
}

// NewResolver constructs a Resolver. noRecurse implements
// `install --no-resolve-deps`: discovery stops after the direct root
// entries, without reading any nested manifest (spec §6).
func NewResolver(fetcher *gitutil.Fetcher, noRecurse bool) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		noRecurse: noRecurse,
		packages:  map[string]*ResolvedPackage{},
	}
}

// Resolve runs discovery from rootSpecs and returns the resolved graph in
// topological order (spec §4.5).
func (r *Resolver) Resolve(ctx context.Context, rootSpecs map[string]manifest.PackageSpec, rootOverrides map[string]manifest.PackageSpec) (Graph, error) {
	const op pmerrors.Op = "resolve.Resolve"

	for _, name := range sortedKeys(rootSpecs) {
		if err := r.discover(ctx, rootSpecs[name], nil, rootOverrides); err != nil {
			return Graph{}, pmerrors.E(op, err)
		}
	}

	order, err := r.toposort()
	if err != nil {
		return Graph{}, pmerrors.E(op, err)
	}

	return Graph{Packages: r.packages, Order: order}, nil
}

// discover implements the recursive algorithm of spec §4.5.
func (r *Resolver) discover(ctx context.Context, spec manifest.PackageSpec, parentChain []string, rootOverrides map[string]manifest.PackageSpec) error {
	const op pmerrors.Op = "resolve.discover"

	for _, ancestor := range parentChain {
		if ancestor == spec.Name {
			chain := append(append([]string{}, parentChain...), spec.Name)
			return pmerrors.E(op, pmerrors.CircularDependency,
				fmt.Errorf("circular dependency: %s", strings.Join(chain, " -> ")))
		}
	}

	if existing, ok := r.packages[spec.Name]; ok {
		if !(manifest.PackageSpec{Source: existing.Source}).Equal(spec) {
			return pmerrors.E(op, pmerrors.PackageNameCollision,
				fmt.Errorf("package %q claimed by two different sources", spec.Name))
		}
		return nil
	}

	// Local-override short-circuit (spec §4.5): before any remote access,
	// check whether this name is covered by the root override map. This
	// only applies at the root manifest's own entries — a nested package
	// that happens to share a name with a root override is resolved
	// normally, not short-circuited.
	effective := spec
	if len(parentChain) == 0 {
		if override, ok := rootOverrides[spec.Name]; ok {
			effective = manifest.PackageSpec{Name: spec.Name, Source: override.Source}
		}
	}

	rp, materializedPath, err := r.materialize(ctx, effective)
	if err != nil {
		return pmerrors.E(op, err)
	}

	r.packages[spec.Name] = rp
	r.discoveryOrder = append(r.discoveryOrder, spec.Name)

	if r.noRecurse {
		return nil
	}

	nested, err := manifest.Load(filepath.Join(materializedPath, manifest.FileName))
	if err != nil {
		return pmerrors.E(op, err)
	}
	nestedSpecs := nested.Specs()
	rp.DirectDeps = namesOf(nestedSpecs)

	childChain := append(append([]string{}, parentChain...), spec.Name)
	for _, name := range sortedKeys(nestedSpecs) {
		if err := r.discover(ctx, nestedSpecs[name], childChain, rootOverrides); err != nil {
			return err
		}
	}
	return nil
}

// materialize resolves a single spec's source into a ResolvedPackage,
// without touching its nested manifest.
func (r *Resolver) materialize(ctx context.Context, spec manifest.PackageSpec) (*ResolvedPackage, string, error) {
	const op pmerrors.Op = "resolve.materialize"

	if spec.Source.Kind == manifest.SourceLocal {
		info, err := os.Stat(spec.Source.LocalPath)
		if err != nil || !info.IsDir() {
			return nil, "", pmerrors.E(op, pmerrors.InvalidParam,
				fmt.Errorf("local source %q does not exist or is not a directory", spec.Source.LocalPath))
		}
		sentinel := manifest.Commit("local")
		return &ResolvedPackage{
			Name:             spec.Name,
			Source:           spec.Source,
			ResolvedRef:      sentinel,
			OriginalRef:      sentinel,
			CommitSHA:        "local",
			DirectDeps:       map[string]bool{},
			MaterializedPath: spec.Source.LocalPath,
		}, spec.Source.LocalPath, nil
	}

	originalRef := spec.Source.Ref
	handle, err := r.fetcher.EnsureCheckout(ctx, spec.Source.Repo, spec.Source.Path, originalRef)
	if err != nil {
		return nil, "", pmerrors.E(op, err)
	}

	resolvedRef := originalRef
	if originalRef.Kind == manifest.RefBranch {
		resolvedRef = manifest.Commit(handle.ResolvedCommit)
	}
	cacheKey := gitutil.CacheKey(spec.Source.Repo, spec.Source.Path, resolvedRef)

	klog.V(2).Infof("resolved %s -> %s @ %s (commit %s)", spec.Name, spec.Source.Repo, resolvedRef, handle.ResolvedCommit)

	return &ResolvedPackage{
		Name:             spec.Name,
		Source:           spec.Source,
		ResolvedRef:      resolvedRef,
		OriginalRef:      originalRef,
		CommitSHA:        handle.ResolvedCommit,
		DirectDeps:       map[string]bool{},
		CacheKey:         cacheKey,
		MaterializedPath: handle.LocalDir,
	}, handle.LocalDir, nil
}

// toposort produces the final install order: dependencies emitted before
// their dependents. Nodes are added to the underlying graph in discovery
// order (depth-first from the roots, each manifest's names visited in
// sorted order), so ties are broken by that order. The order in which
// names are written in a manifest file is not preserved.
func (r *Resolver) toposort() ([]string, error) {
	const op pmerrors.Op = "resolve.toposort"

	graph := toposort.NewGraph(len(r.discoveryOrder))
	for _, name := range r.discoveryOrder {
		graph.AddNode(name)
	}
	for _, name := range r.discoveryOrder {
		pkg := r.packages[name]
		for _, dep := range pkg.SortedDirectDeps() {
			graph.AddEdge(dep, name)
		}
	}

	order, ok := graph.Toposort()
	if !ok {
		return nil, pmerrors.E(op, pmerrors.CircularDependency,
			fmt.Errorf("dependency graph contains a cycle"))
	}
	return order, nil
}

func namesOf(specs map[string]manifest.PackageSpec) map[string]bool {
	out := make(map[string]bool, len(specs))
	for name := range specs {
		out[name] = true
	}
	return out
}

func sortedKeys(m map[string]manifest.PackageSpec) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
