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

// Package resolve implements C5, the dependency resolver: recursive
// discovery of a package graph from root specs, branch pinning,
// collision/cycle detection, and topological ordering (spec §4.5).
package resolve

import (
	"sort"

	"github.com/Warrenn/git-pm/internal/manifest"
)

// ResolvedPackage is the outcome of discovery for one package (spec §3).
// Packages refer to each other only by name, never by pointer, so the
// graph stays trivially serializable and free of reference cycles (spec
// §9's "cycle-safe ownership").
type ResolvedPackage struct {
	Name string
	Source manifest.PackageSource

	// ResolvedRef is always a Tag or Commit, never a Branch.
	ResolvedRef manifest.Ref
	// OriginalRef is the pre-resolution ref, informational.
	OriginalRef manifest.Ref

	CommitSHA string

	// DirectDeps holds the names (not specs) of first-level dependencies.
	DirectDeps map[string]bool

	CacheKey string

	// MaterializedPath is set after fetch: the absolute path of the
	// cached sparse subtree (or, for Local sources, the local path).
	MaterializedPath string
}

// SortedDirectDeps returns DirectDeps as a deterministically ordered
// slice, used for display and for deterministic child-link creation.
func (rp ResolvedPackage) SortedDirectDeps() []string {
	out := make([]string, 0, len(rp.DirectDeps))
	for name := range rp.DirectDeps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Graph is the full output of C5: a deduplicated package set plus a
// topological ordering over it (spec §4.5).
type Graph struct {
	Packages map[string]*ResolvedPackage
	Order    []string // topologically sorted names; deps before dependents
}

// Ordered returns the resolved packages in topological order.
func (g Graph) Ordered() []*ResolvedPackage {
	out := make([]*ResolvedPackage, 0, len(g.Order))
	for _, name := range g.Order {
		out = append(out, g.Packages[name])
	}
	return out
}
