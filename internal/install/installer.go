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

// Package install implements C6, the installer: materializing each
// resolved package into the flat packages directory and wiring the
// per-package .git-packages child links that let a package see its
// direct dependencies at a stable relative path (spec §4.6).
package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/otiai10/copy"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/resolve"
)

// Installer runs the two passes of C6 for one invocation.
type Installer struct {
	packagesDir    string
	probed         bool
	symlinksUsable bool
}

// New constructs an Installer rooted at packagesDir, the resolved
// `packages_dir` from Config.
func New(packagesDir string) *Installer {
	return &Installer{packagesDir: packagesDir}
}

// Summary is the final (installed, total) count emitted after Pass 2
// (spec §4.6: "a final summary (installed, total)").
type Summary struct {
	Installed int
	Total     int
}

// Install runs Pass 1 then Pass 2 over graph, in topological order.
func (in *Installer) Install(ctx context.Context, graph resolve.Graph) (Summary, error) {
	const op pmerrors.Op = "install.Install"
	pr := printer.FromContextOrDie(ctx)

	if err := os.MkdirAll(in.packagesDir, 0755); err != nil {
		return Summary{}, pmerrors.E(op, pmerrors.IO, err)
	}

	ordered := graph.Ordered()

	for _, pkg := range ordered {
		pr.Event("installing", pkg.Name, "")
		if err := in.materialize(pkg, pr); err != nil {
			return Summary{}, pmerrors.E(op, err)
		}
	}

	for _, pkg := range ordered {
		if len(pkg.DirectDeps) == 0 {
			continue
		}
		if err := in.wireChildLinks(pkg, pr); err != nil {
			return Summary{}, pmerrors.E(op, err)
		}
	}

	summary := Summary{Installed: len(ordered), Total: len(ordered)}
	pr.Printf("installed %d/%d packages\n", summary.Installed, summary.Total)
	return summary, nil
}

// materialize is Pass 1 for one package: place it at packages_dir/<name>
// as either a link to a Local source or a stripped copy of a Git source's
// cached sparse subtree (spec §4.6 "Pass 1").
func (in *Installer) materialize(pkg *resolve.ResolvedPackage, pr printer.Printer) error {
	const op pmerrors.Op = "install.materialize"
	target := filepath.Join(in.packagesDir, pkg.Name)

	if err := RemovePath(target); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}

	if pkg.Source.Kind == manifest.SourceLocal {
		used, err := in.link(target, pkg.MaterializedPath)
		if err != nil {
			return pmerrors.E(op, pmerrors.WriteFailure, err)
		}
		pr.Event(used.eventKind(), pkg.Name, "")
		if used != strategySymlink {
			pr.Event("fallback_used", pkg.Name, used.eventKind())
		}
		return nil
	}

	if err := copyTree(pkg.MaterializedPath, target); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}
	pr.Event("copied", pkg.Name, "")
	return nil
}

// wireChildLinks is Pass 2 for one package: create packages_dir/p/.git-packages/d
// for every direct dependency d (spec §4.6 "Pass 2").
func (in *Installer) wireChildLinks(pkg *resolve.ResolvedPackage, pr printer.Printer) error {
	const op pmerrors.Op = "install.wireChildLinks"

	childDir := filepath.Join(in.packagesDir, pkg.Name, ".git-packages")
	if err := os.MkdirAll(childDir, 0755); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}

	for _, dep := range pkg.SortedDirectDeps() {
		linkPath := filepath.Join(childDir, dep)
		depTarget := filepath.Join(in.packagesDir, dep)

		if err := RemovePath(linkPath); err != nil {
			return pmerrors.E(op, pmerrors.WriteFailure, err)
		}
		used, err := in.link(linkPath, depTarget)
		if err != nil {
			return pmerrors.E(op, pmerrors.PathCollision, err)
		}
		pr.Event(used.eventKind(), pkg.Name+"/.git-packages/"+dep, "")
		if used != strategySymlink {
			pr.Event("fallback_used", pkg.Name+"/.git-packages/"+dep, used.eventKind())
		}
	}
	return nil
}

// link creates linkPath -> target using the probe-selected strategy,
// degrading to junction then to a recursive copy, and reports which
// strategy was used (spec §4.6 / §9: "Link strategy selection is decided
// per operation, not globally... Strategy selection is probe-driven, not
// config-driven").
func (in *Installer) link(linkPath, target string) (strategy, error) {
	if !in.probed {
		in.symlinksUsable = probeSymlink(filepath.Dir(linkPath))
		in.probed = true
	}

	if in.symlinksUsable {
		rel, err := filepath.Rel(filepath.Dir(linkPath), target)
		if err == nil {
			if err := os.Symlink(rel, linkPath); err == nil {
				return strategySymlink, nil
			}
		}
		in.symlinksUsable = false
	}

	if runtime.GOOS == "windows" {
		if err := createJunction(linkPath, target); err == nil {
			return strategyJunction, nil
		}
	}

	if err := copyTree(target, linkPath); err != nil {
		return strategyCopy, err
	}
	return strategyCopy, nil
}

// createJunction shells out to mklink /j, the Windows primitive for a
// directory link that does not require an elevated privilege (spec §9
// "Junction point").
func createJunction(linkPath, target string) error {
	cmd := exec.Command("cmd", "/c", "mklink", "/j", linkPath, target)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mklink /j: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// copyTree duplicates src into dst, stripping any embedded .git metadata
// and skipping symlinks, mirroring the teacher's own sparse-package copy
// helper.
func copyTree(src, dst string) error {
	return copy.Copy(src, dst, copy.Options{
		Skip: func(srcinfo os.FileInfo, src, dest string) (bool, error) {
			return filepath.Base(src) == ".git", nil
		},
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Skip
		},
	})
}

// RemovePath removes an existing file or directory at path, clearing a
// read-only bit first so that removal succeeds against files a prior
// sparse checkout left read-only (spec §4.6: "Removal must succeed
// against read-only files").
func RemovePath(path string) error {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return nil
	}
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		_ = os.Chmod(p, info.Mode()|0200)
		return nil
	})
	return os.RemoveAll(path)
}
