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

package install_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/Warrenn/git-pm/internal/install"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/resolve"
)

func ctxWithPrinter() context.Context {
	return printer.WithContext(context.Background(), printer.New(nil, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if !assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.WriteFile(path, []byte(content), 0644)) {
		t.FailNow()
	}
}

func TestRemovePath_missingIsNoop(t *testing.T) {
	assert.NoError(t, RemovePath(filepath.Join(t.TempDir(), "nope")))
}

func TestRemovePath_clearsReadOnlyBeforeRemoving(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ro.txt")
	writeFile(t, target, "x")
	if !assert.NoError(t, os.Chmod(target, 0444)) {
		t.FailNow()
	}

	assert.NoError(t, RemovePath(target))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

// TestInstall_diamond drives the full two-pass installer over a small
// diamond graph of Local sources, checking child-link coverage (invariant
// 4) and that a leaf with no dependencies gets no .git-packages directory
// (spec §8 boundary behavior).
func TestInstall_diamond(t *testing.T) {
	srcA, srcB, srcC, srcD := t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(srcD, "d.txt"), "d")
	writeFile(t, filepath.Join(srcB, "b.txt"), "b")
	writeFile(t, filepath.Join(srcC, "c.txt"), "c")
	writeFile(t, filepath.Join(srcA, "a.txt"), "a")

	packagesDir := filepath.Join(t.TempDir(), ".git-packages")

	graph := resolve.Graph{
		Order: []string{"D", "B", "C", "A"},
		Packages: map[string]*resolve.ResolvedPackage{
			"D": {Name: "D", Source: gitSource(), MaterializedPath: srcD, DirectDeps: map[string]bool{}},
			"B": {Name: "B", Source: gitSource(), MaterializedPath: srcB, DirectDeps: map[string]bool{"D": true}},
			"C": {Name: "C", Source: gitSource(), MaterializedPath: srcC, DirectDeps: map[string]bool{"D": true}},
			"A": {Name: "A", Source: gitSource(), MaterializedPath: srcA, DirectDeps: map[string]bool{"B": true, "C": true}},
		},
	}

	in := New(packagesDir)
	summary, err := in.Install(ctxWithPrinter(), graph)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, 4, summary.Installed)

	// D has no deps: no .git-packages directory at all.
	_, err = os.Stat(filepath.Join(packagesDir, "D", ".git-packages"))
	assert.True(t, os.IsNotExist(err))

	// A, B, C each see their declared deps at the stable relative path.
	markerFile := map[string]string{"B": "b.txt", "C": "c.txt", "D": "d.txt"}
	for pkg, dep := range map[string]string{"A": "B", "B": "D", "C": "D"} {
		linkPath := filepath.Join(packagesDir, pkg, ".git-packages", dep)
		if _, err := os.Lstat(linkPath); !assert.NoError(t, err, "missing child link %s", linkPath) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(linkPath, markerFile[dep]))
		if assert.NoError(t, err) {
			assert.NotEmpty(t, data)
		}
	}
}

func TestInstall_localSourceUsesLinkNotCopy(t *testing.T) {
	local := t.TempDir()
	writeFile(t, filepath.Join(local, "marker.txt"), "hi")

	packagesDir := filepath.Join(t.TempDir(), ".git-packages")
	graph := resolve.Graph{
		Order: []string{"L"},
		Packages: map[string]*resolve.ResolvedPackage{
			"L": {
				Name:             "L",
				Source:           manifest.PackageSource{Kind: manifest.SourceLocal, LocalPath: local},
				MaterializedPath: local,
				DirectDeps:       map[string]bool{},
			},
		},
	}

	in := New(packagesDir)
	_, err := in.Install(ctxWithPrinter(), graph)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	info, err := os.Lstat(filepath.Join(packagesDir, "L"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.True(t, info.Mode()&os.ModeSymlink != 0, "local source should be linked, not copied")

	data, err := os.ReadFile(filepath.Join(packagesDir, "L", "marker.txt"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "hi", string(data))
}

func TestInstall_gitSourceStripsDotGit(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"), "keep")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main")

	packagesDir := filepath.Join(t.TempDir(), ".git-packages")
	graph := resolve.Graph{
		Order: []string{"G"},
		Packages: map[string]*resolve.ResolvedPackage{
			"G": {Name: "G", Source: gitSource(), MaterializedPath: src, DirectDeps: map[string]bool{}},
		},
	}

	in := New(packagesDir)
	_, err := in.Install(ctxWithPrinter(), graph)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	_, err = os.Stat(filepath.Join(packagesDir, "G", "keep.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(packagesDir, "G", ".git"))
	assert.True(t, os.IsNotExist(err))
}

func gitSource() manifest.PackageSource {
	return manifest.PackageSource{Kind: manifest.SourceGit, Repo: "github.com/o/r", Ref: manifest.Tag("v1")}
}
