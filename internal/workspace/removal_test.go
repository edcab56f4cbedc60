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

package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Warrenn/git-pm/internal/manifest"
	. "github.com/Warrenn/git-pm/internal/workspace"
)

func TestRemoveFromManifests_dropsFromRoot(t *testing.T) {
	root := t.TempDir()
	m := manifest.Manifest{Packages: map[string]manifest.PackageSource{
		"a": {Kind: manifest.SourceLocal, LocalPath: "../a"},
		"b": {Kind: manifest.SourceLocal, LocalPath: "../b"},
	}}
	if !assert.NoError(t, manifest.Save(filepath.Join(root, manifest.FileName), m)) {
		t.FailNow()
	}

	if !assert.NoError(t, RemoveFromManifests(root, "a")) {
		t.FailNow()
	}

	got, err := manifest.Load(filepath.Join(root, manifest.FileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NotContains(t, got.Packages, "a")
	assert.Contains(t, got.Packages, "b")
}

func TestRemoveFromManifests_dropsFromOverride(t *testing.T) {
	root := t.TempDir()
	override := manifest.Manifest{Packages: map[string]manifest.PackageSource{
		"dev": {Kind: manifest.SourceLocal, LocalPath: "../dev"},
	}}
	if !assert.NoError(t, manifest.Save(filepath.Join(root, manifest.OverrideFileName), override)) {
		t.FailNow()
	}

	if !assert.NoError(t, RemoveFromManifests(root, "dev")) {
		t.FailNow()
	}

	got, err := manifest.Load(filepath.Join(root, manifest.OverrideFileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NotContains(t, got.Packages, "dev")
}

func TestRemoveFromManifests_unknownNameErrors(t *testing.T) {
	root := t.TempDir()
	err := RemoveFromManifests(root, "nonexistent")
	assert.Error(t, err)
}

// TestPruneUnreferenced_removesSymlinkedLocalPackage exercises the fix
// for a package materialized from a Local source: os.DirEntry.IsDir()
// does not follow symlinks, so the skip condition must also accept
// ModeSymlink entries or such a package would never be pruned
// (spec §8 invariant 8, remove cascade correctness).
func TestPruneUnreferenced_removesSymlinkedLocalPackage(t *testing.T) {
	packagesDir := t.TempDir()
	target := t.TempDir()
	linkPath := filepath.Join(packagesDir, "local-pkg")
	if !assert.NoError(t, os.Symlink(target, linkPath)) {
		t.FailNow()
	}

	removed, err := PruneUnreferenced(packagesDir, map[string]bool{})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Contains(t, removed, "local-pkg")

	_, err = os.Lstat(linkPath)
	assert.True(t, os.IsNotExist(err))
}

// TestPruneUnreferenced_keepsRequiredAndRemovesOthers implements
// scenario S5: remove cascade correctness over a mixed set of
// directory-backed (git) and symlink-backed (local) packages.
func TestPruneUnreferenced_keepsRequiredAndRemovesOthers(t *testing.T) {
	packagesDir := t.TempDir()
	if !assert.NoError(t, os.MkdirAll(filepath.Join(packagesDir, "keep-git"), 0755)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.MkdirAll(filepath.Join(packagesDir, "drop-git"), 0755)) {
		t.FailNow()
	}
	target := t.TempDir()
	if !assert.NoError(t, os.Symlink(target, filepath.Join(packagesDir, "drop-local"))) {
		t.FailNow()
	}

	removed, err := PruneUnreferenced(packagesDir, map[string]bool{"keep-git": true})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.ElementsMatch(t, []string{"drop-git", "drop-local"}, removed)

	_, err = os.Stat(filepath.Join(packagesDir, "keep-git"))
	assert.NoError(t, err)
}

// TestPruneUnreferenced_clearsDanglingChildLinks: a surviving package's
// .git-packages/<removed> child link is also cleaned up.
func TestPruneUnreferenced_clearsDanglingChildLinks(t *testing.T) {
	packagesDir := t.TempDir()
	if !assert.NoError(t, os.MkdirAll(filepath.Join(packagesDir, "keep", ".git-packages"), 0755)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.MkdirAll(filepath.Join(packagesDir, "gone"), 0755)) {
		t.FailNow()
	}
	if !assert.NoError(t, os.Symlink(
		filepath.Join(packagesDir, "gone"),
		filepath.Join(packagesDir, "keep", ".git-packages", "gone"),
	)) {
		t.FailNow()
	}

	_, err := PruneUnreferenced(packagesDir, map[string]bool{"keep": true})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	_, err = os.Lstat(filepath.Join(packagesDir, "keep", ".git-packages", "gone"))
	assert.True(t, os.IsNotExist(err))
}

func TestPruneUnreferenced_missingPackagesDirIsNoop(t *testing.T) {
	removed, err := PruneUnreferenced(filepath.Join(t.TempDir(), "nope"), map[string]bool{})
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
