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

package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/Warrenn/git-pm/internal/engine"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/printer"
	"github.com/Warrenn/git-pm/internal/workspace"
)

func ctxWithPrinter() context.Context {
	return printer.WithContext(context.Background(), printer.New(nil, nil))
}

// newWorkspace builds a workspace root with a single Local-sourced
// package "dep" declared in the root manifest, isolated from the real
// user's home directory so config.Resolve never reads a stray
// ~/.git-pm/config.yaml.
func newWorkspace(t *testing.T) (root, depDir string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root = t.TempDir()
	depDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(depDir, "marker.txt"), []byte("dep"), 0644); err != nil {
		t.Fatal(err)
	}

	m := manifest.Manifest{Packages: map[string]manifest.PackageSource{
		"dep": {Kind: manifest.SourceLocal, LocalPath: depDir},
	}}
	if err := manifest.Save(filepath.Join(root, manifest.FileName), m); err != nil {
		t.Fatal(err)
	}
	return root, depDir
}

func TestEngine_ResolveAndInstall_localSource(t *testing.T) {
	root, _ := newWorkspace(t)

	eng, err := New(root)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	summary, err := eng.Install(ctxWithPrinter(), false, false)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, 1, summary.Installed)

	data, err := os.ReadFile(filepath.Join(eng.PackagesDir(), "dep", "marker.txt"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "dep", string(data))

	// install also writes the env file and appends managed ignore entries.
	_, err = os.Stat(filepath.Join(root, workspace.EnvFileName))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, workspace.IgnoreFileName))
	assert.NoError(t, err)
}

func TestEngine_Install_noGitignoreSkipsIgnoreFile(t *testing.T) {
	root, _ := newWorkspace(t)

	eng, err := New(root)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	_, err = eng.Install(ctxWithPrinter(), false, true)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	_, err = os.Stat(filepath.Join(root, workspace.IgnoreFileName))
	assert.True(t, os.IsNotExist(err))
}

// TestEngine_Remove_cascades implements scenario S5: removing the root
// package prunes it from the packages directory and from the manifest,
// even though it was materialized as a symlink (Local source).
func TestEngine_Remove_cascades(t *testing.T) {
	root, _ := newWorkspace(t)

	eng, err := New(root)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if _, err := eng.Install(ctxWithPrinter(), false, false); !assert.NoError(t, err) {
		t.FailNow()
	}

	removed, err := eng.Remove(ctxWithPrinter(), "dep")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Contains(t, removed, "dep")

	_, err = os.Lstat(filepath.Join(eng.PackagesDir(), "dep"))
	assert.True(t, os.IsNotExist(err))

	got, err := manifest.Load(filepath.Join(root, manifest.FileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NotContains(t, got.Packages, "dep")
}

// TestEngine_InstallThenCleanThenInstall_roundTrips exercises the
// install -> clean -> install round-trip law from spec §8: cleaning
// only clears the materialized output, so a second install reaches the
// same resolved set.
func TestEngine_InstallThenCleanThenInstall_roundTrips(t *testing.T) {
	root, _ := newWorkspace(t)

	eng, err := New(root)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if _, err := eng.Install(ctxWithPrinter(), false, false); !assert.NoError(t, err) {
		t.FailNow()
	}

	if !assert.NoError(t, workspace.Clean(root, eng.PackagesDir())) {
		t.FailNow()
	}
	_, err = os.Stat(eng.PackagesDir())
	assert.True(t, os.IsNotExist(err))

	summary, err := eng.Install(ctxWithPrinter(), false, false)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, 1, summary.Installed)

	_, err = os.Stat(filepath.Join(eng.PackagesDir(), "dep", "marker.txt"))
	assert.NoError(t, err)
}

func TestEngine_PackagesDir_honorsConfiguredRelativeDir(t *testing.T) {
	root, _ := newWorkspace(t)
	cfgContent := "packages_dir: vendor-pkgs\n"
	if err := os.WriteFile(filepath.Join(root, "git-pm.config.yaml"), []byte(cfgContent), 0644); err != nil {
		t.Fatal(err)
	}

	eng, err := New(root)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, filepath.Join(root, "vendor-pkgs"), eng.PackagesDir())
}
