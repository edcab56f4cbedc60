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

	"github.com/Warrenn/git-pm/internal/resolve"
	. "github.com/Warrenn/git-pm/internal/workspace"
)

func TestWriteEnvFile_emptyPackageSet(t *testing.T) {
	root := t.TempDir()
	packagesDir := filepath.Join(root, ".git-packages")

	if !assert.NoError(t, WriteEnvFile(root, packagesDir, map[string]*resolve.ResolvedPackage{})) {
		t.FailNow()
	}

	data, err := os.ReadFile(filepath.Join(root, EnvFileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	content := string(data)
	assert.Contains(t, content, "GIT_PM_PACKAGES_DIR=")
	assert.Contains(t, content, "GIT_PM_PROJECT_ROOT=")
	assert.NotContains(t, content, "GIT_PM_PACKAGE_")
}

func TestWriteEnvFile_sanitizesPackageNameForVar(t *testing.T) {
	root := t.TempDir()
	packagesDir := filepath.Join(root, ".git-packages")

	packages := map[string]*resolve.ResolvedPackage{
		"my-pkg.v2": {Name: "my-pkg.v2"},
	}
	if !assert.NoError(t, WriteEnvFile(root, packagesDir, packages)) {
		t.FailNow()
	}

	data, err := os.ReadFile(filepath.Join(root, EnvFileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	content := string(data)
	assert.Contains(t, content, "GIT_PM_PACKAGE_MY_PKG_V2=")
	assert.Contains(t, content, filepath.Join(packagesDir, "my-pkg.v2"))
}

func TestWriteEnvFile_regeneratesFromScratch(t *testing.T) {
	root := t.TempDir()
	packagesDir := filepath.Join(root, ".git-packages")

	if !assert.NoError(t, WriteEnvFile(root, packagesDir, map[string]*resolve.ResolvedPackage{
		"a": {Name: "a"},
		"b": {Name: "b"},
	})) {
		t.FailNow()
	}
	if !assert.NoError(t, WriteEnvFile(root, packagesDir, map[string]*resolve.ResolvedPackage{
		"a": {Name: "a"},
	})) {
		t.FailNow()
	}

	data, err := os.ReadFile(filepath.Join(root, EnvFileName))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NotContains(t, string(data), "GIT_PM_PACKAGE_B=")
}

func TestRemoveEnvFile_missingIsNoop(t *testing.T) {
	assert.NoError(t, RemoveEnvFile(t.TempDir()))
}
