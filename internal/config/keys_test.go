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

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/Warrenn/git-pm/internal/config"
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

func TestSetKeyThenGetKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := ProjectConfigPath(dir)

	if !assert.NoError(t, SetKey(path, "packages_dir", ".custom-packages")) {
		t.FailNow()
	}

	value, err := GetKey(dir, "packages_dir")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, ".custom-packages", value)
}

func TestSetKey_unknownKeyRejected(t *testing.T) {
	err := SetKey(filepath.Join(t.TempDir(), "cfg.yaml"), "not_a_real_key", "x")
	if !assert.Error(t, err) {
		t.FailNow()
	}
	assert.Equal(t, pmerrors.UnknownConfigKey, pmerrors.KindOf(err))
}

func TestUnsetKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := ProjectConfigPath(dir)

	if !assert.NoError(t, SetKey(path, "cache_dir", "/tmp/my-cache")) {
		t.FailNow()
	}
	if !assert.NoError(t, UnsetKey(path, "cache_dir")) {
		t.FailNow()
	}

	value, err := GetKey(dir, "cache_dir")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.NotEqual(t, "/tmp/my-cache", value)
}

func TestSetKey_dottedNestedMap(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := ProjectConfigPath(dir)

	if !assert.NoError(t, SetKey(path, "git_protocol.github.com", "https")) {
		t.FailNow()
	}

	cfg, err := Resolve(dir)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "https", cfg.GitProtocol["github.com"])
}

func TestEffectiveWithSource_reportsLayer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()

	rows, err := EffectiveWithSource(dir)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "default", rows["packages_dir"].Source)

	if !assert.NoError(t, SetKey(ProjectConfigPath(dir), "packages_dir", ".x")) {
		t.FailNow()
	}
	rows, err = EffectiveWithSource(dir)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "project", rows["packages_dir"].Source)
	assert.Equal(t, ".x", rows["packages_dir"].Value)
}
