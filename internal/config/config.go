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

// Package config implements C1, the config resolver: it merges built-in
// defaults, a user-scope file, and a project-scope file into one frozen
// Config (spec §4.1), and resolves the environment-derived authentication
// hints described in spec §6.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

// CacheDirEnv overrides the computed default cache directory, mirroring
// the KPT_CACHE_DIR convention kpt uses for its own repo cache.
const CacheDirEnv = "GIT_PM_CACHE_DIR"

// ProjectConfigFileName is the project-scope config file at the workspace
// root.
const ProjectConfigFileName = "git-pm.config.yaml"

// UserConfigDirName / UserConfigFileName locate the user-scope config
// file under the user's home directory.
const (
	UserConfigDirName  = ".git-pm"
	UserConfigFileName = "config.yaml"
)

// Config is the closed set of recognized keys from spec §3.
type Config struct {
	PackagesDir   string            `yaml:"packages_dir"`
	CacheDir      string            `yaml:"cache_dir"`
	GitProtocol   map[string]string `yaml:"git_protocol"`
	URLPatterns   map[string]string `yaml:"url_patterns"`
	AzureDevOpsPAT string           `yaml:"azure_devops_pat"`
}

// validKeys is the closed set checked by the `config` command (spec §6:
// "Unknown keys are rejected").
var validKeys = map[string]bool{
	"packages_dir":    true,
	"cache_dir":       true,
	"git_protocol":    true,
	"url_patterns":    true,
	"azure_devops_pat": true,
}

// IsValidKey reports whether key is a recognized config key.
func IsValidKey(key string) bool {
	return validKeys[key]
}

// Defaults returns the built-in default Config.
func Defaults() Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}
	return Config{
		PackagesDir: ".git-packages",
		CacheDir:    filepath.Join(cacheRoot, "git-pm"),
		GitProtocol: map[string]string{},
		URLPatterns: map[string]string{},
	}
}

// UserConfigPath returns the path to the user-scope config file.
func UserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, UserConfigDirName, UserConfigFileName), nil
}

// ProjectConfigPath returns the path to the project-scope config file
// under workspaceRoot.
func ProjectConfigPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ProjectConfigFileName)
}

// load reads the config file at path, tolerating a missing file (spec
// §4.1: "never fails on a missing file; absence is treated as empty").
func load(path string) (Config, error) {
	const op pmerrors.Op = "config.load"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, pmerrors.E(op, pmerrors.IO, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, pmerrors.E(op, pmerrors.InvalidParam, err)
	}
	klog.V(2).Infof("config: loaded %s", path)
	return c, nil
}

// Resolve merges built-in defaults, the user config, and the project
// config (in that order, lowest priority first) into one effective
// Config (spec §4.1). The resolver never touches the network.
func Resolve(workspaceRoot string) (Config, error) {
	const op pmerrors.Op = "config.Resolve"

	effective := Defaults()

	userPath, err := UserConfigPath()
	if err == nil {
		userCfg, err := load(userPath)
		if err != nil {
			return Config{}, pmerrors.E(op, err)
		}
		effective = deepMerge(effective, userCfg)
	}

	projectCfg, err := load(ProjectConfigPath(workspaceRoot))
	if err != nil {
		return Config{}, pmerrors.E(op, err)
	}
	effective = deepMerge(effective, projectCfg)

	return effective, nil
}

// deepMerge merges override onto base: nested maps are merged key-wise,
// scalars are replaced when override sets a non-zero value (spec §3:
// "Deep merge: nested maps are merged key-wise; scalars and lists are
// replaced").
func deepMerge(base, override Config) Config {
	out := base
	if override.PackagesDir != "" {
		out.PackagesDir = override.PackagesDir
	}
	if override.CacheDir != "" {
		out.CacheDir = override.CacheDir
	}
	if override.AzureDevOpsPAT != "" {
		out.AzureDevOpsPAT = override.AzureDevOpsPAT
	}
	out.GitProtocol = mergeStringMap(base.GitProtocol, override.GitProtocol)
	out.URLPatterns = mergeStringMap(base.URLPatterns, override.URLPatterns)
	return out
}

func mergeStringMap(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// EffectiveCacheDir applies the CacheDirEnv override on top of the
// resolved config, matching the env-overrides-computed-default idiom.
func (c Config) EffectiveCacheDir() string {
	if dir := os.Getenv(CacheDirEnv); dir != "" {
		return dir
	}
	return c.CacheDir
}

// AuthHints is the set of authentication hints derivable from the process
// environment (spec §4.1 / §6).
type AuthHints struct {
	AzureDevOpsPAT   string
	SystemAccessToken string
	HostTokens       map[string]string // host (dots as underscores already reversed) -> token
}

// ResolveAuthHints scans the process environment for the variables named
// in spec §6: AZURE_DEVOPS_PAT, SYSTEM_ACCESSTOKEN, and any number of
// GIT_PM_TOKEN_<host_underscored> variables.
func ResolveAuthHints(cfg Config) AuthHints {
	hints := AuthHints{
		AzureDevOpsPAT:    firstNonEmpty(os.Getenv("AZURE_DEVOPS_PAT"), cfg.AzureDevOpsPAT),
		SystemAccessToken: os.Getenv("SYSTEM_ACCESSTOKEN"),
		HostTokens:        map[string]string{},
	}
	const prefix = "GIT_PM_TOKEN_"
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, prefix) || val == "" {
			continue
		}
		host := strings.ReplaceAll(strings.TrimPrefix(key, prefix), "_", ".")
		hints.HostTokens[host] = val
	}
	return hints
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
