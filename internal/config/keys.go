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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

// ValueSource pairs an effective config value with the scope it came
// from, for `config --list` (spec §6: "prints effective merged values
// with their source").
type ValueSource struct {
	Value  string
	Source string
}

// SetKey writes key=value into the config file at path, creating the
// file and its parent directory if necessary. key may address a nested
// map entry with dotted notation, e.g. "git_protocol.github.com".
func SetKey(path, key, value string) error {
	const op pmerrors.Op = "config.SetKey"
	if !IsValidKey(rootKey(key)) {
		return pmerrors.E(op, pmerrors.UnknownConfigKey, fmt.Errorf("unknown config key %q", key))
	}

	raw, err := readRaw(path)
	if err != nil {
		return pmerrors.E(op, err)
	}
	setDotted(raw, key, value)
	if err := writeRaw(path, raw); err != nil {
		return pmerrors.E(op, err)
	}
	return nil
}

// UnsetKey removes key from the config file at path.
func UnsetKey(path, key string) error {
	const op pmerrors.Op = "config.UnsetKey"
	if !IsValidKey(rootKey(key)) {
		return pmerrors.E(op, pmerrors.UnknownConfigKey, fmt.Errorf("unknown config key %q", key))
	}

	raw, err := readRaw(path)
	if err != nil {
		return pmerrors.E(op, err)
	}
	unsetDotted(raw, key)
	if err := writeRaw(path, raw); err != nil {
		return pmerrors.E(op, err)
	}
	return nil
}

// GetKey returns the effective value of key (after the default/user/project
// merge), for `config <key>` with no value argument.
func GetKey(workspaceRoot, key string) (string, error) {
	const op pmerrors.Op = "config.GetKey"
	if !IsValidKey(rootKey(key)) {
		return "", pmerrors.E(op, pmerrors.UnknownConfigKey, fmt.Errorf("unknown config key %q", key))
	}
	rows, err := EffectiveWithSource(workspaceRoot)
	if err != nil {
		return "", pmerrors.E(op, err)
	}
	row, ok := rows[key]
	if !ok {
		return "", nil
	}
	return row.Value, nil
}

// EffectiveWithSource resolves the three-layer merge like Resolve, but
// additionally reports which scope contributed each key's final value.
func EffectiveWithSource(workspaceRoot string) (map[string]ValueSource, error) {
	const op pmerrors.Op = "config.EffectiveWithSource"

	def := Defaults()

	userPath, _ := UserConfigPath()
	userCfg, err := load(userPath)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}
	projectCfg, err := load(ProjectConfigPath(workspaceRoot))
	if err != nil {
		return nil, pmerrors.E(op, err)
	}
	effective, err := Resolve(workspaceRoot)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}

	result := map[string]ValueSource{}
	scalars := []struct {
		key string
		get func(Config) string
	}{
		{"packages_dir", func(c Config) string { return c.PackagesDir }},
		{"cache_dir", func(c Config) string { return c.CacheDir }},
		{"azure_devops_pat", func(c Config) string { return c.AzureDevOpsPAT }},
	}
	for _, s := range scalars {
		value, source := s.get(def), "default"
		if v := s.get(userCfg); v != "" {
			value, source = v, "user"
		}
		if v := s.get(projectCfg); v != "" {
			value, source = v, "project"
		}
		result[s.key] = ValueSource{Value: value, Source: source}
	}

	result["git_protocol"] = ValueSource{
		Value:  formatMap(effective.GitProtocol),
		Source: mapSource(def.GitProtocol, userCfg.GitProtocol, projectCfg.GitProtocol),
	}
	result["url_patterns"] = ValueSource{
		Value:  formatMap(effective.URLPatterns),
		Source: mapSource(def.URLPatterns, userCfg.URLPatterns, projectCfg.URLPatterns),
	}
	return result, nil
}

func rootKey(key string) string {
	if i := strings.IndexByte(key, '.'); i >= 0 {
		return key[:i]
	}
	return key
}

func readRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{}, nil
		}
		return nil, pmerrors.E(pmerrors.Op("config.readRaw"), pmerrors.IO, err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, pmerrors.E(pmerrors.Op("config.readRaw"), pmerrors.InvalidParam, err)
	}
	if m == nil {
		m = map[string]interface{}{}
	}
	return m, nil
}

func writeRaw(path string, m map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pmerrors.E(pmerrors.Op("config.writeRaw"), pmerrors.IO, err)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return pmerrors.E(pmerrors.Op("config.writeRaw"), pmerrors.Internal, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return pmerrors.E(pmerrors.Op("config.writeRaw"), pmerrors.IO, err)
	}
	return nil
}

func setDotted(m map[string]interface{}, key, value string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 1 {
		m[key] = value
		return
	}
	sub, _ := m[parts[0]].(map[string]interface{})
	if sub == nil {
		sub = map[string]interface{}{}
	}
	sub[parts[1]] = value
	m[parts[0]] = sub
}

func unsetDotted(m map[string]interface{}, key string) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) == 1 {
		delete(m, key)
		return
	}
	if sub, ok := m[parts[0]].(map[string]interface{}); ok {
		delete(sub, parts[1])
		m[parts[0]] = sub
	}
}

func formatMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(m[k])
	}
	b.WriteByte('}')
	return b.String()
}

func mapSource(def, user, project map[string]string) string {
	contributors := 0
	last := "default"
	if len(user) > 0 {
		contributors++
		last = "user"
	}
	if len(project) > 0 {
		contributors++
		last = "project"
	}
	if contributors > 1 {
		return "merged"
	}
	if contributors == 0 && len(def) == 0 {
		return "default"
	}
	return last
}
