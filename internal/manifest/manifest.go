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

package manifest

import (
	"os"

	goerrors "github.com/go-errors/errors"
	"gopkg.in/yaml.v3"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
)

// FileName is the canonical manifest filename at the workspace root.
const FileName = "git-pm.yaml"

// OverrideFileName is the canonical local-override manifest filename,
// typically git-ignored (spec §6 / §4.7).
const OverrideFileName = "git-pm.local.yaml"

// Manifest is { packages: Map<name, PackageSpec> } (spec §3). An empty or
// missing manifest is legal.
type Manifest struct {
	Packages map[string]PackageSource `yaml:"packages"`
}

// Specs returns the manifest's packages as a name-ordered-agnostic map of
// PackageSpec, filling in Name from the map key.
func (m Manifest) Specs() map[string]PackageSpec {
	out := make(map[string]PackageSpec, len(m.Packages))
	for name, src := range m.Packages {
		out[name] = PackageSpec{Name: name, Source: src}
	}
	return out
}

// Load reads and parses the manifest at path. A missing file is treated
// as an empty manifest, never an error (spec §4.3).
func Load(path string) (Manifest, error) {
	const op pmerrors.Op = "manifest.Load"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, nil
		}
		return Manifest{}, pmerrors.E(op, pmerrors.IO, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, pmerrors.E(op, pmerrors.ManifestMalformed,
			goerrors.Errorf("parsing %s: %w", path, err))
	}
	return m, nil
}

// Save writes m to path as YAML, creating parent directories as needed.
func Save(path string, m Manifest) error {
	const op pmerrors.Op = "manifest.Save"
	data, err := yaml.Marshal(m)
	if err != nil {
		return pmerrors.E(op, pmerrors.Internal, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return pmerrors.E(op, pmerrors.IO, err)
	}
	return nil
}

// Merge applies override entries onto base, replacing whole entries of
// the same name and introducing names absent from base (spec §3 / §4.3:
// "Overrides replace entire package entries; partial field overlay is
// not performed at this stage").
func Merge(base, override map[string]PackageSpec) map[string]PackageSpec {
	out := make(map[string]PackageSpec, len(base)+len(override))
	for name, spec := range base {
		out[name] = spec
	}
	for name, spec := range override {
		out[name] = spec
	}
	return out
}

// LoadEffective loads the root manifest and, if present, the local
// override manifest at workspaceRoot, and returns their merge (spec
// §4.3).
func LoadEffective(workspaceRoot string) (map[string]PackageSpec, error) {
	const op pmerrors.Op = "manifest.LoadEffective"

	base, err := Load(workspaceRoot + string(os.PathSeparator) + FileName)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}
	override, err := Load(workspaceRoot + string(os.PathSeparator) + OverrideFileName)
	if err != nil {
		return nil, pmerrors.E(op, err)
	}
	return Merge(base.Specs(), override.Specs()), nil
}
