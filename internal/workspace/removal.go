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

package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/install"
	"github.com/Warrenn/git-pm/internal/manifest"
)

// RemoveFromManifests drops name from whichever of the root manifest and
// the local override manifest declares it (spec §4.7 cascading removal,
// step 1). It rejects removal of a name neither manifest declares.
func RemoveFromManifests(workspaceRoot, name string) error {
	const op pmerrors.Op = "workspace.RemoveFromManifests"

	rootPath := filepath.Join(workspaceRoot, manifest.FileName)
	overridePath := filepath.Join(workspaceRoot, manifest.OverrideFileName)

	rootM, err := manifest.Load(rootPath)
	if err != nil {
		return pmerrors.E(op, err)
	}
	overrideM, err := manifest.Load(overridePath)
	if err != nil {
		return pmerrors.E(op, err)
	}

	_, inRoot := rootM.Packages[name]
	_, inOverride := overrideM.Packages[name]
	if !inRoot && !inOverride {
		return pmerrors.E(op, pmerrors.PackageNotInstalled,
			fmt.Errorf("package %q is not declared in any manifest", name))
	}

	if inRoot {
		delete(rootM.Packages, name)
		if err := manifest.Save(rootPath, rootM); err != nil {
			return pmerrors.E(op, err)
		}
	}
	if inOverride {
		delete(overrideM.Packages, name)
		if err := manifest.Save(overridePath, overrideM); err != nil {
			return pmerrors.E(op, err)
		}
	}
	return nil
}

// PruneUnreferenced deletes every top-level entry of packagesDir whose
// name is absent from required, along with any dangling
// .git-packages/<removed> child link left in a surviving package (spec
// §4.7 cascading removal, step 3). It returns the names removed.
func PruneUnreferenced(packagesDir string, required map[string]bool) ([]string, error) {
	const op pmerrors.Op = "workspace.PruneUnreferenced"

	entries, err := os.ReadDir(packagesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pmerrors.E(op, pmerrors.IO, err)
	}

	var removed []string
	var surviving []string
	for _, e := range entries {
		// A package materialized from a Local source lands here as a
		// symlink (or junction), not a directory, so IsDir() alone
		// would skip it forever; only skip genuine stray files.
		if !e.IsDir() && e.Type()&os.ModeSymlink == 0 {
			continue
		}
		if required[e.Name()] {
			surviving = append(surviving, e.Name())
			continue
		}
		if err := install.RemovePath(filepath.Join(packagesDir, e.Name())); err != nil {
			return removed, pmerrors.E(op, pmerrors.WriteFailure, err)
		}
		removed = append(removed, e.Name())
	}
	sort.Strings(removed)

	for _, name := range surviving {
		childDir := filepath.Join(packagesDir, name, ".git-packages")
		for _, removedName := range removed {
			_ = install.RemovePath(filepath.Join(childDir, removedName))
		}
	}
	return removed, nil
}
