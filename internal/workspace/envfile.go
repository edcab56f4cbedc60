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

// Package workspace implements C7, the workspace maintainer: the
// generated environment file, idempotent ignore-file maintenance, and
// cascading removal (spec §4.7).
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/resolve"
)

// EnvFileName is the generated environment file at the workspace root.
const EnvFileName = ".git-pm.env"

// WriteEnvFile regenerates EnvFileName from scratch with the absolute
// paths of packagesDir, workspaceRoot, and every installed package (spec
// §4.7 "Environment file"). It is never consulted by the engine itself.
func WriteEnvFile(workspaceRoot, packagesDir string, packages map[string]*resolve.ResolvedPackage) error {
	const op pmerrors.Op = "workspace.WriteEnvFile"

	absPackagesDir, err := filepath.Abs(packagesDir)
	if err != nil {
		return pmerrors.E(op, pmerrors.IO, err)
	}
	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return pmerrors.E(op, pmerrors.IO, err)
	}

	var b strings.Builder
	b.WriteString("# generated by git-pm install; do not edit\n")
	b.WriteString("GIT_PM_PACKAGES_DIR=" + absPackagesDir + "\n")
	b.WriteString("GIT_PM_PROJECT_ROOT=" + absRoot + "\n")

	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		varName := "GIT_PM_PACKAGE_" + envSafe(strings.ToUpper(name))
		b.WriteString(varName + "=" + filepath.Join(absPackagesDir, name) + "\n")
	}

	if err := os.WriteFile(filepath.Join(workspaceRoot, EnvFileName), []byte(b.String()), 0644); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}
	return nil
}

// envSafe replaces characters not valid in a shell environment variable
// name with underscores, per spec §4.7 / §8 boundary behavior: "a name
// containing characters valid in a directory but invalid in an
// environment variable is exported with those characters replaced by _".
func envSafe(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// RemoveEnvFile deletes the generated environment file, used by `clean`.
func RemoveEnvFile(workspaceRoot string) error {
	err := os.Remove(filepath.Join(workspaceRoot, EnvFileName))
	if err != nil && !os.IsNotExist(err) {
		return pmerrors.E(pmerrors.Op("workspace.RemoveEnvFile"), pmerrors.IO, err)
	}
	return nil
}
