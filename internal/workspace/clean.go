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
	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/install"
)

// Clean deletes packagesDir and the generated environment file, leaving
// manifests and the cache intact (spec §6 `clean`).
func Clean(workspaceRoot, packagesDir string) error {
	const op pmerrors.Op = "workspace.Clean"

	if err := install.RemovePath(packagesDir); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}
	if err := RemoveEnvFile(workspaceRoot); err != nil {
		return pmerrors.E(op, err)
	}
	return nil
}
