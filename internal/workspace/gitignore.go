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
	"os"
	"path/filepath"
	"strings"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/manifest"
)

// IgnoreFileName is the version-control ignore file the maintainer
// appends to. A real repository may not be present; the file is treated
// as plain text regardless.
const IgnoreFileName = ".gitignore"

const (
	sectionHeader = "# git-pm managed entries (do not edit below this line)"
	sectionFooter = "# end git-pm managed entries"
)

// ManagedEntries returns the fixed set of path patterns the maintainer
// keeps present in the ignore file (spec §4.7: "managed list:
// packages_dir/, .git-pm.env, any recognized local-override filename,
// any optional lockfile"). git-pm does not write a lockfile (see
// DESIGN.md), so that slot is omitted.
func ManagedEntries(packagesDir string) []string {
	return []string{
		strings.TrimSuffix(packagesDir, string(filepath.Separator)) + "/",
		EnvFileName,
		manifest.OverrideFileName,
	}
}

// EnsureIgnoreEntries idempotently ensures every entry in entries is
// present in the ignore file at path, per spec §4.7 "Ignore-file
// maintenance". Existing unrelated content is never reordered, rewritten,
// or deleted.
func EnsureIgnoreEntries(path string, entries []string) error {
	const op pmerrors.Op = "workspace.EnsureIgnoreEntries"

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return pmerrors.E(op, pmerrors.IO, err)
	}

	var lines []string
	if err == nil {
		content := string(data)
		lines = strings.Split(content, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
	}

	missing := missingEntries(lines, entries)
	if len(missing) == 0 {
		return nil
	}

	headerIdx, footerIdx := -1, -1
	for i, l := range lines {
		switch strings.TrimSpace(l) {
		case sectionHeader:
			headerIdx = i
		case sectionFooter:
			footerIdx = i
		}
	}

	var out []string
	switch {
	case headerIdx >= 0 && footerIdx > headerIdx:
		out = append(out, lines[:footerIdx]...)
		out = append(out, missing...)
		out = append(out, lines[footerIdx:]...)
	default:
		out = append(out, lines...)
		if len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, sectionHeader)
		out = append(out, missing...)
		out = append(out, sectionFooter)
	}

	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0644); err != nil {
		return pmerrors.E(op, pmerrors.WriteFailure, err)
	}
	return nil
}

// missingEntries returns the entries not already covered by an existing
// line, tolerant of trailing-slash variants and of existing lines that
// are semantically broader patterns (spec §4.7: "the comparison is
// tolerant of trailing slash variants and of lines that are semantically
// broader patterns covering the entry").
func missingEntries(existing []string, entries []string) []string {
	var missing []string
	for _, e := range entries {
		if !covered(existing, e) {
			missing = append(missing, e)
		}
	}
	return missing
}

func covered(existing []string, entry string) bool {
	norm := normalizeIgnoreLine(entry)
	for _, line := range existing {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		existingNorm := normalizeIgnoreLine(trimmed)
		if existingNorm == norm {
			return true
		}
		// A broader pattern like "packages_dir" or "packages_dir/**"
		// already covers "packages_dir/<something>".
		if strings.HasPrefix(norm, existingNorm+"/") {
			return true
		}
	}
	return false
}

func normalizeIgnoreLine(s string) string {
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, "/**")
	s = strings.TrimSuffix(s, "/*")
	return s
}
