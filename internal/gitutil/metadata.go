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

package gitutil

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// metadataFileName is the small sidecar recording the resolved commit
// for a cache entry (spec §6: "a small metadata sidecar recording the
// resolved commit").
const metadataFileName = ".git-pm-cache.json"

// cacheMetadata is persisted alongside the sparse checkout.
type cacheMetadata struct {
	Repo           string `json:"repo"`
	Path           string `json:"path"`
	RefType        string `json:"ref_type"`
	RefValue       string `json:"ref_value"`
	ResolvedCommit string `json:"resolved_commit"`
}

func readMetadata(cacheDir string) (cacheMetadata, bool) {
	data, err := os.ReadFile(filepath.Join(cacheDir, metadataFileName))
	if err != nil {
		return cacheMetadata{}, false
	}
	var m cacheMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return cacheMetadata{}, false
	}
	return m, true
}

func writeMetadata(cacheDir string, m cacheMetadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, metadataFileName), data, 0644)
}
