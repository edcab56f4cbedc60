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
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Warrenn/git-pm/internal/manifest"
)

// CacheKey computes the 16-hex-character cache key over (RepoID, path,
// ref_type, ref_value) described in spec §3. Callers must have already
// substituted ref_value with the resolved commit for branches, so that
// the same branch at two different head commits produces two entries.
func CacheKey(repo manifest.RepoID, path string, ref manifest.Ref) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%s\x00%s",
		repo.Normalize(), path, ref.Kind, ref.Value)))
	return hex.EncodeToString(sum[:])[:16]
}
