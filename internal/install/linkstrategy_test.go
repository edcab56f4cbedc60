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

package install

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategy_eventKind(t *testing.T) {
	assert.Equal(t, "linked", strategySymlink.eventKind())
	assert.Equal(t, "junction", strategyJunction.eventKind())
	assert.Equal(t, "copied", strategyCopy.eventKind())
}

// TestProbeSymlink_usableTempDir: on any filesystem where t.TempDir()
// allows symlinks (true on a normal Linux test runner), the probe must
// succeed and must leave no trace behind.
func TestProbeSymlink_usableTempDir(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, probeSymlink(dir))

	entries, err := os.ReadDir(dir)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Empty(t, entries, "probe must clean up its throwaway target and link")
}
