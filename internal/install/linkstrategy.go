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
	"path/filepath"
)

// strategy is the chosen way of pointing one package directory at
// another (spec §4.6 / §9: "probe-driven, not config-driven").
type strategy int

const (
	strategySymlink strategy = iota
	strategyJunction
	strategyCopy
)

func (s strategy) eventKind() string {
	switch s {
	case strategySymlink:
		return "linked"
	case strategyJunction:
		return "junction"
	default:
		return "copied"
	}
}

// probeSymlink attempts a throwaway symlink inside dir and reports whether
// symlink creation is usable on this filesystem/platform. The probe is run
// once per invocation and its result is cached by the caller (spec §4.6:
// "the installer probes symbolic-link creation once").
func probeSymlink(dir string) bool {
	target := filepath.Join(dir, ".git-pm-symlink-probe-target")
	link := filepath.Join(dir, ".git-pm-symlink-probe-link")
	defer os.Remove(target)
	defer os.Remove(link)

	if err := os.WriteFile(target, []byte(""), 0644); err != nil {
		return false
	}
	if err := os.Symlink(target, link); err != nil {
		return false
	}
	return true
}
