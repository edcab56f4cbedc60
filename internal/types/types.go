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

// Package types defines small cross-cutting value types shared by the
// rest of the engine.
package types

// UniquePath is an absolute, OS-defined path to a package directory.
type UniquePath string

func (u UniquePath) String() string {
	return string(u)
}

// DisplayPath is a path used only for human-facing output.
type DisplayPath string

func (d DisplayPath) String() string {
	return string(d)
}
