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

// Package manifest defines the git-pm manifest document and the data
// model shared by every component downstream of it: Ref, RepoID,
// PackageSource and PackageSpec (spec §3).
package manifest

import (
	"fmt"
	"net/url"
	"strings"
)

// RefKind discriminates the three variants of Ref.
type RefKind int

const (
	RefTag RefKind = iota
	RefBranch
	RefCommit
)

func (k RefKind) String() string {
	switch k {
	case RefTag:
		return "tag"
	case RefBranch:
		return "branch"
	case RefCommit:
		return "commit"
	default:
		return "unknown"
	}
}

// Ref is the tagged union Tag(name) | Branch(name) | Commit(sha) from
// spec §3. A Ref is immutable-like when Kind is RefTag or RefCommit, and
// mutable when Kind is RefBranch.
type Ref struct {
	Kind  RefKind
	Value string
}

// Tag constructs a Ref of kind Tag.
func Tag(name string) Ref { return Ref{Kind: RefTag, Value: name} }

// Branch constructs a Ref of kind Branch.
func Branch(name string) Ref { return Ref{Kind: RefBranch, Value: name} }

// Commit constructs a Ref of kind Commit.
func Commit(sha string) Ref { return Ref{Kind: RefCommit, Value: sha} }

// Mutable reports whether the ref can resolve to different commits over
// time (true only for branches).
func (r Ref) Mutable() bool { return r.Kind == RefBranch }

func (r Ref) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.Value)
}

// UnmarshalYAML implements the sum-type boundary for Ref: exactly one of
// tag/branch/commit must be set.
func (r *Ref) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Tag    string `yaml:"tag"`
		Branch string `yaml:"branch"`
		Commit string `yaml:"commit"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	set := 0
	if raw.Tag != "" {
		set++
	}
	if raw.Branch != "" {
		set++
	}
	if raw.Commit != "" {
		set++
	}
	switch {
	case set == 0:
		return fmt.Errorf("ref must specify exactly one of tag, branch, or commit")
	case set > 1:
		return fmt.Errorf("ref must specify exactly one of tag, branch, or commit, got %d", set)
	case raw.Tag != "":
		*r = Tag(raw.Tag)
	case raw.Branch != "":
		*r = Branch(raw.Branch)
	default:
		*r = Commit(raw.Commit)
	}
	return nil
}

// MarshalYAML renders a Ref back into its tagged-union shape.
func (r Ref) MarshalYAML() (interface{}, error) {
	out := map[string]string{}
	switch r.Kind {
	case RefTag:
		out["tag"] = r.Value
	case RefBranch:
		out["branch"] = r.Value
	case RefCommit:
		out["commit"] = r.Value
	}
	return out, nil
}

// RepoID is an opaque canonical string identifying a remote repository,
// e.g. "github.com/owner/repo" or "dev.azure.com/org/project/repo". It is
// not a fetch URL (spec §3 / glossary).
type RepoID string

// Normalize trims whitespace and URL-decodes the path segment, so that
// two differently-escaped spellings of the same repo compare equal (spec
// §3: "Equality is string equality after normalization").
func (r RepoID) Normalize() RepoID {
	s := strings.TrimSpace(string(r))
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return RepoID(s)
}

func (r RepoID) String() string { return string(r) }

// SourceKind discriminates the two variants of PackageSource.
type SourceKind int

const (
	SourceGit SourceKind = iota
	SourceLocal
)

// PackageSource is the tagged union Git{repo,path,ref} | Local{path} from
// spec §3.
type PackageSource struct {
	Kind SourceKind

	// Git fields.
	Repo RepoID
	Path string // subpath within repo; "" means repo root
	Ref  Ref

	// Local fields.
	LocalPath string
}

// UnmarshalYAML implements the sum-type boundary for PackageSource:
// exactly one of git/local must be set. A Git source must name a repo; its
// path may be empty, meaning the repo root. A Local source must name a
// path.
func (s *PackageSource) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Git *struct {
			Repo string `yaml:"repo"`
			Path string `yaml:"path"`
			Ref  Ref    `yaml:"ref"`
		} `yaml:"git"`
		Local *struct {
			Path string `yaml:"path"`
		} `yaml:"local"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch {
	case raw.Git != nil && raw.Local != nil:
		return fmt.Errorf("package source must specify exactly one of git or local")
	case raw.Git != nil:
		if raw.Git.Repo == "" {
			return fmt.Errorf("git source must specify repo")
		}
		*s = PackageSource{
			Kind: SourceGit,
			Repo: RepoID(raw.Git.Repo).Normalize(),
			Path: strings.Trim(raw.Git.Path, "/"),
			Ref:  raw.Git.Ref,
		}
	case raw.Local != nil:
		if raw.Local.Path == "" {
			return fmt.Errorf("local source must specify path")
		}
		*s = PackageSource{Kind: SourceLocal, LocalPath: raw.Local.Path}
	default:
		return fmt.Errorf("package source must specify exactly one of git or local")
	}
	return nil
}

// MarshalYAML renders a PackageSource back into its tagged-union shape.
func (s PackageSource) MarshalYAML() (interface{}, error) {
	switch s.Kind {
	case SourceGit:
		return map[string]interface{}{
			"git": map[string]interface{}{
				"repo": string(s.Repo),
				"path": s.Path,
				"ref":  s.Ref,
			},
		}, nil
	case SourceLocal:
		return map[string]interface{}{
			"local": map[string]interface{}{
				"path": s.LocalPath,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown package source kind %d", s.Kind)
	}
}

// PackageSpec is the declaration of one package (spec §3).
type PackageSpec struct {
	Name   string `yaml:"-"`
	Source PackageSource
}

// Equal reports whether two specs have equivalent sources, used to detect
// PackageNameCollision (spec §4.5): same name, different source.
func (s PackageSpec) Equal(o PackageSpec) bool {
	if s.Source.Kind != o.Source.Kind {
		return false
	}
	switch s.Source.Kind {
	case SourceGit:
		return s.Source.Repo == o.Source.Repo &&
			s.Source.Path == o.Source.Path &&
			s.Source.Ref == o.Source.Ref
	case SourceLocal:
		return s.Source.LocalPath == o.Source.LocalPath
	default:
		return false
	}
}
