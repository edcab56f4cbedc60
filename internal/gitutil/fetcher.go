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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	perrors "github.com/pkg/errors"
	"k8s.io/klog/v2"

	pmerrors "github.com/Warrenn/git-pm/internal/errors"
	"github.com/Warrenn/git-pm/internal/manifest"
	"github.com/Warrenn/git-pm/internal/urlresolve"
)

// CheckoutHandle is the result of EnsureCheckout: where the sparse
// subtree lives and what commit it contains (spec §4.4). LocalDir points
// at the requested path within the cache entry's repo root — i.e. it is
// already joined with path, not the bare cache directory.
type CheckoutHandle struct {
	LocalDir       string
	ResolvedCommit string
}

// FetchURLResolver is the subset of C2 that C4 depends on.
type FetchURLResolver func(repo manifest.RepoID) urlresolve.FetchURL

// Fetcher is C4. One Fetcher is constructed per invocation so that branch
// resolution memoization is scoped correctly (spec §4.4 step 1 / §5:
// "the first reference to (repo, branch) determines the commit; all
// later references observe the same commit").
type Fetcher struct {
	cacheDir   string
	resolveURL FetchURLResolver
	branchMemo map[string]string // "repo\x00branch" -> resolved commit sha
}

// NewFetcher constructs a Fetcher rooted at cacheDir, using resolveURL to
// turn a RepoID into a fetch URL (C2).
func NewFetcher(cacheDir string, resolveURL FetchURLResolver) *Fetcher {
	return &Fetcher{
		cacheDir:   cacheDir,
		resolveURL: resolveURL,
		branchMemo: map[string]string{},
	}
}

// EnsureCheckout implements the public contract of C4 (spec §4.4): given
// (repo, path, ref), ensure a sparse checkout of path at ref exists in
// the cache and return its location and resolved commit.
func (f *Fetcher) EnsureCheckout(ctx context.Context, repo manifest.RepoID, path string, ref manifest.Ref) (CheckoutHandle, error) {
	const op pmerrors.Op = "gitutil.EnsureCheckout"

	resolvedRef := ref
	if ref.Kind == manifest.RefBranch {
		commit, err := f.resolveBranch(ctx, repo, ref.Value)
		if err != nil {
			return CheckoutHandle{}, pmerrors.E(op, err)
		}
		resolvedRef = manifest.Commit(commit)
	}

	key := CacheKey(repo, path, resolvedRef)
	cacheDir := filepath.Join(f.cacheDir, key)
	subtreeDir := cacheDir
	if path != "" {
		subtreeDir = filepath.Join(cacheDir, path)
	}

	if meta, ok := readMetadata(cacheDir); ok && meta.ResolvedCommit != "" {
		klog.V(2).Infof("cache hit for %s path=%q ref=%s at %s", repo, path, resolvedRef, cacheDir)
		return CheckoutHandle{LocalDir: subtreeDir, ResolvedCommit: meta.ResolvedCommit}, nil
	}

	commit, err := f.populate(ctx, repo, path, resolvedRef, cacheDir)
	if err != nil {
		return CheckoutHandle{}, pmerrors.E(op, err)
	}

	if err := writeMetadata(cacheDir, cacheMetadata{
		Repo:           string(repo),
		Path:           path,
		RefType:        resolvedRef.Kind.String(),
		RefValue:       resolvedRef.Value,
		ResolvedCommit: commit,
	}); err != nil {
		return CheckoutHandle{}, pmerrors.E(op, pmerrors.IO, err)
	}

	return CheckoutHandle{LocalDir: subtreeDir, ResolvedCommit: commit}, nil
}

// resolveBranch resolves branch to a commit SHA by asking the remote via
// `ls-remote`. This is the single network operation permitted per
// distinct (repo, branch) pair in one invocation (spec §4.4 step 1); the
// result is memoized for the lifetime of the Fetcher.
func (f *Fetcher) resolveBranch(ctx context.Context, repo manifest.RepoID, branch string) (string, error) {
	const op pmerrors.Op = "gitutil.resolveBranch"

	memoKey := string(repo.Normalize()) + "\x00" + branch
	if commit, ok := f.branchMemo[memoKey]; ok {
		return commit, nil
	}

	fetchURL := f.resolveURL(repo)
	runner, err := scratchRunner()
	if err != nil {
		return "", pmerrors.E(op, err)
	}
	defer os.RemoveAll(runner.Dir)
	runner.ExtraHeader = fetchURL.ExtraHeader

	res, err := runner.Run(ctx, "ls-remote", "--heads", fetchURL.URL, branch)
	if err != nil {
		return "", pmerrors.E(op, classify(err), manifest.RepoID(repo), err)
	}
	line := strings.TrimSpace(res.Stdout)
	if line == "" {
		return "", pmerrors.E(op, pmerrors.RefNotFound,
			fmt.Errorf("branch %q not found in %s", branch, repo))
	}
	fields := strings.Fields(line)
	commit := fields[0]
	f.branchMemo[memoKey] = commit
	return commit, nil
}

// populate performs the sparse-clone described in spec §4.4 step 4: init
// an empty repo, configure sparse checkout for path, fetch only the
// resolved ref, and check out the sparse tree. Returns the actual commit
// checked out.
func (f *Fetcher) populate(ctx context.Context, repo manifest.RepoID, path string, ref manifest.Ref, cacheDir string) (string, error) {
	const op pmerrors.Op = "gitutil.populate"

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", pmerrors.E(op, pmerrors.IO, err)
	}

	runner, err := NewRunner(cacheDir)
	if err != nil {
		return "", pmerrors.E(op, err)
	}

	fetchURL := f.resolveURL(repo)
	runner.ExtraHeader = fetchURL.ExtraHeader

	if _, err := os.Stat(filepath.Join(cacheDir, ".git")); os.IsNotExist(err) {
		if _, err := runner.Run(ctx, "init"); err != nil {
			return "", pmerrors.E(op, pmerrors.Git, err)
		}
		if _, err := runner.Run(ctx, "remote", "add", "origin", fetchURL.URL); err != nil {
			return "", pmerrors.E(op, pmerrors.Git, err)
		}
	}

	if path != "" {
		if _, err := runner.Run(ctx, "sparse-checkout", "init", "--no-cone"); err != nil {
			return "", pmerrors.E(op, pmerrors.Git, err)
		}
		if err := os.WriteFile(filepath.Join(cacheDir, ".git", "info", "sparse-checkout"),
			[]byte("/"+path+"/*\n/"+path+"\n"), 0644); err != nil {
			return "", pmerrors.E(op, pmerrors.IO, err)
		}
	}

	checkoutRef := "FETCH_HEAD"
	if _, err := runner.Run(ctx, "fetch", "--depth=1", "origin", ref.Value); err != nil {
		klog.V(2).Infof("direct fetch of %s failed, falling back to full fetch: %v", ref.Value, err)
		// Some servers reject `fetch <sha>` directly (no
		// allowAnySHA1InWant) and every server's default refspec omits
		// tags, so a bare `fetch origin` leaves FETCH_HEAD pointing at
		// the remote's default HEAD rather than the requested ref.
		// Fetch everything reachable, including tags, and check out
		// the requested ref by name instead of trusting FETCH_HEAD.
		if _, err := runner.Run(ctx, "fetch", "--tags", "origin"); err != nil {
			return "", pmerrors.E(op, classify(err), manifest.RepoID(repo), err)
		}
		checkoutRef = ref.Value
		if ref.Kind == manifest.RefTag {
			checkoutRef = "refs/tags/" + ref.Value
		}
		if _, err := runner.Run(ctx, "show", checkoutRef); err != nil {
			return "", pmerrors.E(op, pmerrors.RefNotFound,
				perrors.Wrapf(err, "ref %q not found in %s", ref.Value, repo))
		}
	}

	if _, err := runner.Run(ctx, "checkout", "--detach", checkoutRef); err != nil {
		return "", pmerrors.E(op, pmerrors.Git, err)
	}

	if path != "" {
		if _, err := os.Stat(filepath.Join(cacheDir, path)); os.IsNotExist(err) {
			return "", pmerrors.E(op, pmerrors.SparsePathEmpty,
				fmt.Errorf("path %q not found in %s@%s", path, repo, ref.Value))
		}
	}

	rev, err := runner.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", pmerrors.E(op, pmerrors.Git, err)
	}
	return strings.TrimSpace(rev.Stdout), nil
}

// scratchRunner returns a Runner rooted at a throwaway directory, used
// only for the ls-remote probe that doesn't need a working tree.
func scratchRunner() (*Runner, error) {
	dir := filepath.Join(os.TempDir(), "git-pm-scratch-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return NewRunner(dir)
}

var authFailurePattern = regexp.MustCompile(
	`(?i)authentication failed|permission denied|could not read username|403 forbidden|401 unauthorized`)

// classify distinguishes AuthFailed from NetworkError based on the
// captured git stderr. Spec §9 flags this distinction as ambiguous for
// "branch exists but unreachable under selected auth"; git-pm resolves
// the ambiguity by pattern-matching the subprocess's stderr for common
// authentication-failure phrasing and treating everything else as a
// NetworkError.
func classify(err error) pmerrors.Kind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		if authFailurePattern.MatchString(execErr.Stderr) {
			return pmerrors.AuthFailed
		}
	}
	return pmerrors.NetworkError
}
