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

// Package urlresolve implements C2: mapping a canonical RepoID into a
// protocol-qualified fetch URL plus any extra git-config header needed
// for authentication (spec §4.2).
package urlresolve

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Warrenn/git-pm/internal/config"
	"github.com/Warrenn/git-pm/internal/manifest"
)

// FetchURL is what C2 hands to C4: a URL git can clone from, plus an
// optional "Name: value" HTTP header line to pass as
// `-c http.extraheader=<value>` on the fetch command (never persisted).
type FetchURL struct {
	URL         string
	ExtraHeader string // e.g. "Authorization: bearer <token>"
}

const azureHost = "dev.azure.com"

// Resolve implements the five recognition rules of spec §4.2, in order,
// first match wins. It never fails: an unrecognized host with no
// applicable pattern and no protocol preference falls through to SSH
// (rule 5); auth failures surface later as fetch errors.
func Resolve(repo manifest.RepoID, cfg config.Config, hints config.AuthHints) FetchURL {
	host, segments := splitHostPath(repo)

	// Rule 1: explicit url_patterns override.
	if tmpl, ok := cfg.URLPatterns[host]; ok {
		path := strings.Join(segments, "/")
		return FetchURL{URL: strings.ReplaceAll(tmpl, "{path}", path)}
	}

	// Rule 2: Azure DevOps with an available auth source.
	if host == azureHost && len(segments) >= 3 {
		org, project, name := segments[0], segments[1], strings.Join(segments[2:], "/")
		if hints.SystemAccessToken != "" {
			return FetchURL{
				URL:         fmt.Sprintf("https://%s/%s/%s/_git/%s", azureHost, org, project, name),
				ExtraHeader: "Authorization: bearer " + hints.SystemAccessToken,
			}
		}
		if hints.AzureDevOpsPAT != "" {
			return FetchURL{
				URL: fmt.Sprintf("https://%s:%s@%s/%s/%s/_git/%s",
					"pat", hints.AzureDevOpsPAT, azureHost, org, project, name),
			}
		}
		if pat, ok := hints.HostTokens[host]; ok && pat != "" {
			return FetchURL{
				URL: fmt.Sprintf("https://%s:%s@%s/%s/%s/_git/%s",
					"pat", pat, azureHost, org, project, name),
			}
		}
	}

	// Rule 3: generic per-host token.
	if token, ok := hints.HostTokens[host]; ok && token != "" {
		path := strings.Join(segments, "/")
		userinfo := "oauth2:" + token
		if bareTokenHosts[host] {
			userinfo = token
		}
		return FetchURL{URL: fmt.Sprintf("https://%s@%s/%s", userinfo, host, path)}
	}

	// Rule 4: configured protocol preference of https.
	if cfg.GitProtocol[host] == "https" {
		path := strings.Join(segments, "/")
		return FetchURL{URL: fmt.Sprintf("https://%s/%s", host, path)}
	}

	// Rule 5: default to SSH.
	if host == azureHost && len(segments) >= 3 {
		org, project, name := segments[0], segments[1], strings.Join(segments[2:], "/")
		return FetchURL{URL: fmt.Sprintf("git@ssh.%s:v3/%s/%s/%s", azureHost, org, project, name)}
	}
	path := strings.Join(segments, "/")
	return FetchURL{URL: fmt.Sprintf("git@%s:%s", host, path)}
}

// bareTokenHosts lists hosts whose token-auth convention expects a bare
// token as userinfo rather than the "oauth2:<token>" form GitLab/GitHub
// App installations expect.
var bareTokenHosts = map[string]bool{
	"bitbucket.org": true,
}

// splitHostPath breaks a normalized RepoID into its host and path
// segments.
func splitHostPath(repo manifest.RepoID) (host string, segments []string) {
	s := string(repo.Normalize())
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "ssh://")
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	parts := strings.Split(s, "/")
	if len(parts) == 0 {
		return "", nil
	}
	host = parts[0]
	segments = parts[1:]
	// strip an Azure DevOps "_git" marker segment if present, so the
	// canonical segments are always (org, project, repo) regardless of
	// whether the input spelled out the _git/ form.
	var cleaned []string
	for _, seg := range segments {
		if seg == "_git" {
			continue
		}
		cleaned = append(cleaned, seg)
	}
	return host, cleaned
}

// ParseRepoID normalizes any of the accepted input forms — SSH, HTTPS
// with or without embedded userinfo, HTTPS with or without the Azure
// "_git/" segment, shorthand with or without "_git/" — into a canonical
// RepoID of the form "host/path/segments" (spec §4.2's "Input
// normalization").
func ParseRepoID(raw string) (manifest.RepoID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty repo")
	}

	// SSH form: git@host:path or git@ssh.host:v3/org/project/repo
	if strings.HasPrefix(raw, "git@") {
		rest := strings.TrimPrefix(raw, "git@")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("malformed ssh repo url: %s", raw)
		}
		host, path := parts[0], parts[1]
		host = strings.TrimPrefix(host, "ssh.")
		path = strings.TrimPrefix(path, "v3/")
		return canonicalize(host, path), nil
	}

	// HTTPS/HTTP/SSH-scheme forms, with or without userinfo.
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("malformed repo url %q: %w", raw, err)
		}
		return canonicalize(u.Host, strings.TrimPrefix(u.Path, "/")), nil
	}

	// Shorthand: host/path[/...], with or without a literal "_git/" marker.
	return canonicalize("", raw), nil
}

// canonicalize joins host and path (stripping scheme/".git"/"_git" noise)
// into the single host/path... canonical form.
func canonicalize(host, path string) manifest.RepoID {
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	full := path
	if host != "" {
		full = host + "/" + path
	}
	parts := strings.Split(full, "/")
	var cleaned []string
	for _, p := range parts {
		if p == "" || p == "_git" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return manifest.RepoID(strings.Join(cleaned, "/"))
}
