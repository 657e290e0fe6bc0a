// Copyright 2023 The Authors (see AUTHORS file)
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

// Package source resolves a template source string (a local path or a git
// shorthand URI) into a directory on disk that the loader can read.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
)

// Downloader fetches a template's content to a local directory and reports
// what version it ended up at.
type Downloader interface {
	// Download places the template's files under destDir and returns
	// metadata about what was fetched.
	Download(ctx context.Context, destDir string) (*DownloadMetadata, error)

	// String returns a human-readable description of this source, for logs
	// and prompts.
	String() string
}

// DownloadMetadata records where a template actually came from, stamped
// into the ffizer_src_* builtin variables (see SPEC_FULL.md §4.I).
type DownloadMetadata struct {
	// URI is the normalized source location (a filesystem path or a git
	// remote URL).
	URI string
	// Subfolder is the path within the source tree that contains the
	// template, if any.
	Subfolder string
	// Revision is the git revision that was checked out, or "" for a local
	// source.
	Revision string
	// IsLocal is true when the source was a local filesystem path, in which
	// case Revision is always empty.
	IsLocal bool
}

// gitShorthandRE recognizes sources like
// "github.com/org/repo/subdir@v1.2.3" or "gitlab.com/org/repo@latest".
var gitShorthandRE = regexp.MustCompile(
	`^` +
		`(?P<host>github\.com|gitlab\.com)` +
		`/` +
		`(?P<org>[a-zA-Z0-9_-]+)` +
		`/` +
		`(?P<repo>[a-zA-Z0-9_.-]+)` +
		`(/(?P<subdir>[^@]*))?` +
		`(@(?P<rev>[a-zA-Z0-9_/.-]+))?` +
		`$`)

// Protocol selects how a shorthand git host URI is expanded to a remote
// URL, corresponding to the --git-protocol flag.
type Protocol string

const (
	ProtocolHTTPS Protocol = "https"
	ProtocolSSH   Protocol = "ssh"
)

// ParseParams are the inputs to Parse.
type ParseParams struct {
	// Source is the raw value given on the command line: a local path, a
	// git shorthand ("host/org/repo[/subdir][@rev]"), or a full git URL
	// (https://... or git@...).
	Source string
	// GitProtocol selects https vs ssh for expanding shorthand hosts.
	GitProtocol Protocol
	// Cwd is used to resolve relative local paths; defaults to os.Getwd().
	Cwd string
	// Offline forbids network access; a git source must already be cached.
	Offline bool
	// RevOverride, if non-empty, overrides any revision parsed out of
	// Source (used for the root template's --rev flag).
	RevOverride string
	// SubfolderOverride, if non-empty, overrides any subfolder parsed out
	// of Source (used for the root template's --source-subfolder flag).
	SubfolderOverride string
}

// Parse maps a raw source string to a Downloader.
func Parse(ctx context.Context, p *ParseParams) (Downloader, error) {
	if strings.HasSuffix(p.Source, "/"+model.FileName) || p.Source == model.FileName {
		return nil, fmt.Errorf("the template source argument should be the name of a directory *containing* %s; it should not be the full path to %s",
			model.FileName, model.FileName)
	}

	cwd := p.Cwd
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed getting working directory: %w", err)
		}
	}

	if m := gitShorthandRE.FindStringSubmatch(p.Source); m != nil {
		groups := namedGroups(gitShorthandRE, m)
		remote := expandRemote(p.GitProtocol, groups["host"], groups["org"], groups["repo"])
		rev := groups["rev"]
		if rev == "" {
			rev = "master"
		}
		return &gitDownloader{
			remote:    remote,
			subfolder: firstNonEmpty(p.SubfolderOverride, groups["subdir"]),
			rev:       firstNonEmpty(p.RevOverride, rev),
			protocol:  p.GitProtocol,
			Offline:   p.Offline,
		}, nil
	}

	if strings.HasPrefix(p.Source, "https://") || strings.HasPrefix(p.Source, "git@") || strings.HasSuffix(p.Source, ".git") {
		return &gitDownloader{
			remote:    p.Source,
			rev:       firstNonEmpty(p.RevOverride, "master"),
			subfolder: p.SubfolderOverride,
			protocol:  p.GitProtocol,
			Offline:   p.Offline,
		}, nil
	}

	// Anything else is treated as a local path, absolute or relative to cwd.
	abs := common.JoinIfRelative(cwd, p.Source)
	exists, err := common.Exists(abs)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &common.SourceNotFoundError{Source: p.Source, Wrapped: fmt.Errorf("no such file or directory")}
	}
	if p.SubfolderOverride != "" {
		sub := filepath.Join(abs, p.SubfolderOverride)
		subExists, err := common.Exists(sub)
		if err != nil {
			return nil, err
		}
		if !subExists {
			return nil, &common.SubfolderMissingError{URI: abs, Subfolder: p.SubfolderOverride}
		}
		abs = sub
	}
	return &localDownloader{path: abs}, nil
}

func expandRemote(proto Protocol, host, org, repo string) string {
	if proto == ProtocolSSH {
		return fmt.Sprintf("git@%s:%s/%s.git", host, org, repo)
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, org, repo)
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	out := map[string]string{}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		out[name] = match[i]
	}
	return out
}
