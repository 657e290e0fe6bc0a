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

package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/common"
)

// gitDownloader resolves a template source hosted in a git repository,
// cloned with go-git rather than shelling out to the git binary. For ssh,
// credentials come only from an unencrypted key file at ~/.ssh/id_ed25519
// or ~/.ssh/id_rsa; https remotes are accessed without credentials. No
// ssh-agent, git credential helper or prompt callback is consulted.
type gitDownloader struct {
	remote    string
	subfolder string
	rev       string
	protocol  Protocol
	// Offline, if true, forbids network access: the cache entry must
	// already exist and contain the requested revision.
	Offline bool
}

func (g *gitDownloader) String() string {
	s := g.remote
	if g.subfolder != "" {
		s += "/" + g.subfolder
	}
	if g.rev != "" {
		s += "@" + g.rev
	}
	return s
}

func (g *gitDownloader) auth() (transport.AuthMethod, error) {
	if g.protocol != ProtocolSSH {
		return nil, nil //nolint:nilnil // https clones are made without credentials
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory for ssh key lookup: %w", err)
	}
	keyPath := filepath.Join(home, ".ssh", "id_ed25519")
	if _, err := os.Stat(keyPath); err != nil {
		keyPath = filepath.Join(home, ".ssh", "id_rsa")
	}
	auth, err := gitssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("loading ssh key from %q: %w", keyPath, err)
	}
	return auth, nil
}

// Download fetches the template at g.remote@g.rev into the on-disk cache
// (creating or updating the clone as needed) and copies it into destDir.
//
// Cache layout: <user-cache-dir>/ffizer/git/<sha1(remote)>/<rev>, a plain
// git checkout, locked with a per-entry file lock while it's being
// created or refreshed (see SPEC_FULL.md §4.A, §6 "Cache layout").
func (g *gitDownloader) Download(ctx context.Context, destDir string) (*DownloadMetadata, error) {
	logger := logging.FromContext(ctx).With("logger", "gitDownloader")

	entryDir, err := cacheEntryDir(g.remote, g.rev)
	if err != nil {
		return nil, err
	}
	unlock, err := cacheLock(entryDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	repo, fromCache, err := g.openOrClone(ctx, entryDir)
	if err != nil {
		return nil, err
	}

	hash, err := resolveRevision(repo, g.rev)
	if err != nil {
		if fromCache && !g.Offline {
			return nil, fmt.Errorf("revision %q not found even after fetching %q: %w", g.rev, g.remote, err)
		}
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return nil, fmt.Errorf("checking out revision %q: %w", g.rev, err)
	}

	srcDir := entryDir
	if g.subfolder != "" {
		srcDir = filepath.Join(entryDir, g.subfolder)
		if exists, _ := common.Exists(srcDir); !exists {
			return nil, &common.SubfolderMissingError{URI: g.remote, Subfolder: g.subfolder}
		}
	}

	canonical, err := canonicalVersion(repo, *hash)
	if err != nil {
		logger.WarnContext(ctx, "failed computing canonical git version, falling back to requested revision", "error", err)
		canonical = g.rev
	}

	if err := copyGitWorktree(ctx, srcDir, destDir); err != nil {
		return nil, err
	}

	return &DownloadMetadata{
		URI:       g.remote,
		Subfolder: g.subfolder,
		Revision:  canonical,
	}, nil
}

// openOrClone opens an existing cache entry or performs a fresh clone into
// it. When the cache entry already exists and g.Offline is set, the
// network is never touched. When the cache entry exists but g.Offline is
// false, it's updated with a fetch; if that fetch fails (e.g. the network
// is down), the stale cache entry is used anyway with a warning, per the
// "network failure with a usable cache" fallback.
func (g *gitDownloader) openOrClone(ctx context.Context, entryDir string) (repo *git.Repository, fromCache bool, err error) {
	logger := logging.FromContext(ctx).With("logger", "gitDownloader")

	existing, openErr := git.PlainOpen(entryDir)
	if openErr == nil {
		if g.Offline {
			return existing, true, nil
		}
		auth, authErr := g.auth()
		if authErr != nil {
			return nil, false, authErr
		}
		fetchErr := existing.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Auth:       auth,
			Tags:       git.AllTags,
			Force:      true,
		})
		if fetchErr != nil && fetchErr != git.NoErrAlreadyUpToDate {
			logger.WarnContext(ctx, "fetch failed, falling back to cached clone", "remote", g.remote, "error", fetchErr)
		}
		return existing, true, nil
	}

	if g.Offline {
		return nil, false, fmt.Errorf("--offline was set but %q is not in the local cache: %w", g.remote, openErr)
	}

	auth, authErr := g.auth()
	if authErr != nil {
		return nil, false, authErr
	}

	logger.DebugContext(ctx, "cloning git source into cache", "remote", g.remote, "entry", entryDir)
	cloned, cloneErr := git.PlainCloneContext(ctx, entryDir, false, &git.CloneOptions{
		URL:  g.remote,
		Auth: auth,
		Tags: git.AllTags,
	})
	if cloneErr != nil {
		return nil, false, &common.SourceNotFoundError{Source: g.remote, Wrapped: cloneErr}
	}
	return cloned, false, nil
}

// copyGitWorktree copies a checked-out tree, skipping the .git directory and
// dereferencing symlinks (a symlinked file is copied as a regular file;
// symlinks are not rejected, including ones pointing outside the repo).
func copyGitWorktree(ctx context.Context, srcDir, destDir string) error {
	rfs := &common.RealFS{}
	return common.CopyRecursive(ctx, nil, &common.CopyParams{
		SrcRoot: srcDir,
		DstRoot: destDir,
		FS:      rfs,
		Visitor: func(relPath string, de fs.DirEntry) (common.CopyHint, error) {
			if strings.HasPrefix(relPath, ".git"+string(filepath.Separator)) || relPath == ".git" {
				return common.CopyHint{Skip: true}, nil
			}
			return common.CopyHint{AllowPreexisting: true}, nil
		},
	})
}

// resolveRevision turns a branch, tag, or short/long SHA into a concrete
// commit hash.
func resolveRevision(repo *git.Repository, rev string) (*plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("could not resolve git revision %q: %w", rev, err)
	}
	return h, nil
}

// canonicalVersion picks the "best" human-readable name for the checked-out
// commit: the highest semver tag pointing at it, else the highest
// non-semver tag alphabetically, else the full commit SHA.
func canonicalVersion(repo *git.Repository, commit plumbing.Hash) (string, error) {
	tagRefs, err := repo.Tags()
	if err != nil {
		return commit.String(), fmt.Errorf("listing tags: %w", err)
	}

	var semverTags []*semver.Version
	var otherTags []string

	if err := tagRefs.ForEach(func(ref *plumbing.Reference) error {
		tagCommit, err := repo.ResolveRevision(plumbing.Revision(ref.Name().String()))
		if err != nil || *tagCommit != commit {
			return nil //nolint:nilerr // tags we can't resolve, or that don't point here, are simply skipped
		}
		name := ref.Name().Short()
		if v, err := semver.NewVersion(strings.TrimPrefix(name, "v")); err == nil {
			semverTags = append(semverTags, v)
		} else {
			otherTags = append(otherTags, name)
		}
		return nil
	}); err != nil {
		return commit.String(), fmt.Errorf("iterating tags: %w", err)
	}

	if len(semverTags) > 0 {
		sort.Sort(sort.Reverse(semver.Collection(semverTags)))
		return "v" + semverTags[0].Original(), nil
	}
	if len(otherTags) > 0 {
		sort.Sort(sort.Reverse(sort.StringSlice(otherTags)))
		return otherTags[0], nil
	}
	return commit.String(), nil
}
