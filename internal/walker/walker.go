// Copyright 2024 The Authors (see AUTHORS file)
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

// Package walker enumerates a template node's content tree into
// SourceEntry values, filtering out anything matched by the node's own
// ignore globs (see SPEC_FULL.md §4.D).
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/ffizer/ffizer/internal/loader"
	"github.com/ffizer/ffizer/internal/model"
)

// SourceEntry is one file or directory found while walking a template
// node's content root, before any name rewriting or rendering.
type SourceEntry struct {
	// Node is the template node this entry belongs to.
	Node *loader.TemplateNode

	// RelPath is the path relative to Node.ContentDir, using "/" separators.
	RelPath string

	// AbsPath is the entry's absolute path on disk.
	AbsPath string

	IsDir bool
}

// Walk enumerates every file and directory under node.ContentDir, skipping
// ".ffizer.yaml" itself, anything under ".git", and anything matched by
// one of node's own ignore globs. Ignore globs never apply across node
// boundaries: each node's ignores only filter that node's own entries.
func Walk(node *loader.TemplateNode) ([]SourceEntry, error) {
	var patterns []gitignore.Pattern
	for _, ig := range node.Metadata.Ignores {
		patterns = append(patterns, gitignore.ParsePattern(ig.Val, nil))
	}
	matcher := gitignore.NewMatcher(patterns)

	var entries []SourceEntry
	err := filepath.WalkDir(node.ContentDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == node.ContentDir {
			return nil
		}
		rel, err := filepath.Rel(node.ContentDir, path)
		if err != nil {
			return fmt.Errorf("filepath.Rel: %w", err)
		}
		relSlash := filepath.ToSlash(rel)

		if relSlash == model.FileName {
			return nil
		}

		parts := strings.Split(relSlash, "/")
		if matcher.Match(parts, de.IsDir()) {
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if relSlash == ".git" || strings.HasPrefix(relSlash, ".git/") {
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		entries = append(entries, SourceEntry{
			Node:    node,
			RelPath: relSlash,
			AbsPath: path,
			IsDir:   de.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", node.ContentDir, err)
	}
	return entries, nil
}

// WalkAll enumerates every node in the tree, in pre-order depth-first
// declaration order, concatenating their entries.
func WalkAll(root *loader.TemplateNode) ([]SourceEntry, error) {
	var out []SourceEntry
	for _, n := range loader.Flatten(root) {
		entries, err := Walk(n)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}
