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

// Package plan holds the Action/Plan types produced by the classifier and
// consumed by the executor, and the merge logic that turns the
// per-template-node action lists into one ordered, deduplicated Plan (see
// SPEC_FULL.md §4.G).
package plan

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies what an Action does to the destination tree.
type Kind int

const (
	MkDir Kind = iota
	CopyRaw
	CopyRender
	Keep
)

func (k Kind) String() string {
	switch k {
	case MkDir:
		return "mkdir"
	case CopyRaw:
		return "copyraw"
	case CopyRender:
		return "copyrender"
	case Keep:
		return "keep"
	default:
		return "unknown"
	}
}

// Action is one unit of work against the destination directory, already
// resolved to its final destination path.
type Action struct {
	Kind Kind

	// Dst is the path relative to the destination root, using "/" separators.
	Dst string

	// SrcAbsPath is the source file to copy from; empty for MkDir/Keep.
	SrcAbsPath string

	// RenderContent is true if SrcAbsPath's content must be rendered
	// (Strict mode) before writing; only meaningful for CopyRender.
	RenderContent bool

	// sourcePriority is the position of the template node that produced
	// this action in the overall traversal order; lower wins ties when
	// deduping (see Merge).
	sourcePriority int
}

// Build constructs an unmerged, single-node list of actions in the order
// the classifier produced them, tagging them with their traversal
// priority for later deduplication by Merge.
func Build(actions []Action, priority int) []Action {
	out := make([]Action, len(actions))
	for i, a := range actions {
		a.sourcePriority = priority
		out[i] = a
	}
	return out
}

// Merge concatenates per-node action lists (already in traversal order),
// dedupes by destination path with first-wins semantics (a MkDir never
// conflicts with another MkDir), stable-sorts so ancestors precede
// descendants and directories precede files at the same level, and adds
// any missing ancestor MkDir actions.
func Merge(perNode [][]Action) []Action {
	var all []Action
	for _, lst := range perNode {
		all = append(all, lst...)
	}

	seen := map[string]bool{}
	var deduped []Action
	for _, a := range all {
		if a.Kind == MkDir {
			if seen["dir:"+a.Dst] {
				continue
			}
			seen["dir:"+a.Dst] = true
			deduped = append(deduped, a)
			continue
		}
		if seen["file:"+a.Dst] {
			continue
		}
		seen["file:"+a.Dst] = true
		deduped = append(deduped, a)
	}

	deduped = addMissingAncestorDirs(deduped)

	sort.SliceStable(deduped, func(i, j int) bool {
		return less(deduped[i], deduped[j])
	})

	return deduped
}

// addMissingAncestorDirs inserts a MkDir action for every ancestor
// directory of every action's Dst that doesn't already have one.
func addMissingAncestorDirs(actions []Action) []Action {
	haveDir := map[string]bool{".": true, "": true}
	for _, a := range actions {
		if a.Kind == MkDir {
			haveDir[a.Dst] = true
		}
	}

	out := append([]Action{}, actions...)
	for _, a := range actions {
		for _, anc := range ancestors(a.Dst) {
			if !haveDir[anc] {
				haveDir[anc] = true
				out = append(out, Action{Kind: MkDir, Dst: anc})
			}
		}
	}
	return out
}

// ancestors returns every proper ancestor directory of p (excluding "."),
// shallowest first.
func ancestors(p string) []string {
	dir := filepath.ToSlash(filepath.Dir(p))
	if dir == "." || dir == "" {
		return nil
	}
	parts := strings.Split(dir, "/")
	var out []string
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], "/"))
	}
	return out
}

// less orders a before b: shallower paths (fewer separators) before
// deeper ones, directories before files at the same depth, then
// lexicographic by path.
func less(a, b Action) bool {
	da, db := depth(a.Dst), depth(b.Dst)
	if da != db {
		return da < db
	}
	aDir, bDir := a.Kind == MkDir, b.Kind == MkDir
	if aDir != bDir {
		return aDir
	}
	return a.Dst < b.Dst
}

func depth(p string) int {
	if p == "" || p == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(p), "/")
}
