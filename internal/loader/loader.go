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

// Package loader resolves a template's .ffizer.yaml and its transitive
// imports into a TemplateNode tree, in pre-order depth-first declaration
// order (see SPEC_FULL.md §4.B).
package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/abcxyz/pkg/logging"
	"github.com/jinzhu/copier"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
	"github.com/ffizer/ffizer/internal/source"
)

// TemplateNode is one resolved template in the import graph: its own
// metadata, the absolute directory its content lives in, and its imports
// in declaration order.
type TemplateNode struct {
	// URI identifies this node for cycle detection: the canonical source
	// string (local path or git remote+subfolder@rev).
	URI string

	// RootDir is the absolute directory this template was downloaded into.
	RootDir string

	// ContentDir is RootDir joined with the use_template_dir subfolder.
	ContentDir string

	Metadata *model.Metadata
	Imports  []*TemplateNode

	Download *source.DownloadMetadata
}

// LoadParams are the inputs to Load.
type LoadParams struct {
	Source      string
	GitProtocol source.Protocol
	Offline     bool
	Rev         string
	Subfolder   string
	Cwd         string

	// WorkDir is a scratch directory each resolved template (root and every
	// import) is downloaded under, in its own subdirectory.
	WorkDir string
}

// Load resolves params.Source and its full import graph.
func Load(ctx context.Context, p *LoadParams) (*TemplateNode, error) {
	l := &loadState{
		workDir:   p.WorkDir,
		visiting:  map[string]bool{},
		completed: map[string]*TemplateNode{},
		cwd:       p.Cwd,
		offline:   p.Offline,
		protocol:  p.GitProtocol,
		downloadN: 0,
	}
	return l.load(ctx, p.Source, p.Rev, p.Subfolder, nil)
}

type loadState struct {
	workDir   string
	visiting  map[string]bool // URIs currently on the DFS stack, for cycle detection
	completed map[string]*TemplateNode // URIs already fully loaded, for reuse
	cwd       string
	offline   bool
	protocol  source.Protocol
	downloadN int
}

// load downloads one template (root or import) and recurses into its
// imports, in declaration order, pre-order depth first.
func (l *loadState) load(ctx context.Context, src, rev, subfolder string, chain []string) (*TemplateNode, error) {
	logger := logging.FromContext(ctx).With("logger", "loader")

	dl, err := source.Parse(ctx, &source.ParseParams{
		Source:            src,
		GitProtocol:       l.protocol,
		Cwd:               l.cwd,
		Offline:           l.offline,
		RevOverride:       rev,
		SubfolderOverride: subfolder,
	})
	if err != nil {
		return nil, err
	}

	uri := dl.String()
	for _, seen := range chain {
		if seen == uri {
			cycle := append(append([]string{}, chain...), uri)
			return nil, &common.ImportCycleError{Cycle: cycle}
		}
	}
	if l.visiting[uri] {
		cycle := append(append([]string{}, chain...), uri)
		return nil, &common.ImportCycleError{Cycle: cycle}
	}

	// The same template (by canonical URI) may be imported more than once
	// in the tree, e.g. two sibling imports both pulling in a shared base
	// template. Reuse the already-downloaded copy instead of fetching it
	// again, but hand back a deep copy of its Metadata: downstream stages
	// (variable merge, classify) read a node's Metadata by reference, and
	// two tree positions must not be able to mutate each other's state.
	if done, ok := l.completed[uri]; ok {
		logger.DebugContext(ctx, "reusing already-loaded template node", "source", uri)
		var mdCopy model.Metadata
		if err := copier.Copy(&mdCopy, done.Metadata); err != nil {
			return nil, fmt.Errorf("copying metadata for reused import %q: %w", uri, err)
		}
		return &TemplateNode{
			URI:        done.URI,
			RootDir:    done.RootDir,
			ContentDir: done.ContentDir,
			Metadata:   &mdCopy,
			Imports:    done.Imports,
			Download:   done.Download,
		}, nil
	}

	l.visiting[uri] = true
	defer delete(l.visiting, uri)

	l.downloadN++
	destDir := filepath.Join(l.workDir, fmt.Sprintf("n%03d", l.downloadN))

	logger.DebugContext(ctx, "downloading template node", "source", uri, "dest", destDir)
	dm, err := dl.Download(ctx, destDir)
	if err != nil {
		return nil, err
	}

	md, err := readMetadata(destDir)
	if err != nil {
		return nil, model.WrapFileErr(filepath.Join(destDir, model.FileName), err)
	}

	node := &TemplateNode{
		URI:        uri,
		RootDir:    destDir,
		ContentDir: filepath.Join(destDir, md.ContentRoot()),
		Metadata:   md,
		Download:   dm,
	}

	childChain := append(append([]string{}, chain...), uri)
	for _, imp := range md.Imports {
		impSubfolder := ""
		if imp.Subfolder != nil {
			impSubfolder = imp.Subfolder.Val
		}
		child, err := l.load(ctx, imp.URI.Val, imp.RevOrDefault(), impSubfolder, childChain)
		if err != nil {
			return nil, imp.Pos.Errorf("loading import %q: %w", imp.URI.Val, err)
		}
		node.Imports = append(node.Imports, child)
	}

	l.completed[uri] = node
	return node, nil
}

func readMetadata(dir string) (*model.Metadata, error) {
	path := filepath.Join(dir, model.FileName)
	exists, err := common.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &model.Metadata{}, nil
	}
	rfs := &common.RealFS{}
	data, err := rfs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return model.ParseMetadata(data)
}

// Walk visits every node in the tree in pre-order depth-first declaration
// order: the node itself, then each import's subtree in order.
func Walk(n *TemplateNode, visit func(*TemplateNode)) {
	visit(n)
	for _, imp := range n.Imports {
		Walk(imp, visit)
	}
}

// Flatten returns every node in the tree in pre-order depth-first
// declaration order.
func Flatten(n *TemplateNode) []*TemplateNode {
	var out []*TemplateNode
	Walk(n, func(tn *TemplateNode) { out = append(out, tn) })
	return out
}
