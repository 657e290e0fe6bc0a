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

package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffizer/ffizer/internal/loader"
	"github.com/ffizer/ffizer/internal/model"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".ffizer.yaml":      "variables: []\n",
		"README.md":         "hello",
		"build/out.log":     "ignored",
		"src/main.go":       "package main",
		".git/HEAD":         "ref: refs/heads/main",
	})

	node := &loader.TemplateNode{
		ContentDir: root,
		Metadata: &model.Metadata{
			Ignores: []model.String{{Val: "build/"}},
		},
	}

	entries, err := Walk(node)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	var relPaths []string
	for _, e := range entries {
		relPaths = append(relPaths, e.RelPath)
	}
	sort.Strings(relPaths)

	want := []string{"README.md", "src", "src/main.go"}
	if diff := cmp.Diff(want, relPaths); diff != "" {
		t.Errorf("Walk() entries mismatch (-want +got):\n%s", diff)
	}
}
