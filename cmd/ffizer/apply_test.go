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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTemplateFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestApplyCommandRunEndToEnd(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()

	writeTemplateFile(t, filepath.Join(srcDir, ".ffizer.yaml"), `
variables:
  - name: 'project_name'
    default_value: 'demo'
`)
	writeTemplateFile(t, filepath.Join(srcDir, "README.md.ffizer.hbs"), "# {{ .project_name }}\n")
	writeTemplateFile(t, filepath.Join(srcDir, "LICENSE"), "# {{ .project_name }}\n")

	var cmd ApplyCommand
	var stdout bytes.Buffer
	cmd.SetStdout(&stdout)

	err := cmd.Run(context.Background(), []string{
		"--source", srcDir,
		"--destination", dstDir,
		"--x-always-default-value",
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "README.md"))
	if err != nil {
		t.Fatalf("rendered output missing: %v", err)
	}
	if diff := cmp.Diff("# demo\n", string(got)); diff != "" {
		t.Errorf("rendered content mismatch (-want +got):\n%s", diff)
	}

	gotRaw, err := os.ReadFile(filepath.Join(dstDir, "LICENSE"))
	if err != nil {
		t.Fatalf("copied output missing: %v", err)
	}
	if diff := cmp.Diff("# {{ .project_name }}\n", string(gotRaw)); diff != "" {
		t.Errorf("unsuffixed file should be copied verbatim, not rendered (-want +got):\n%s", diff)
	}
}

func TestApplyCommandRunRejectsBadConfirmValue(t *testing.T) {
	t.Parallel()

	var cmd ApplyCommand
	err := cmd.Run(context.Background(), []string{
		"--source", t.TempDir(),
		"--confirm", "sometimes",
	})
	if err == nil {
		t.Fatal("expected an error for an invalid --confirm value")
	}
}

func TestApplyCommandRunRequiresSource(t *testing.T) {
	t.Parallel()

	var cmd ApplyCommand
	err := cmd.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected an error when --source is missing")
	}
}
