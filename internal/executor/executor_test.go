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

package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/plan"
	"github.com/ffizer/ffizer/internal/render"
)

// scriptedPrompter returns each of answers in order, once per call.
type scriptedPrompter struct {
	answers []string
	i       int
}

func (p *scriptedPrompter) Confirm(ctx context.Context, prompt string) (string, error) {
	if p.i >= len(p.answers) {
		return "", errors.New("scriptedPrompter ran out of answers")
	}
	a := p.answers[p.i]
	p.i++
	return a, nil
}

func writeSrcFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), common.OwnerRWPerms); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestApplyCreatesFilesAndDirs(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "README.md", "hello {{ .name }}")

	p := []plan.Action{
		{Kind: plan.MkDir, Dst: "out"},
		{Kind: plan.CopyRender, Dst: "out/README.md", SrcAbsPath: src, RenderContent: true},
	}

	res, err := Apply(context.Background(), &Options{
		Plan:    p,
		DstRoot: dstDir,
		FS:      &common.RealFS{},
		Confirm: ConfirmNever,
		Engine:  render.New(true, nil),
		Scope:   common.NewScope(map[string]string{"name": "world"}),
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if diff := cmp.Diff([]string{"out/README.md"}, res.Created); diff != "" {
		t.Errorf("Created mismatch (-want +got):\n%s", diff)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "out", "README.md"))
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if diff := cmp.Diff("hello world", string(got)); diff != "" {
		t.Errorf("rendered content mismatch (-want +got):\n%s", diff)
	}
}

func TestApplySkipsIdenticalContent(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "same.txt", "unchanged")

	if err := os.WriteFile(filepath.Join(dstDir, "same.txt"), []byte("unchanged"), common.OwnerRWPerms); err != nil {
		t.Fatal(err)
	}

	res, err := Apply(context.Background(), &Options{
		Plan:    []plan.Action{{Kind: plan.CopyRaw, Dst: "same.txt", SrcAbsPath: src}},
		DstRoot: dstDir,
		FS:      &common.RealFS{},
		Confirm: ConfirmNever,
		Engine:  render.New(true, nil),
		Scope:   common.NewScope(nil),
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if diff := cmp.Diff([]string{"same.txt"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "new.txt", "content")

	var stdout bytes.Buffer
	_, err := Apply(context.Background(), &Options{
		Plan: []plan.Action{
			{Kind: plan.MkDir, Dst: "sub"},
			{Kind: plan.CopyRaw, Dst: "new.txt", SrcAbsPath: src},
			{Kind: plan.CopyRender, Dst: "sub/rendered.txt", SrcAbsPath: src, RenderContent: true},
			{Kind: plan.Keep, Dst: "kept.txt"},
		},
		DstRoot: dstDir,
		FS:      &common.RealFS{},
		DryRun:  true,
		Confirm: ConfirmNever,
		Engine:  render.New(true, nil),
		Scope:   common.NewScope(nil),
		Stdout:  &stdout,
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if exists, _ := common.Exists(filepath.Join(dstDir, "new.txt")); exists {
		t.Error("dry run wrote a file to the destination")
	}
	if exists, _ := common.Exists(filepath.Join(dstDir, "sub")); exists {
		t.Error("dry run created a directory in the destination")
	}

	want := "mkdir \"sub\"\n" +
		"copyraw \"new.txt\"\n" +
		"copyrender \"sub/rendered.txt\"\n" +
		"keep \"kept.txt\"\n"
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Errorf("dry-run plan output mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyDryRunPrintsKeepForIdenticalContent(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "same.txt", "unchanged")
	if err := os.WriteFile(filepath.Join(dstDir, "same.txt"), []byte("unchanged"), common.OwnerRWPerms); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	_, err := Apply(context.Background(), &Options{
		Plan:    []plan.Action{{Kind: plan.CopyRaw, Dst: "same.txt", SrcAbsPath: src}},
		DstRoot: dstDir,
		FS:      &common.RealFS{},
		DryRun:  true,
		Confirm: ConfirmNever,
		Engine:  render.New(true, nil),
		Scope:   common.NewScope(nil),
		Stdout:  &stdout,
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if diff := cmp.Diff("keep \"same.txt\"\n", stdout.String()); diff != "" {
		t.Errorf("dry-run plan output mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyConfirmAlwaysUpgradesToNever(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src1 := writeSrcFile(t, srcDir, "one.txt", "one")
	src2 := writeSrcFile(t, srcDir, "two.txt", "two")

	prompter := &scriptedPrompter{answers: []string{"always"}}

	res, err := Apply(context.Background(), &Options{
		Plan: []plan.Action{
			{Kind: plan.CopyRaw, Dst: "one.txt", SrcAbsPath: src1},
			{Kind: plan.CopyRaw, Dst: "two.txt", SrcAbsPath: src2},
		},
		DstRoot:  dstDir,
		FS:       &common.RealFS{},
		Confirm:  ConfirmAlways,
		Engine:   render.New(true, nil),
		Scope:    common.NewScope(nil),
		Prompter: prompter,
		Stdout:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if diff := cmp.Diff([]string{"one.txt", "two.txt"}, res.Created); diff != "" {
		t.Errorf("Created mismatch (-want +got):\n%s", diff)
	}
	if prompter.i != 1 {
		t.Errorf("prompter was asked %d times, want exactly 1 (second write should have been auto-approved)", prompter.i)
	}
}

func TestApplyConfirmQuitAborts(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "one.txt", "one")

	prompter := &scriptedPrompter{answers: []string{"quit"}}

	_, err := Apply(context.Background(), &Options{
		Plan:     []plan.Action{{Kind: plan.CopyRaw, Dst: "one.txt", SrcAbsPath: src}},
		DstRoot:  dstDir,
		FS:       &common.RealFS{},
		Confirm:  ConfirmAlways,
		Engine:   render.New(true, nil),
		Scope:    common.NewScope(nil),
		Prompter: prompter,
		Stdout:   &bytes.Buffer{},
	})
	var aborted *common.UserAbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error %v is not a UserAbortedError", err)
	}
}

func TestApplyConfirmNoSkips(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := writeSrcFile(t, srcDir, "one.txt", "new-content")
	if err := os.WriteFile(filepath.Join(dstDir, "one.txt"), []byte("old-content"), common.OwnerRWPerms); err != nil {
		t.Fatal(err)
	}

	prompter := &scriptedPrompter{answers: []string{"n"}}

	res, err := Apply(context.Background(), &Options{
		Plan:     []plan.Action{{Kind: plan.CopyRaw, Dst: "one.txt", SrcAbsPath: src}},
		DstRoot:  dstDir,
		FS:       &common.RealFS{},
		Confirm:  ConfirmAlways,
		Engine:   render.New(true, nil),
		Scope:    common.NewScope(nil),
		Prompter: prompter,
		Stdout:   &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if diff := cmp.Diff([]string{"one.txt"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "one.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("old-content", string(got)); diff != "" {
		t.Errorf("file should not have been overwritten (-want +got):\n%s", diff)
	}
}
