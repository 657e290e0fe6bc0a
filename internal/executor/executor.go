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

// Package executor applies a merged plan.Action list to the destination
// directory: creating directories, writing raw or rendered file content,
// optionally diffing against any pre-existing file and prompting for
// confirmation before overwriting (see SPEC_FULL.md §4.H).
package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
	"github.com/ffizer/ffizer/internal/plan"
	"github.com/ffizer/ffizer/internal/render"
)

// ConfirmPolicy controls whether the executor prompts before overwriting an
// existing destination file.
type ConfirmPolicy int

const (
	// ConfirmNever applies every action without prompting.
	ConfirmNever ConfirmPolicy = iota
	// ConfirmAlways prompts before any write that would overwrite or create
	// a file, showing a diff for overwrites.
	ConfirmAlways
)

// ConfirmPrompter asks the user to confirm one pending write.
type ConfirmPrompter interface {
	// Confirm shows prompt and returns the user's choice: "y", "n", "a"
	// (always, upgrading the policy to ConfirmNever for the rest of the
	// run), or "q" (quit, aborting the run).
	Confirm(ctx context.Context, prompt string) (string, error)
}

// Options groups the inputs to Apply.
type Options struct {
	Plan    []plan.Action
	DstRoot string
	FS      common.FS

	DryRun  bool
	Confirm ConfirmPolicy

	// Engine and Scope render CopyRender actions' content in Strict mode.
	Engine *render.Engine
	Scope  *common.Scope

	Prompter ConfirmPrompter
	Stdout   io.Writer

	// BackupDirMaker creates (once, lazily) a directory to hold pre-overwrite
	// backups of clobbered files. May be nil if backups are not wanted.
	BackupDirMaker func(common.FS) (string, error)
}

// Result summarizes what Apply did, for reporting to the user.
type Result struct {
	Created []string
	Updated []string
	Skipped []string
}

// Apply executes every action in opts.Plan, in order (the plan is already
// topologically sorted so that directories precede their contents).
func Apply(ctx context.Context, opts *Options) (*Result, error) {
	logger := logging.FromContext(ctx).With("logger", "executor.Apply")

	res := &Result{}
	policy := opts.Confirm
	var backupDir string

	resolvedPlan, err := resolveKeeps(opts)
	if err != nil {
		return res, err
	}

	for _, a := range resolvedPlan {
		if opts.DryRun {
			printPlanLine(opts, a)
		}
		switch a.Kind {
		case plan.MkDir:
			if err := applyMkDir(opts, a); err != nil {
				return res, err
			}
		case plan.Keep:
			res.Skipped = append(res.Skipped, a.Dst)
		case plan.CopyRaw, plan.CopyRender:
			outcome, newPolicy, err := applyFile(ctx, opts, a, policy, &backupDir)
			if err != nil {
				return res, err
			}
			policy = newPolicy
			switch outcome {
			case outcomeCreated:
				res.Created = append(res.Created, a.Dst)
			case outcomeUpdated:
				res.Updated = append(res.Updated, a.Dst)
			case outcomeSkipped:
				res.Skipped = append(res.Skipped, a.Dst)
			}
		default:
			return res, fmt.Errorf("internal error: unhandled action kind %v for %q", a.Kind, a.Dst)
		}
	}

	logger.DebugContext(ctx, "plan applied",
		"created", len(res.Created), "updated", len(res.Updated), "skipped", len(res.Skipped))
	return res, nil
}

// resolveKeeps downgrades every CopyRaw/CopyRender action whose destination
// already holds byte-identical content to a Keep action, so dry-run prints
// "keep" for it and Apply's main loop handles it the same way regardless of
// how it reached that state (SPEC_FULL.md §4.H's deterministic Keep action).
func resolveKeeps(opts *Options) ([]plan.Action, error) {
	out := make([]plan.Action, len(opts.Plan))
	for i, a := range opts.Plan {
		out[i] = a
		if a.Kind != plan.CopyRaw && a.Kind != plan.CopyRender {
			continue
		}
		content, err := renderedContent(opts.FS, a, opts.Engine, opts.Scope)
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(opts.DstRoot, a.Dst)
		existing, existed, err := readIfExists(opts.FS, dst)
		if err != nil {
			return nil, err
		}
		if existed && bytesEqual(existing, content) {
			out[i] = plan.Action{Kind: plan.Keep, Dst: a.Dst}
		}
	}
	return out, nil
}

func applyMkDir(opts *Options, a plan.Action) error {
	if opts.DryRun {
		return nil
	}
	dst := filepath.Join(opts.DstRoot, a.Dst)
	if err := opts.FS.MkdirAll(dst, common.OwnerRWXPerms); err != nil {
		return fmt.Errorf("creating directory %q: %w", dst, err)
	}
	return nil
}

// printPlanLine prints the "<verb> \"<path>\"" line required in dry-run
// mode by SPEC_FULL.md §4.H, e.g. `mkdir "out/sub"`.
func printPlanLine(opts *Options, a plan.Action) {
	if opts.Stdout == nil {
		return
	}
	fmt.Fprintf(opts.Stdout, "%s %q\n", a.Kind, a.Dst)
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func applyFile(ctx context.Context, opts *Options, a plan.Action, policy ConfirmPolicy, backupDir *string) (outcome, ConfirmPolicy, error) {
	dst := filepath.Join(opts.DstRoot, a.Dst)

	content, err := renderedContent(opts.FS, a, opts.Engine, opts.Scope)
	if err != nil {
		return outcomeSkipped, policy, err
	}

	existing, existed, err := readIfExists(opts.FS, dst)
	if err != nil {
		return outcomeSkipped, policy, err
	}

	if opts.DryRun {
		if existed {
			return outcomeUpdated, policy, nil
		}
		return outcomeCreated, policy, nil
	}

	if policy == ConfirmAlways {
		choice, newPolicy, err := confirmWrite(ctx, opts, policy, a.Dst, existing, existed, content)
		if err != nil {
			return outcomeSkipped, policy, err
		}
		policy = newPolicy
		if choice == "n" {
			return outcomeSkipped, policy, nil
		}
		if choice == "q" {
			return outcomeSkipped, policy, &common.UserAbortedError{}
		}
	}

	if existed && opts.BackupDirMaker != nil {
		if *backupDir == "" {
			*backupDir, err = opts.BackupDirMaker(opts.FS)
			if err != nil {
				return outcomeSkipped, policy, fmt.Errorf("creating backup directory: %w", err)
			}
		}
		if err := backupExisting(opts.FS, *backupDir, dst, a.Dst); err != nil {
			return outcomeSkipped, policy, err
		}
	}

	if err := opts.FS.MkdirAll(filepath.Dir(dst), common.OwnerRWXPerms); err != nil {
		return outcomeSkipped, policy, fmt.Errorf("creating parent directory of %q: %w", dst, err)
	}
	mode := os.FileMode(common.OwnerRWPerms)
	if fi, statErr := opts.FS.Stat(a.SrcAbsPath); statErr == nil {
		mode = fi.Mode().Perm()
	}
	if err := opts.FS.WriteFile(dst, content, mode); err != nil {
		return outcomeSkipped, policy, fmt.Errorf("writing %q: %w", dst, err)
	}

	if existed {
		return outcomeUpdated, policy, nil
	}
	return outcomeCreated, policy, nil
}

func renderedContent(fsys common.FS, a plan.Action, engine *render.Engine, scope *common.Scope) ([]byte, error) {
	raw, err := fsys.ReadFile(a.SrcAbsPath)
	if err != nil {
		return nil, fmt.Errorf("reading source file %q: %w", a.SrcAbsPath, err)
	}
	if !a.RenderContent {
		return raw, nil
	}
	rendered, err := engine.Render(&model.ConfigPos{}, string(raw), scope, render.Strict)
	if err != nil {
		return nil, &common.RenderError{Path: a.SrcAbsPath, Wrapped: err}
	}
	return []byte(rendered), nil
}

func readIfExists(fsys common.FS, path string) ([]byte, bool, error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		if common.IsNotExistErr(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading existing file %q: %w", path, err)
	}
	return b, true, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func backupExisting(fsys common.FS, backupDir, srcDst, relPath string) error {
	backupPath := filepath.Join(backupDir, relPath)
	if err := fsys.MkdirAll(filepath.Dir(backupPath), common.OwnerRWXPerms); err != nil {
		return fmt.Errorf("creating backup parent directory: %w", err)
	}
	existing, err := fsys.ReadFile(srcDst)
	if err != nil {
		return fmt.Errorf("reading %q for backup: %w", srcDst, err)
	}
	if err := fsys.WriteFile(backupPath, existing, common.OwnerRWPerms); err != nil {
		return fmt.Errorf("writing backup %q: %w", backupPath, err)
	}
	return nil
}

// confirmWrite shows a diff (for overwrites) and prompts the user, per the
// "[y/N/always/quit]" protocol of SPEC_FULL.md §4.H. It returns the
// effective choice ("y", "n", or "q"; "a" is translated to "y" with the
// policy upgraded to ConfirmNever for the remainder of the run).
func confirmWrite(ctx context.Context, opts *Options, policy ConfirmPolicy, relPath string, existing []byte, existed bool, next []byte) (string, ConfirmPolicy, error) {
	verb := "create"
	if existed {
		verb = "overwrite"
		d := LineDiff(string(existing), string(next))
		if d != "" && opts.Stdout != nil {
			fmt.Fprintf(opts.Stdout, "--- %s\n%s\n", relPath, d)
		}
	}

	prompt := fmt.Sprintf("%s %s? [y/N/always/quit] ", verb, relPath)
	choice, err := opts.Prompter.Confirm(ctx, prompt)
	if err != nil {
		return "", policy, fmt.Errorf("reading confirmation: %w", err)
	}

	switch choice {
	case "a", "always":
		return "y", ConfirmNever, nil
	case "y", "yes":
		return "y", policy, nil
	case "q", "quit":
		return "q", policy, nil
	default:
		return "n", policy, nil
	}
}
