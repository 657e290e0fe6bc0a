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

// Package main implements the ffizer command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/classify"
	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/executor"
	"github.com/ffizer/ffizer/internal/loader"
	"github.com/ffizer/ffizer/internal/plan"
	"github.com/ffizer/ffizer/internal/render"
	"github.com/ffizer/ffizer/internal/source"
	"github.com/ffizer/ffizer/internal/variables"
	"github.com/ffizer/ffizer/internal/version"
	"github.com/ffizer/ffizer/internal/walker"
)

// Exit codes, per SPEC_FULL.md §6.
const (
	exitOK               = 0
	exitGenericFailure   = 1
	exitUserAborted      = 2
	exitSourceNotFound   = 3
	exitTemplateParseErr = 4
)

// ApplyCommand implements the "apply" subcommand: resolve a template,
// collect variables, and materialize it into a destination directory.
type ApplyCommand struct {
	cli.BaseCommand
	flags ApplyFlags
}

func (c *ApplyCommand) Desc() string {
	return "render a template into a destination directory"
}

func (c *ApplyCommand) Help() string {
	return `
Usage: {{ COMMAND }} --source <uri> --destination <dir> [options]

Resolves the given template source and its imports, collects variable
values, and writes the rendered output into the destination directory.`
}

func (c *ApplyCommand) Flags() *cli.FlagSet {
	set := c.NewFlagSet()
	c.flags.Register(set)
	return set
}

func (c *ApplyCommand) Run(ctx context.Context, args []string) error {
	if err := c.Flags().Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if c.flags.Source == "" {
		return fmt.Errorf("--source is required")
	}

	switch c.flags.Confirm {
	case "never", "always":
	default:
		return fmt.Errorf("--confirm must be either never or always, got %q", c.flags.Confirm)
	}

	// --log-level/--log-format override the environment-derived defaults
	// main() installed before flags were available to parse.
	os.Setenv("FFIZER_LOG_LEVEL", c.flags.LogLevel)
	os.Setenv("FFIZER_LOG_FORMAT", c.flags.LogFormat)
	ctx = logging.WithLogger(ctx, logging.NewFromEnv("FFIZER_"))
	logger := logging.FromContext(ctx)

	workDir, err := os.MkdirTemp("", "ffizer-template-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.WarnContext(ctx, "failed removing scratch directory", "path", workDir, "error", err)
		}
	}()

	cwd, err := c.WorkingDir()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	root, err := loader.Load(ctx, &loader.LoadParams{
		Source:      c.flags.Source,
		GitProtocol: source.Protocol(c.flags.GitProtocol),
		Offline:     c.flags.Offline,
		Rev:         c.flags.Rev,
		Subfolder:   c.flags.SourceSubfolder,
		Cwd:         cwd,
		WorkDir:     workDir,
	})
	if err != nil {
		var notFound *common.SourceNotFoundError
		if errors.As(err, &notFound) {
			return &common.ExitCodeError{Code: exitSourceNotFound, Err: err}
		}
		var parseErr *common.ImportCycleError
		if errors.As(err, &parseErr) {
			return &common.ExitCodeError{Code: exitTemplateParseErr, Err: err}
		}
		return &common.ExitCodeError{Code: exitSourceNotFound, Err: err}
	}

	destAbs := common.JoinIfRelative(cwd, c.flags.Destination)
	if err := (&common.RealFS{}).MkdirAll(destAbs, common.OwnerRWXPerms); err != nil {
		return fmt.Errorf("creating destination directory %q: %w", destAbs, err)
	}

	builtins := map[string]string{
		"ffizer_dst_folder":    destAbs,
		"ffizer_src_uri":       root.Download.URI,
		"ffizer_src_rev":       root.Download.Revision,
		"ffizer_src_subfolder": root.Download.Subfolder,
		"ffizer_version":       version.Version,
	}

	warn := func(msg string) { logger.WarnContext(ctx, msg) }
	engine := render.New(c.flags.Offline, warn)
	engine.RegisterHelper("file_exists", func(p string) bool {
		_, err := os.Stat(common.JoinIfRelative(destAbs, p))
		return err == nil
	})

	interactive := variables.IsInteractive() && !c.flags.AlwaysDefault
	var prompter variables.Prompter
	if interactive {
		prompter = variables.TTYPrompter{}
	}
	if c.flags.Confirm == "always" && !variables.IsInteractive() {
		return fmt.Errorf("--confirm=always requires an interactive terminal")
	}

	scope, err := variables.Collect(ctx, &variables.CollectParams{
		Root:               root,
		Engine:             engine,
		Prompter:           prompter,
		AlwaysDefaultValue: c.flags.AlwaysDefault || !interactive,
		ConfirmAlways:      c.flags.Confirm == "always",
		Builtins:           builtins,
	})
	if err != nil {
		return &common.ExitCodeError{Code: exitTemplateParseErr, Err: err}
	}

	nodes := loader.Flatten(root)
	perNode := make([][]plan.Action, 0, len(nodes))
	for i, n := range nodes {
		entries, err := walker.Walk(n)
		if err != nil {
			return fmt.Errorf("walking template %q: %w", n.URI, err)
		}
		actions, err := classify.One(entries, engine, scope, i, warn)
		if err != nil {
			return fmt.Errorf("classifying template %q: %w", n.URI, err)
		}
		perNode = append(perNode, actions)
	}
	finalPlan := plan.Merge(perNode)

	confirmPolicy := executor.ConfirmNever
	var confirmPrompter executor.ConfirmPrompter
	if c.flags.Confirm == "always" {
		confirmPolicy = executor.ConfirmAlways
		confirmPrompter = executor.TTYConfirmPrompter{}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	backupRoot := filepath.Join(homeDir, ".ffizer", "backups", fmt.Sprint(time.Now().Unix()))

	res, err := executor.Apply(ctx, &executor.Options{
		Plan:     finalPlan,
		DstRoot:  destAbs,
		FS:       &common.RealFS{},
		DryRun:   c.flags.DryRun,
		Confirm:  confirmPolicy,
		Engine:   engine,
		Scope:    scope,
		Prompter: confirmPrompter,
		Stdout:   c.Stdout(),
		BackupDirMaker: func(fsys common.FS) (string, error) {
			if err := fsys.MkdirAll(backupRoot, common.OwnerRWXPerms); err != nil {
				return "", err //nolint:wrapcheck
			}
			return fsys.MkdirTemp(backupRoot, "")
		},
	})
	if err != nil {
		var aborted *common.UserAbortedError
		if errors.As(err, &aborted) {
			return &common.ExitCodeError{Code: exitUserAborted, Err: err}
		}
		return &common.ExitCodeError{Code: exitGenericFailure, Err: err}
	}

	fmt.Fprintf(c.Stdout(), "created %d, updated %d, skipped %d\n", len(res.Created), len(res.Updated), len(res.Skipped))

	if c.flags.DryRun {
		return nil
	}

	if err := executor.RunScripts(ctx, &executor.RunScriptsParams{
		Root:    root,
		DstRoot: destAbs,
		Engine:  engine,
		Scope:   scope,
		Stdout:  c.Stdout(),
		Stderr:  os.Stderr,
	}); err != nil {
		return &common.ExitCodeError{Code: exitGenericFailure, Err: err}
	}

	return nil
}
