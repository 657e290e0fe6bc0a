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
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/abcxyz/pkg/logging"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/loader"
	"github.com/ffizer/ffizer/internal/render"
)

// RunScriptsParams groups the inputs to RunScripts.
type RunScriptsParams struct {
	// Root is the template node tree, walked in the same pre-order
	// declaration order as every other stage, so an importer's scripts run
	// before those of the templates it imports.
	Root *loader.TemplateNode

	DstRoot string
	Engine  *render.Engine
	Scope   *common.Scope

	Stdout io.Writer
	Stderr io.Writer
}

// RunScripts executes every template node's `scripts:` entries, in
// traversal order, with the working directory set to the destination root
// and the final variable scope exposed as FFIZER_VAR_<NAME> environment
// variables. It stops at the first failing script.
func RunScripts(ctx context.Context, p *RunScriptsParams) error {
	logger := logging.FromContext(ctx).With("logger", "executor.RunScripts")

	env := scopeEnv(p.Scope)

	for _, node := range loader.Flatten(p.Root) {
		for _, s := range node.Metadata.Scripts {
			if s.Message != nil && s.Message.Val != "" {
				msg, err := p.Engine.Render(s.Message.Pos, s.Message.Val, p.Scope, render.Lenient)
				if err != nil {
					return fmt.Errorf("rendering script message: %w", err)
				}
				fmt.Fprintln(p.Stdout, msg)
			}

			cmd, err := p.Engine.Render(s.Cmd.Pos, s.Cmd.Val, p.Scope, render.Lenient)
			if err != nil {
				return fmt.Errorf("rendering script command: %w", err)
			}

			logger.DebugContext(ctx, "running post-apply script", "cmd", cmd, "dir", p.DstRoot)
			if err := runOne(ctx, cmd, p.DstRoot, env, p.Stdout, p.Stderr); err != nil {
				return s.Pos.Errorf("script %q failed: %w", cmd, err)
			}
		}
	}
	return nil
}

func runOne(ctx context.Context, cmd, dir string, env []string, stdout, stderr io.Writer) error {
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Dir = dir
	c.Env = env
	c.Stdout = stdout
	c.Stderr = stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// scopeEnv returns os.Environ() plus one FFIZER_VAR_<NAME>=<value> entry per
// scope variable, per SPEC_FULL.md §4.K. Names are uppercased and otherwise
// used as-is; metadata validation does not restrict variable names to
// identifier characters, and no sanitization is applied here.
func scopeEnv(scope *common.Scope) []string {
	vars := scope.AllVars()
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	env := os.Environ()
	for _, name := range names {
		env = append(env, fmt.Sprintf("FFIZER_VAR_%s=%s", upperEnvName(name), vars[name]))
	}
	return env
}

func upperEnvName(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
