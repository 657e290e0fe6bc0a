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

// Package classify implements the Action Classifier: turning each
// walker.SourceEntry into a plan.Action by stripping known suffixes,
// rendering path segments, and evaluating conditional-inclusion filters
// (see SPEC_FULL.md §4.E).
package classify

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/plan"
	"github.com/ffizer/ffizer/internal/render"
	"github.com/ffizer/ffizer/internal/walker"
)

const (
	suffixRender = ".ffizer.hbs"
	suffixRaw    = ".ffizer.raw"
)

// filterMarkerRE matches a ".ffizer.filter[<cel expr>]" marker embedded in a
// path segment, the ".ffizer.filter helper pattern" of SPEC_FULL.md §4.E
// step 3, e.g. "ci.ffizer.filter[enable_ci]" as a directory name.
var filterMarkerRE = regexp.MustCompile(`\.ffizer\.filter\[([^\]]*)\]`)

// Warner receives non-fatal diagnostics, e.g. "path segment rendered
// empty, skipping".
type Warner func(msg string)

// One classifies every entry from one template node's walk into zero or
// more plan.Action, attaching node traversal priority for later merging.
func One(entries []walker.SourceEntry, engine *render.Engine, scope *common.Scope, priority int, warn Warner) ([]plan.Action, error) {
	if warn == nil {
		warn = func(string) {}
	}

	var out []plan.Action
	for _, e := range entries {
		a, ok, err := classifyOne(e, engine, scope, warn)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return plan.Build(out, priority), nil
}

func classifyOne(e walker.SourceEntry, engine *render.Engine, scope *common.Scope, warn Warner) (plan.Action, bool, error) {
	stem, kind := splitSuffix(e.RelPath, e.IsDir)

	renderedDst, ok, err := renderPath(stem, engine, scope, warn)
	if err != nil {
		return plan.Action{}, false, err
	}
	if !ok {
		return plan.Action{}, false, nil
	}

	if e.IsDir {
		return plan.Action{Kind: plan.MkDir, Dst: renderedDst}, true, nil
	}

	return plan.Action{
		Kind:          kind,
		Dst:           renderedDst,
		SrcAbsPath:    e.AbsPath,
		RenderContent: kind == plan.CopyRender,
	}, true, nil
}

// splitSuffix strips a recognized terminal suffix from a file's name,
// returning the resulting relative path and which kind of copy it implies.
// Directories are never suffix-stripped.
func splitSuffix(relPath string, isDir bool) (string, plan.Kind) {
	if isDir {
		return relPath, plan.MkDir
	}
	switch {
	case strings.HasSuffix(relPath, suffixRender):
		return strings.TrimSuffix(relPath, suffixRender), plan.CopyRender
	case strings.HasSuffix(relPath, suffixRaw):
		return strings.TrimSuffix(relPath, suffixRaw), plan.CopyRaw
	default:
		return relPath, plan.CopyRaw
	}
}

// renderPath renders every "/"-separated segment of relPath as a
// Handlebars/Go template in Lenient mode. If any segment renders to the
// empty string, the whole entry is dropped (with a warning), per
// SPEC_FULL.md §4.E step 2. If any rendered segment begins with a
// literal "-", or carries a ".ffizer.filter[expr]" marker that evaluates
// falsy, the whole entry is dropped per step 3's conditional inclusion
// rule. A rendered segment containing "/" or "\" fails with a RenderError.
func renderPath(relPath string, engine *render.Engine, scope *common.Scope, warn Warner) (string, bool, error) {
	segments := strings.Split(relPath, "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if m := filterMarkerRE.FindStringSubmatch(seg); m != nil {
			include, err := EvalFilterExpr(m[1], scope)
			if err != nil {
				return "", false, fmt.Errorf("evaluating filter on path segment %q of %q: %w", seg, relPath, err)
			}
			if !include {
				return "", false, nil
			}
			seg = filterMarkerRE.ReplaceAllString(seg, "")
		}

		rendered, err := engine.Render(nil, seg, scope, render.Lenient)
		if err != nil {
			return "", false, fmt.Errorf("rendering path segment %q of %q: %w", seg, relPath, err)
		}
		if rendered == "" {
			warn(fmt.Sprintf("path segment %q of %q rendered empty, skipping entry", seg, relPath))
			return "", false, nil
		}
		if strings.ContainsAny(rendered, `/\`) {
			return "", false, &common.RenderError{Path: relPath, Wrapped: fmt.Errorf("path segment %q rendered to %q, which contains a path separator", seg, rendered)}
		}
		if strings.HasPrefix(rendered, "-") {
			return "", false, nil
		}
		out = append(out, rendered)
	}
	return path.Join(out...), true, nil
}

// EvalFilterExpr compiles and evaluates a CEL boolean expression against
// the current scope. It implements the ".ffizer.filter helper pattern"
// conditional-inclusion rule for templates that declare a per-entry CEL
// filter (SPEC_FULL.md §4.E step 3); renderPath evaluates a segment's
// filter before rendering it, and applies the leading-dash rule afterwards.
func EvalFilterExpr(expr string, scope *common.Scope) (bool, error) {
	vars := scope.AllVars()

	var opts []cel.EnvOption
	for name := range vars {
		opts = append(opts, cel.Variable(name, cel.StringType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return false, fmt.Errorf("configuring CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if err := issues.Err(); err != nil {
		return false, fmt.Errorf("compiling filter expression %q: %w", expr, err)
	}
	prog, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("constructing filter program: %w", err)
	}

	input := make(map[string]any, len(vars))
	for k, v := range vars {
		input[k] = v
	}
	out, _, err := prog.Eval(input)
	if err != nil {
		return false, fmt.Errorf("evaluating filter expression %q: %w", expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter expression %q did not evaluate to a boolean", expr)
	}
	return b, nil
}
