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

// Package render is the Handlebars-like templating engine used to render
// both path segments and file bodies. It's built on text/template, whose
// {{ }} call syntax is already Handlebars-shaped, with a registered helper
// function map instead of a hardcoded one (see SPEC_FULL.md §4.F).
package render

import (
	"regexp"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/exp/maps"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
)

var missingKeyErrRE = regexp.MustCompile(`map has no entry for key "([^"]*)"`)

// Mode selects how an undefined variable reference is treated.
type Mode int

const (
	// Strict aborts rendering with an UnknownVarError when a referenced
	// variable isn't in scope. Used for file content (SPEC_FULL.md §4.F).
	Strict Mode = iota
	// Lenient resolves an undefined variable reference to the empty
	// string. Used for path segments and default_value expressions.
	Lenient
)

// Engine renders Go-template strings against a common.Scope, with a
// helper registry that can be extended beyond the builtins.
type Engine struct {
	extra   map[string]any
	offline bool
	warn    func(msg string)
}

// New builds a render Engine. warn receives non-fatal diagnostics (e.g.
// "http_get skipped: offline mode"); it may be nil.
func New(offline bool, warn func(msg string)) *Engine {
	if warn == nil {
		warn = func(string) {}
	}
	return &Engine{
		extra:   map[string]any{},
		offline: offline,
		warn:    warn,
	}
}

// RegisterHelper adds or overrides a named helper function available to
// every subsequent render. This is the extension point referenced by
// SPEC_FULL.md's "extended helper registry": callers may add
// domain-specific helpers without modifying this package.
func (e *Engine) RegisterHelper(name string, fn any) {
	e.extra[name] = fn
}

func (e *Engine) funcs() map[string]any {
	out := baseFuncs(e.offline, e.warn)
	maps.Copy(out, e.extra)
	return out
}

// Render parses and executes tmpl against scope's variables, in the given
// mode. pos is used to annotate errors with a source location; it may be
// nil for strings that don't come from a decoded YAML file.
func (e *Engine) Render(pos *model.ConfigPos, tmpl string, scope *common.Scope, mode Mode) (string, error) {
	t := template.New("").Funcs(e.funcs())
	if mode == Strict {
		t = t.Option("missingkey=error")
	} else {
		t = t.Option("missingkey=zero")
	}

	parsed, err := t.Parse(tmpl)
	if err != nil {
		return "", pos.Errorf("error compiling template: %w", err)
	}

	vars := scope.AllVars()
	var sb strings.Builder
	if err := parsed.Execute(&sb, vars); err != nil {
		if mode == Strict {
			if m := missingKeyErrRE.FindStringSubmatch(err.Error()); m != nil {
				names := maps.Keys(vars)
				sort.Strings(names)
				return "", pos.Errorf("template execution failed: %w", &common.UnknownVarError{
					VarName:       m[1],
					AvailableVars: names,
					Wrapped:       err,
				})
			}
			return "", pos.Errorf("template execution failed: %w", err)
		}
		// Lenient mode: missingkey=zero already renders undefined-variable
		// lookups as empty; any other execution error (e.g. a helper call
		// failing) is demoted to an empty result plus a warning.
		e.warn(pos.Errorf("template execution failed, using empty string: %w", err).Error())
		return "", nil
	}
	return sb.String(), nil
}

// RenderAll runs Render over each of ss, stopping at the first error.
func RenderAll(e *Engine, ss []model.String, scope *common.Scope, mode Mode) ([]string, error) {
	out := make([]string, len(ss))
	for i, s := range ss {
		rendered, err := e.Render(s.Pos, s.Val, scope, mode)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}
