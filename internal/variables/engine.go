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

// Package variables implements the variable-collection and prompting
// protocol: merging variable declarations across the import graph,
// evaluating defaults, and collecting final values by prompt or flag
// (see SPEC_FULL.md §4.C).
package variables

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/loader"
	"github.com/ffizer/ffizer/internal/model"
	"github.com/ffizer/ffizer/internal/render"
)

// CollectParams are the inputs to Collect.
type CollectParams struct {
	Root *loader.TemplateNode

	// Engine is the render engine used to evaluate default_value and
	// select_in_values expressions, in Lenient mode.
	Engine *render.Engine

	// Prompter asks the user for a value; nil disables interactive
	// prompting (equivalent to --x-always-default-value).
	Prompter Prompter

	// AlwaysDefaultValue skips prompting entirely, always taking the
	// evaluated default (the empty string if there is none). Corresponds
	// to --x-always-default-value.
	AlwaysDefaultValue bool

	// ConfirmAlways re-asks the user to confirm each prompted value before
	// accepting it, looping back to the same prompt on rejection.
	// Corresponds to --confirm=always (SPEC_FULL.md §4.C step 6).
	ConfirmAlways bool

	// Builtins seeds the scope before any template variable is resolved
	// (ffizer_version, ffizer_src_uri, etc. — see SPEC_FULL.md §4.I).
	Builtins map[string]string
}

// Prompter asks the user a question and returns their answer.
type Prompter interface {
	// Ask prints a free-text prompt with an editable default; blank
	// submission keeps the default.
	Ask(ctx context.Context, label, def string) (string, error)

	// Select presents a list for the user to pick from, pre-selecting
	// defaultIdx if it's >= 0, and returns the chosen index.
	Select(ctx context.Context, label string, items []string, defaultIdx int) (int, error)

	// Confirm asks a yes/no question and reports whether the user answered
	// yes.
	Confirm(ctx context.Context, label string) (bool, error)
}

// Collect walks the merged variable list (first-definition-wins, in
// first-occurrence order) and returns the final scope, ready to be handed
// to the path walker and render engine.
func Collect(ctx context.Context, p *CollectParams) (*common.Scope, error) {
	defs, err := mergedVariables(p.Root)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(defs))
	for i, v := range defs {
		names[i] = v.Name.Val
	}
	if err := CheckNoBuiltinCollision(names); err != nil {
		return nil, err
	}

	scope := common.NewScope(p.Builtins)

	for _, v := range defs {
		val, idx, err := resolveOne(ctx, p, v, scope)
		if err != nil {
			return nil, err
		}
		add := map[string]string{v.Name.Val: val}
		if idx >= 0 {
			add[v.Name.Val+"__idx"] = fmt.Sprint(idx)
		}
		scope = scope.With(add)
	}

	return scope, nil
}

// mergedVariables walks the tree in pre-order depth-first declaration
// order and returns each distinct variable's first definition, in the
// order first seen. A later redeclaration of the same name is silently
// dropped (SPEC_FULL.md §4.C).
func mergedVariables(root *loader.TemplateNode) ([]*model.VariableDef, error) {
	seen := map[string]bool{}
	var out []*model.VariableDef
	loader.Walk(root, func(n *loader.TemplateNode) {
		for _, v := range n.Metadata.Variables {
			if seen[v.Name.Val] {
				continue
			}
			seen[v.Name.Val] = true
			out = append(out, v)
		}
	})
	return out, nil
}

func resolveOne(ctx context.Context, p *CollectParams, v *model.VariableDef, scope *common.Scope) (value string, selectedIdx int, err error) {
	def := ""
	if v.Default != nil {
		def, err = p.Engine.Render(v.Default.Pos, v.Default.Val, scope, render.Lenient)
		if err != nil {
			return "", -1, fmt.Errorf("evaluating default_value for variable %q: %w", v.Name.Val, err)
		}
	}

	if v.Hidden.Val {
		return def, -1, nil
	}

	if v.SelectInValues != nil {
		return resolveSelect(ctx, p, v, def, scope)
	}

	if p.AlwaysDefaultValue || p.Prompter == nil {
		return def, -1, nil
	}

	label := v.Name.Val
	if v.Ask.Val != "" {
		label = v.Ask.Val
	}
	for {
		answer, err := p.Prompter.Ask(ctx, label, def)
		if err != nil {
			return "", -1, fmt.Errorf("prompting for variable %q: %w", v.Name.Val, err)
		}
		if answer == "" {
			answer = def
		}
		confirmed, err := confirmValue(ctx, p, label, answer)
		if err != nil {
			return "", -1, err
		}
		if confirmed {
			return answer, -1, nil
		}
	}
}

// confirmValue implements SPEC_FULL.md §4.C step 6: in confirm=always mode,
// re-ask the user to accept a just-prompted value, looping back to the
// prompt on rejection. Outside confirm=always, every value is accepted.
func confirmValue(ctx context.Context, p *CollectParams, label, value string) (bool, error) {
	if !p.ConfirmAlways {
		return true, nil
	}
	ok, err := p.Prompter.Confirm(ctx, fmt.Sprintf("use %q for %s?", value, label))
	if err != nil {
		return false, fmt.Errorf("confirming variable %q: %w", label, err)
	}
	return ok, nil
}

func resolveSelect(ctx context.Context, p *CollectParams, v *model.VariableDef, def string, scope *common.Scope) (string, int, error) {
	rendered, err := p.Engine.Render(v.SelectInValues.Pos, v.SelectInValues.Val, scope, render.Lenient)
	if err != nil {
		return "", -1, fmt.Errorf("evaluating select_in_values for variable %q: %w", v.Name.Val, err)
	}

	var items []string
	if err := yaml.Unmarshal([]byte(rendered), &items); err != nil {
		return "", -1, v.SelectInValues.Pos.Errorf("select_in_values must evaluate to a YAML list of strings: %w", err)
	}

	defaultIdx := -1
	for i, it := range items {
		if it == def {
			defaultIdx = i
			break
		}
	}

	if p.AlwaysDefaultValue || p.Prompter == nil {
		if defaultIdx >= 0 {
			return items[defaultIdx], defaultIdx, nil
		}
		return def, -1, nil
	}

	label := v.Name.Val
	if v.Ask.Val != "" {
		label = v.Ask.Val
	}
	for {
		chosen, err := p.Prompter.Select(ctx, label, items, defaultIdx)
		if err != nil {
			return "", -1, fmt.Errorf("prompting for variable %q: %w", v.Name.Val, err)
		}
		confirmed, err := confirmValue(ctx, p, label, items[chosen])
		if err != nil {
			return "", -1, err
		}
		if confirmed {
			return items[chosen], chosen, nil
		}
	}
}
