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

package model

// This file defines the schema of .ffizer.yaml (see SPEC_FULL.md §6).

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileName is the well-known name of a template's metadata file.
const FileName = ".ffizer.yaml"

// Metadata is the fully decoded contents of one template's .ffizer.yaml.
// Any field absent from the YAML keeps its Go zero value.
type Metadata struct {
	Variables       []*VariableDef `yaml:"variables"`
	Ignores         []String       `yaml:"ignores"`
	Imports         []*ImportDef   `yaml:"imports"`
	UseTemplateDir  Bool           `yaml:"use_template_dir"`
	Scripts         []*ScriptDef   `yaml:"scripts"`
	Pos             ConfigPos
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Metadata) UnmarshalYAML(n *yaml.Node) error {
	return UnmarshalPlain(n, (*plainMetadata)(m), &m.Pos)
}

// plainMetadata has the same fields as Metadata but no UnmarshalYAML method,
// so that UnmarshalPlain's reflection-based shadow-struct trick (which
// builds a type with the same fields as T but no methods) produces a type
// whose fields are exactly the same list reflect.VisibleFields sees for
// Metadata. UnmarshalYAML hands UnmarshalPlain a *plainMetadata, whose
// fields it reads via reflection and whose value it sets from the decoded
// shadow struct.
type plainMetadata Metadata

// Validate checks cross-field invariants not expressible via the YAML
// decode alone.
func (m *Metadata) Validate() error {
	seen := map[string]*VariableDef{}
	for _, v := range m.Variables {
		if v.Name.Val == "" {
			return v.Pos.Errorf("variable name must not be empty")
		}
		if prev, ok := seen[v.Name.Val]; ok {
			return v.Pos.Errorf("variable %q is declared twice in the same template (first at line %d)", v.Name.Val, prev.Pos.Line)
		}
		seen[v.Name.Val] = v
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, imp := range m.Imports {
		if err := imp.Validate(); err != nil {
			return err
		}
	}
	for _, s := range m.Scripts {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ContentRoot returns the subdirectory (relative to the template root) that
// contains the template's files, per use_template_dir.
func (m *Metadata) ContentRoot() string {
	if m.UseTemplateDir.Val {
		return "template"
	}
	return "."
}

// VariableDef is one entry of the `variables:` list.
type VariableDef struct {
	Name           String   `yaml:"name"`
	Desc           String   `yaml:"desc"`
	Ask            String   `yaml:"ask"`
	Default        *String  `yaml:"default_value"`
	Hidden         Bool     `yaml:"hidden"`
	SelectInValues *String  `yaml:"select_in_values"`
	Pos            ConfigPos
}

func (v *VariableDef) UnmarshalYAML(n *yaml.Node) error {
	return UnmarshalPlain(n, (*plainVariableDef)(v), &v.Pos)
}

type plainVariableDef VariableDef

func (v *VariableDef) Validate() error {
	if v.Hidden.Val && v.Default == nil {
		return v.Pos.Errorf("variable %q has hidden:true but no default_value; a hidden variable must have a default", v.Name.Val)
	}
	return nil
}

// ImportDef is one entry of the `imports:` list.
type ImportDef struct {
	URI       String  `yaml:"uri"`
	Rev       *String `yaml:"rev"`
	Subfolder *String `yaml:"subfolder"`
	Pos       ConfigPos
}

func (i *ImportDef) UnmarshalYAML(n *yaml.Node) error {
	return UnmarshalPlain(n, (*plainImportDef)(i), &i.Pos)
}

type plainImportDef ImportDef

// RevOrDefault returns the declared revision, defaulting to "master" per
// SPEC_FULL.md §6.
func (i *ImportDef) RevOrDefault() string {
	if i.Rev == nil || i.Rev.Val == "" {
		return "master"
	}
	return i.Rev.Val
}

func (i *ImportDef) Validate() error {
	if i.URI.Val == "" {
		return i.Pos.Errorf("import is missing required field \"uri\"")
	}
	return nil
}

// ScriptDef is one entry of the `scripts:` list, run after a successful
// execution of the plan.
type ScriptDef struct {
	Message *String `yaml:"message"`
	Cmd     String  `yaml:"cmd"`
	Pos     ConfigPos
}

func (s *ScriptDef) UnmarshalYAML(n *yaml.Node) error {
	return UnmarshalPlain(n, (*plainScriptDef)(s), &s.Pos)
}

type plainScriptDef ScriptDef

func (s *ScriptDef) Validate() error {
	if s.Cmd.Val == "" {
		return s.Pos.Errorf("script is missing required field \"cmd\"")
	}
	return nil
}

// ParseMetadata decodes a .ffizer.yaml file's bytes. An empty file yields an
// empty, valid Metadata, per SPEC_FULL.md §4.B.1.
func ParseMetadata(data []byte) (*Metadata, error) {
	if len(trimSpace(data)) == 0 {
		return &Metadata{}, nil
	}

	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", FileName, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed in %s: %w", FileName, err)
	}
	return &m, nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}
