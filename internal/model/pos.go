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

// Package model holds the typed representation of .ffizer.yaml, decoded from
// YAML with source-position tracking so that errors can point back at the
// line that caused them. The file name itself is not tracked here (YAML
// parse cursors don't know it); callers that read a .ffizer.yaml file are
// responsible for prefixing errors with the file path, since they're the
// ones who opened it.
package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfigPos is the line/column of a decoded value within a .ffizer.yaml
// file. The zero value means "position unknown", which happens for values
// that were never decoded from YAML (e.g. programmatically constructed).
type ConfigPos struct {
	Line   int
	Column int
}

// yamlPos builds a ConfigPos from a YAML parse cursor.
func yamlPos(n *yaml.Node) *ConfigPos {
	return &ConfigPos{
		Line:   n.Line,
		Column: n.Column,
	}
}

// Errorf builds an error, prefixed with "at line N column M:" if the
// position is known.
//
// Examples:
//
//	Wrapping an error: pos.Errorf("parsing import: %w", err)
//	Creating a new error: pos.Errorf("variable %q has no default_value", name)
func (c *ConfigPos) Errorf(fmtStr string, args ...any) error {
	err := fmt.Errorf(fmtStr, args...)
	if c == nil || (*c == ConfigPos{}) {
		return err
	}
	return fmt.Errorf("at line %d column %d: %w", c.Line, c.Column, err)
}
