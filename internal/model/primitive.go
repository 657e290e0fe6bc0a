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

// Boxed primitive types: a value decoded from YAML together with the
// position it came from, so validation and rendering errors can point back
// at the offending line.

import "gopkg.in/yaml.v3"

// String is a string field decoded from YAML, plus its source position.
type String = ValWithPos[string]

// Bool is a boolean field decoded from YAML, plus its source position.
type Bool = ValWithPos[bool]

// StringSlice is a []string field decoded from YAML, plus its source
// position (the position of the list itself, not of individual elements).
type StringSlice = ValWithPos[[]string]

// ValWithPos decodes a value of type T from YAML and records where in the
// file it was found.
type ValWithPos[T any] struct {
	Val T
	Pos ConfigPos
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *ValWithPos[T]) UnmarshalYAML(n *yaml.Node) error {
	if err := n.Decode(&v.Val); err != nil {
		return err //nolint:wrapcheck
	}
	v.Pos = *yamlPos(n)
	return nil
}
