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

// Notes for maintainers:
//
//   - We override UnmarshalYAML on the metadata types so that we can (a)
//     capture the ConfigPos of the enclosing mapping, and (b) reject
//     unrecognized fields, which yaml.v3 doesn't do reliably on its own
//     (see https://github.com/go-yaml/yaml/issues/460).

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalPlain decodes the mapping node n into outPtr as if outPtr had no
// custom UnmarshalYAML method, while additionally rejecting any YAML field
// not present in outPtr's `yaml:"..."` tags, and recording outPtr's position
// into outPos.
//
// outPtr must be a pointer to a struct.
func UnmarshalPlain(n *yaml.Node, outPtr any, outPos *ConfigPos) error {
	fields := reflect.VisibleFields(reflect.TypeOf(outPtr).Elem())

	known := make([]string, 0, len(fields))
	for _, f := range fields {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		known = append(known, name)
	}

	if err := rejectUnknownFields(n, known); err != nil {
		return err
	}

	// Decode into a dynamically-built struct type with the same fields but no
	// methods, to avoid infinitely recursing back into this UnmarshalYAML.
	shadowType := reflect.StructOf(fields)
	shadow := reflect.New(shadowType)
	if err := n.Decode(shadow.Interface()); err != nil {
		return err //nolint:wrapcheck
	}
	reflect.ValueOf(outPtr).Elem().Set(shadow.Elem())

	*outPos = *yamlPos(n)
	return nil
}

// rejectUnknownFields returns an error if mapping node n has any key not
// present in allowed.
func rejectUnknownFields(n *yaml.Node, allowed []string) error {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i]
		if !contains(allowed, key.Value) {
			return yamlPos(key).Errorf("unrecognized field %q; allowed fields are %s", key.Value, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// Validator is implemented by every decoded metadata type that has
// cross-field invariants to check after unmarshaling (unmarshaling alone
// can't validate a struct whose YAML mapping had zero matching fields).
type Validator interface {
	Validate() error
}

// WrapFileErr prefixes err with the path of the file being decoded, for
// errors that don't already carry a ConfigPos (which has no filename).
func WrapFileErr(file string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", file, err)
}
