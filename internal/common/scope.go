// Copyright 2023 The Authors (see AUTHORS file)
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

package common

import (
	"strconv"

	"golang.org/x/exp/maps"
)

// Scope binds variable names to string values. It has a stack-like
// structure so that an inner scope (e.g. one adding a just-collected
// variable) can shadow an outer scope's variable of the same name, without mutating
// the outer scope. Lookups proceed innermost-to-outermost.
type Scope struct {
	vars    map[string]string // never nil
	inherit *Scope            // nil if this is the outermost scope
}

// NewScope creates a root scope from the given variable bindings (typically
// the merged result of default values, prompted answers, and flag
// overrides, plus the builtin ffizer_* variables).
func NewScope(vars map[string]string) *Scope {
	return &Scope{vars: cloneOrEmpty(vars)}
}

// Lookup returns the current value of name, searching from the innermost
// scope outward.
func (s *Scope) Lookup(name string) (string, bool) {
	if val, ok := s.vars[name]; ok {
		return val, true
	}
	if s.inherit == nil {
		return "", false
	}
	return s.inherit.Lookup(name)
}

// With returns a new scope that adds or shadows the bindings in m, falling
// back to s for anything not in m.
func (s *Scope) With(m map[string]string) *Scope {
	return &Scope{
		vars:    maps.Clone(m),
		inherit: s,
	}
}

// WithIndex returns a new scope with a bare __idx variable set to idx.
// Collecting a select_in_values variable does not use it: that records
// <name>__idx directly via With.
func (s *Scope) WithIndex(idx int) *Scope {
	return s.With(map[string]string{"__idx": strconv.Itoa(idx)})
}

// AllVars returns every variable binding currently in scope, with
// inner/top-of-stack bindings taking priority over outer ones of the same
// name. The returned map is owned by the caller.
func (s *Scope) AllVars() map[string]string {
	if s.inherit == nil {
		return maps.Clone(s.vars)
	}
	out := s.inherit.AllVars()
	maps.Copy(out, s.vars)
	return out
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return map[string]string{}
	}
	return maps.Clone(m)
}
