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

package variables

import (
	"fmt"

	"github.com/abcxyz/pkg/sets"
)

// These are the well-known scope entries seeded by the Source Locator
// before any template-declared variable is resolved (SPEC_FULL.md §3, §6).
const (
	BuiltinDstFolder    = "ffizer_dst_folder"
	BuiltinSrcURI       = "ffizer_src_uri"
	BuiltinSrcRev       = "ffizer_src_rev"
	BuiltinSrcSubfolder = "ffizer_src_subfolder"
	BuiltinVersion      = "ffizer_version"
)

// BuiltinNames lists every seeded scope entry.
func BuiltinNames() []string {
	return []string{BuiltinDstFolder, BuiltinSrcURI, BuiltinSrcRev, BuiltinSrcSubfolder, BuiltinVersion}
}

// CheckNoBuiltinCollision fails the run if any template-declared variable
// name shadows one of the builtin scope entries; a template redefining
// ffizer_version, for example, would silently hide the real one.
func CheckNoBuiltinCollision(declared []string) error {
	// sets only exposes Subtract for []string (see abcxyz/pkg/sets), so the
	// intersection is computed as declared minus (declared minus builtins).
	collisions := sets.Subtract(declared, sets.Subtract(declared, BuiltinNames()))
	if len(collisions) > 0 {
		return fmt.Errorf("variable name(s) %v collide with builtin scope entries %v and may not be redeclared",
			collisions, BuiltinNames())
	}
	return nil
}
