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
	"path/filepath"
	"strings"

	"github.com/ffizer/ffizer/internal/model"
)

// SafeRelPath rejects a path containing a ".." traversal component and
// strips any leading path separator, making p safe to join underneath a
// destination root.
func SafeRelPath(pos *model.ConfigPos, p string) (string, error) {
	clean := filepath.ToSlash(p)
	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return "", pos.Errorf(`path %q must not contain ".."`, p)
		}
	}
	return strings.TrimLeft(p, string(filepath.Separator)), nil
}
