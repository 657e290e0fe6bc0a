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

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/ffizer/ffizer/internal/common"
)

// httpClient is shared across all http_get calls made during a run, for
// connection reuse (see SPEC_FULL.md §5).
var httpClient = &http.Client{Timeout: 30 * time.Second}

// baseFuncs returns the helper registry every rendered path or file body
// has access to. The string-casing family is Masterminds/sprig's, renamed
// to the snake_case spelling this engine's helpers use; everything else
// (http_get, file_exists, json/yaml) is ffizer's own.
//
// offline disables http_get, per "disabled entirely in offline mode
// (returns empty string + warning)".
func baseFuncs(offline bool, warn func(msg string)) map[string]any {
	sprigFuncs := sprig.TxtFuncMap()

	out := map[string]any{
		"to_upper_case": strings.ToUpper,
		"to_lower_case": strings.ToLower,
		"capitalize":    sprigFuncs["title"],
		"snake_case":    sprigFuncs["snakecase"],
		"kebab_case":    sprigFuncs["kebabcase"],
		"camel_case":    sprigFuncs["camelcase"],
		"pascal_case":   pascalCase(sprigFuncs["camelcase"].(func(string) string)),
		"file_name":     filepath.Base,
		"parent":        filepath.Dir,
		"extension":     filepath.Ext,
		"file_exists":   fileExists,
		"to_json":       toJSON,
		"from_json":     fromJSON,
		"to_yaml":       toYAML,
		"from_yaml":     fromYAML,
	}

	if offline {
		out["http_get"] = func(url string) (string, error) {
			warn(fmt.Sprintf("http_get(%q) skipped: running in offline mode", url))
			return "", nil
		}
	} else {
		out["http_get"] = httpGet
	}

	return out
}

// pascalCase builds PascalCase from sprig's camelCase by uppercasing the
// first rune; sprig doesn't ship PascalCase directly.
func pascalCase(camel func(string) string) func(string) string {
	return func(s string) string {
		c := camel(s)
		if c == "" {
			return c
		}
		return strings.ToUpper(c[:1]) + c[1:]
	}
}

func httpGet(url string) (string, error) {
	resp, err := httpClient.Get(url) //nolint:noctx // no context reaches the helper; httpClient's 30s Timeout bounds the request
	if err != nil {
		return "", &common.HelperFailureError{Helper: "http_get", Wrapped: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", &common.HelperFailureError{Helper: "http_get", Wrapped: fmt.Errorf("got HTTP status %d from %s", resp.StatusCode, url)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &common.HelperFailureError{Helper: "http_get", Wrapped: err}
	}
	return string(body), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", &common.HelperFailureError{Helper: "to_json", Wrapped: err}
	}
	return string(b), nil
}

func fromJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, &common.HelperFailureError{Helper: "from_json", Wrapped: err}
	}
	return v, nil
}

func toYAML(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", &common.HelperFailureError{Helper: "to_yaml", Wrapped: err}
	}
	return string(b), nil
}

func fromYAML(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, &common.HelperFailureError{Helper: "from_yaml", Wrapped: err}
	}
	return v, nil
}
