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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ffizer/ffizer/internal/common"
	"github.com/ffizer/ffizer/internal/model"
)

func TestRenderLenientUndefinedVarIsEmpty(t *testing.T) {
	t.Parallel()

	e := New(true, nil)
	scope := common.NewScope(map[string]string{"name": "billing"})

	got, err := e.Render(nil, "svc-{{ .name }}-{{ .missing }}", scope, Lenient)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if diff := cmp.Diff("svc-billing-", got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderStrictUndefinedVarErrors(t *testing.T) {
	t.Parallel()

	e := New(true, nil)
	scope := common.NewScope(map[string]string{"name": "billing"})

	_, err := e.Render(nil, "{{ .missing }}", scope, Strict)
	if err == nil {
		t.Fatal("expected an error for an undefined variable in Strict mode")
	}
	var uv *common.UnknownVarError
	if !errors.As(err, &uv) {
		t.Fatalf("error %v is not an UnknownVarError", err)
	}
	if diff := cmp.Diff("missing", uv.VarName); diff != "" {
		t.Errorf("VarName mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderHelpers(t *testing.T) {
	t.Parallel()

	e := New(true, nil)
	scope := common.NewScope(nil)

	cases := []struct {
		name string
		tmpl string
		want string
	}{
		{name: "to_upper_case", tmpl: `{{ to_upper_case "hi" }}`, want: "HI"},
		{name: "to_lower_case", tmpl: `{{ to_lower_case "HI" }}`, want: "hi"},
		{name: "snake_case", tmpl: `{{ snake_case "MyService" }}`, want: "my_service"},
		{name: "kebab_case", tmpl: `{{ kebab_case "MyService" }}`, want: "my-service"},
		{name: "camel_case", tmpl: `{{ camel_case "my_service" }}`, want: "MyService"},
		{name: "pascal_case", tmpl: `{{ pascal_case "my_service" }}`, want: "MyService"},
		{name: "file_name", tmpl: `{{ file_name "a/b/c.txt" }}`, want: "c.txt"},
		{name: "parent", tmpl: `{{ parent "a/b/c.txt" }}`, want: "a/b"},
		{name: "extension", tmpl: `{{ extension "a/b/c.txt" }}`, want: ".txt"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := e.Render(nil, tc.tmpl, scope, Lenient)
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Render(%q) mismatch (-want +got):\n%s", tc.tmpl, diff)
			}
		})
	}
}

func TestRenderHTTPGetDisabledOffline(t *testing.T) {
	t.Parallel()

	var warned string
	e := New(true, func(msg string) { warned = msg })
	scope := common.NewScope(nil)

	got, err := e.Render(nil, `{{ http_get "https://example.com" }}`, scope, Lenient)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if got != "" {
		t.Errorf("http_get in offline mode = %q, want empty", got)
	}
	if warned == "" {
		t.Error("expected a warning to be emitted for offline http_get")
	}
}

func TestRenderAll(t *testing.T) {
	t.Parallel()

	e := New(true, nil)
	scope := common.NewScope(map[string]string{"name": "svc"})

	in := []model.String{{Val: "hello-{{ .name }}"}, {Val: "static"}}
	got, err := RenderAll(e, in, scope, Lenient)
	if err != nil {
		t.Fatalf("RenderAll() error: %v", err)
	}

	want := []string{"hello-svc", "static"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RenderAll() mismatch (-want +got):\n%s", diff)
	}
}
