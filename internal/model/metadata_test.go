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

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestParseMetadata(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   string
		want    *Metadata
		wantErr string
	}{
		{
			name:  "empty_file",
			input: "",
			want:  &Metadata{},
		},
		{
			name:  "whitespace_only",
			input: "   \n\t\n",
			want:  &Metadata{},
		},
		{
			name: "variables_and_imports",
			input: `
variables:
  - name: service_name
    desc: the name of the service
    default_value: "my-svc"
imports:
  - uri: github.com/org/base
scripts:
  - cmd: go mod tidy
`,
		},
		{
			name: "duplicate_variable_name_rejected",
			input: `
variables:
  - name: foo
    default_value: "a"
  - name: foo
    default_value: "b"
`,
			wantErr: "is declared twice",
		},
		{
			name: "hidden_without_default_rejected",
			input: `
variables:
  - name: foo
    hidden: true
`,
			wantErr: "has hidden:true but no default_value",
		},
		{
			name: "import_missing_uri_rejected",
			input: `
imports:
  - rev: v1.0.0
`,
			wantErr: `missing required field "uri"`,
		},
		{
			name: "script_missing_cmd_rejected",
			input: `
scripts:
  - message: "doing a thing"
`,
			wantErr: `missing required field "cmd"`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseMetadata([]byte(tc.input))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("got error %v, want one containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil {
				if diff := cmp.Diff(tc.want, got, cmpopts.IgnoreFields(Metadata{}, "Pos")); diff != "" {
					t.Errorf("metadata mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestMetadataContentRoot(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		md   *Metadata
		want string
	}{
		{
			name: "default_is_dot",
			md:   &Metadata{},
			want: ".",
		},
		{
			name: "use_template_dir_true",
			md:   &Metadata{UseTemplateDir: Bool{Val: true}},
			want: "template",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tc.want, tc.md.ContentRoot()); diff != "" {
				t.Errorf("ContentRoot() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImportDefRevOrDefault(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		imp  *ImportDef
		want string
	}{
		{
			name: "no_rev_defaults_to_master",
			imp:  &ImportDef{},
			want: "master",
		},
		{
			name: "empty_rev_defaults_to_master",
			imp:  &ImportDef{Rev: &String{Val: ""}},
			want: "master",
		},
		{
			name: "explicit_rev",
			imp:  &ImportDef{Rev: &String{Val: "v2.0.0"}},
			want: "v2.0.0",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tc.want, tc.imp.RevOrDefault()); diff != "" {
				t.Errorf("RevOrDefault() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
