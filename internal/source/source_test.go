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

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ffizer/ffizer/internal/common"
)

func TestParseLocalPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	dl, err := Parse(context.Background(), &ParseParams{
		Source: dir,
		Cwd:    "/somewhere/else",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff(dir, dl.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLocalPathRelativeToCwd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parent := filepath.Dir(dir)
	base := filepath.Base(dir)

	dl, err := Parse(context.Background(), &ParseParams{
		Source: base,
		Cwd:    parent,
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff(dir, dl.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMissingLocalPath(t *testing.T) {
	t.Parallel()

	_, err := Parse(context.Background(), &ParseParams{
		Source: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	var notFound *common.SourceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error %v is not a SourceNotFoundError", err)
	}
}

func TestParseRejectsMetadataFilePath(t *testing.T) {
	t.Parallel()

	_, err := Parse(context.Background(), &ParseParams{Source: "some/dir/.ffizer.yaml"})
	if err == nil {
		t.Fatal("expected an error when the source names .ffizer.yaml directly")
	}
}

func TestParseGitShorthand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		source string
		proto  Protocol
		rev    string
		want   string
	}{
		{
			name:   "https_default",
			source: "github.com/org/repo",
			proto:  ProtocolHTTPS,
			want:   "https://github.com/org/repo.git@master",
		},
		{
			name:   "ssh_with_rev",
			source: "github.com/org/repo@v1.2.3",
			proto:  ProtocolSSH,
			want:   "git@github.com:org/repo.git@v1.2.3",
		},
		{
			name:   "with_subfolder",
			source: "gitlab.com/org/repo/sub/dir@main",
			proto:  ProtocolHTTPS,
			want:   "https://gitlab.com/org/repo.git/sub/dir@main",
		},
		{
			name:   "rev_override",
			source: "github.com/org/repo@v1.0.0",
			proto:  ProtocolHTTPS,
			rev:    "v2.0.0",
			want:   "https://github.com/org/repo.git@v2.0.0",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dl, err := Parse(context.Background(), &ParseParams{
				Source:      tc.source,
				GitProtocol: tc.proto,
				RevOverride: tc.rev,
			})
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if diff := cmp.Diff(tc.want, dl.String()); diff != "" {
				t.Errorf("String() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFullGitURL(t *testing.T) {
	t.Parallel()

	dl, err := Parse(context.Background(), &ParseParams{
		Source: "https://example.com/org/repo.git",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff("https://example.com/org/repo.git@master", dl.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalDownloaderDownload(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "file.txt"), []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}

	dst := t.TempDir()
	dl, err := Parse(context.Background(), &ParseParams{Source: src})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	dm, err := dl.Download(context.Background(), dst)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	want := &DownloadMetadata{URI: src, IsLocal: true}
	if diff := cmp.Diff(want, dm, cmpopts.IgnoreFields(DownloadMetadata{}, "Subfolder", "Revision")); diff != "" {
		t.Errorf("DownloadMetadata mismatch (-want +got):\n%s", diff)
	}

	got, err := os.ReadFile(filepath.Join(dst, "file.txt"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if diff := cmp.Diff("hi", string(got)); diff != "" {
		t.Errorf("copied content mismatch (-want +got):\n%s", diff)
	}
}
