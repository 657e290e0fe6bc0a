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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSanitizeRev(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rev  string
		want string
	}{
		{name: "plain_tag", rev: "v1.2.3", want: "v1.2.3"},
		{name: "branch_with_slash", rev: "feature/foo", want: "feature_foo"},
		{name: "windows_style_colon", rev: "refs:heads:main", want: "refs_heads_main"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tc.want, sanitizeRev(tc.rev)); diff != "" {
				t.Errorf("sanitizeRev(%q) mismatch (-want +got):\n%s", tc.rev, diff)
			}
		})
	}
}

func TestCacheEntryDirIsDeterministicPerURIAndRev(t *testing.T) {
	t.Parallel()

	a1, err := cacheEntryDir("https://github.com/org/repo.git", "main")
	if err != nil {
		t.Fatal(err)
	}
	a2, err := cacheEntryDir("https://github.com/org/repo.git", "main")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a1, a2); diff != "" {
		t.Errorf("cacheEntryDir should be deterministic (-want +got):\n%s", diff)
	}

	b, err := cacheEntryDir("https://github.com/org/other.git", "main")
	if err != nil {
		t.Fatal(err)
	}
	if a1 == b {
		t.Error("different URIs produced the same cache entry directory")
	}
}

func TestCacheLockRoundTrips(t *testing.T) {
	t.Parallel()

	entryDir, err := cacheEntryDir("https://example.com/x.git", "main")
	if err != nil {
		t.Fatal(err)
	}

	unlock, err := cacheLock(entryDir)
	if err != nil {
		t.Fatalf("cacheLock() error: %v", err)
	}
	unlock()
}
