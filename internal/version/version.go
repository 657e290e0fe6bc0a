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

// Package version exposes the build-time version string of the ffizer CLI.
package version

// These are overridden at build time via -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/ffizer/ffizer/internal/version.Version=1.2.3"
var (
	Name    = "ffizer"
	Version = "0.0.0-dev"
)

// HumanVersion is the version string shown in --version output.
func HumanVersion() string {
	return Name + " " + Version
}
