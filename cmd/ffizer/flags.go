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

package main

import (
	"github.com/abcxyz/pkg/cli"
)

// ApplyFlags holds the RunOptions for the "apply" subcommand
// (SPEC_FULL.md §3, §6).
type ApplyFlags struct {
	Source          string
	Destination     string
	Rev             string
	SourceSubfolder string
	Offline         bool
	Confirm         string
	AlwaysDefault   bool
	DryRun          bool
	GitProtocol     string
	LogLevel        string
	LogFormat       string
}

func (f *ApplyFlags) Register(set *cli.FlagSet) {
	s := set.NewSection("APPLY OPTIONS")

	s.StringVar(&cli.StringVar{
		Name:    "source",
		Target:  &f.Source,
		Example: "github.com/org/repo/subdir@v1.2.3",
		Usage:   "Required. The template source: a local directory, or a git URI/shorthand.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "destination",
		Aliases: []string{"d"},
		Target:  &f.Destination,
		Default: ".",
		Usage:   "The directory to write the rendered output into.",
	})

	s.StringVar(&cli.StringVar{
		Name:   "rev",
		Target: &f.Rev,
		Usage:  "The git revision to check out, overriding any revision parsed from --source.",
	})

	s.StringVar(&cli.StringVar{
		Name:   "source-subfolder",
		Target: &f.SourceSubfolder,
		Usage:  "The subdirectory within the resolved source that contains the template.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "offline",
		Target:  &f.Offline,
		Default: false,
		Usage:   "Never touch the network; a git source must already be cached.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "confirm",
		Target:  &f.Confirm,
		Default: "never",
		Usage:   "Either never or always; always prompts before every overwrite with a diff.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "x-always-default-value",
		Target:  &f.AlwaysDefault,
		Default: false,
		Usage:   "Skip prompting entirely; take every variable's evaluated default.",
	})

	s.BoolVar(&cli.BoolVar{
		Name:    "dry-run",
		Target:  &f.DryRun,
		Default: false,
		Usage:   "Compute and print the plan without writing to --destination.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "git-protocol",
		Target:  &f.GitProtocol,
		Default: "https",
		Usage:   "Either https or ssh, used to expand shorthand git sources.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "log-level",
		Target:  &f.LogLevel,
		Default: "warn",
		Usage:   "How verbose to log: debug, info, warn, or error.",
	})

	s.StringVar(&cli.StringVar{
		Name:    "log-format",
		Target:  &f.LogFormat,
		Default: "text",
		Usage:   "Either text or json.",
	})
}
