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

package executor

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff renders a unified-ish, line-level diff between before and after,
// for display ahead of a confirm=always overwrite prompt. Lines only present
// in before are prefixed "-", lines only in after are prefixed "+", and
// unchanged lines are prefixed with two spaces. Output is colorized red/green
// when stdout is a terminal, following the same isatty-gated pattern as the
// teacher's golden-test diff output.
func LineDiff(before, after string) string {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	red, green := fmt.Sprint, fmt.Sprint
	if isatty.IsTerminal(os.Stdout.Fd()) {
		red = color.New(color.FgRed).SprintFunc()
		green = color.New(color.FgGreen).SprintFunc()
	}

	var sb strings.Builder
	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				fmt.Fprintf(&sb, "%s\n", green("+ "+line))
			case diffmatchpatch.DiffDelete:
				fmt.Fprintf(&sb, "%s\n", red("- "+line))
			case diffmatchpatch.DiffEqual:
				fmt.Fprintf(&sb, "  %s\n", line)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
