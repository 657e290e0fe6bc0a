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
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// TTYPrompter implements Prompter using promptui, for arrow-key selection
// and editable-default text entry. It should only be constructed after
// confirming stdin is a terminal; use IsInteractive to check.
type TTYPrompter struct{}

// IsInteractive reports whether stdin is attached to a terminal, which is
// required before any prompting is attempted (SPEC_FULL.md §4.C, §6).
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

func (TTYPrompter) Ask(ctx context.Context, label, def string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: def,
	}
	result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return result, nil
}

func (TTYPrompter) Select(ctx context.Context, label string, items []string, defaultIdx int) (int, error) {
	cursor := 0
	if defaultIdx >= 0 {
		cursor = defaultIdx
	}
	sel := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return -1, fmt.Errorf("select failed: %w", err)
	}
	return idx, nil
}

func (TTYPrompter) Confirm(ctx context.Context, label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirm prompt failed: %w", err)
	}
	return true, nil
}
