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
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// TTYConfirmPrompter implements ConfirmPrompter using promptui, accepting
// any of y/yes/n/no/a/always/q/quit (case-insensitive), defaulting to "n"
// on a blank answer.
type TTYConfirmPrompter struct{}

func (TTYConfirmPrompter) Confirm(ctx context.Context, label string) (string, error) {
	validate := func(input string) error {
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "", "y", "yes", "n", "no", "a", "always", "q", "quit":
			return nil
		default:
			return fmt.Errorf("enter y, n, always, or quit")
		}
	}
	prompt := promptui.Prompt{
		Label:    strings.TrimSuffix(label, " "),
		Validate: validate,
	}
	result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(result)), nil
}
