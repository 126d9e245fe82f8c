// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation prompts for destructive commands.
//
// One pattern everywhere: --confirm skips the prompt, a non-TTY stdin
// requires it, and otherwise the user is asked interactively.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Confirm checks whether the user has confirmed a destructive action.
// When confirmFlag is set the prompt is skipped. Without a TTY the
// flag is mandatory, since there is nobody to ask.
func Confirm(action string, confirmFlag bool) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if !IsTTY() {
		return false, fmt.Errorf("refusing to %s without --confirm (stdin is not a terminal)", action)
	}

	fmt.Printf("%s %s? [y/N] ", WarningStyle.Render("Really"), action)

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
