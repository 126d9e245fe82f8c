// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements command-line parsing and the command handlers
// for the rigchat binary.
//
// Parsing is hand-rolled in cli.go: Parse returns a Command constant
// and an Args value, and main dispatches to the matching Handle
// function. Handlers live one per file (serve.go, chat.go, render.go,
// sessions.go, config_cmd.go).
//
// Output conventions: results go to stdout, diagnostics to stderr.
// Colors follow TTY detection and NO_COLOR (terminal.go, styles.go).
// Destructive session actions prompt unless --confirm is given.
package cli
