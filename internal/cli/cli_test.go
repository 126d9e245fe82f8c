// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"testing"
)

func TestParseArgs_DefaultsToServe(t *testing.T) {
	cmd, _ := ParseArgs(nil)
	if cmd != CmdServe {
		t.Errorf("no args should default to serve, got %v", cmd)
	}
}

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"serve"}, CmdServe},
		{[]string{"server"}, CmdServe},
		{[]string{"chat"}, CmdChat},
		{[]string{"render", "file.md"}, CmdRender},
		{[]string{"sessions"}, CmdSessions},
		{[]string{"session", "list"}, CmdSessions},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"-h"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, _ := ParseArgs(tt.argv)
			if cmd != tt.want {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"-q", "chat", "-m", "qwen2.5:14b"})
	if cmd != CmdChat {
		t.Fatalf("command = %v, want CmdChat", cmd)
	}
	if !args.Quiet {
		t.Error("quiet flag not parsed")
	}
	if args.Model != "qwen2.5:14b" {
		t.Errorf("model = %q, want qwen2.5:14b", args.Model)
	}
}

func TestParseArgs_GlobalFlagsAfterCommand(t *testing.T) {
	_, args := ParseArgs([]string{"serve", "--verbose"})
	if !args.Verbose {
		t.Error("verbose flag after command not parsed")
	}
}

func TestParseArgs_Options(t *testing.T) {
	_, args := ParseArgs([]string{"serve", "--host", "0.0.0.0", "--port", "9000", "--no-watch"})

	if got := args.Option("host", ""); got != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", got)
	}
	if got := args.Option("port", ""); got != "9000" {
		t.Errorf("port = %q, want 9000", got)
	}
	if !args.HasOption("no-watch") {
		t.Error("boolean option no-watch not parsed")
	}
	if args.HasOption("missing") {
		t.Error("HasOption reported an option that was never given")
	}
}

func TestParseArgs_OptionEqualsForm(t *testing.T) {
	_, args := ParseArgs([]string{"render", "--style=github", "notes.md"})

	if got := args.Option("style", ""); got != "github" {
		t.Errorf("style = %q, want github", got)
	}
	if len(args.Raw) != 1 || args.Raw[0] != "notes.md" {
		t.Errorf("positionals = %v, want [notes.md]", args.Raw)
	}
}

func TestParseArgs_SessionsSubcommand(t *testing.T) {
	cmd, args := ParseArgs([]string{"sessions", "export", "conv_ab12", "--format", "html"})
	if cmd != CmdSessions {
		t.Fatalf("command = %v, want CmdSessions", cmd)
	}
	if args.Subcommand != "export" {
		t.Errorf("subcommand = %q, want export", args.Subcommand)
	}
	if len(args.Raw) != 1 || args.Raw[0] != "conv_ab12" {
		t.Errorf("positionals = %v, want [conv_ab12]", args.Raw)
	}
	if got := args.Option("format", ""); got != "html" {
		t.Errorf("format = %q, want html", got)
	}
}

func TestParseArgs_ConfigSet(t *testing.T) {
	cmd, args := ParseArgs([]string{"config", "set", "llm.model", "llama3.2"})
	if cmd != CmdConfig {
		t.Fatalf("command = %v, want CmdConfig", cmd)
	}
	if args.Subcommand != "set" {
		t.Errorf("subcommand = %q, want set", args.Subcommand)
	}
	if len(args.Raw) != 2 || args.Raw[0] != "llm.model" || args.Raw[1] != "llama3.2" {
		t.Errorf("positionals = %v, want [llm.model llama3.2]", args.Raw)
	}
}

func TestOption_Fallback(t *testing.T) {
	args := Args{Options: map[string]string{"set": "value", "empty": ""}}

	if got := args.Option("set", "fb"); got != "value" {
		t.Errorf("Option(set) = %q, want value", got)
	}
	if got := args.Option("empty", "fb"); got != "fb" {
		t.Errorf("Option(empty) = %q, want fallback", got)
	}
	if got := args.Option("absent", "fb"); got != "fb" {
		t.Errorf("Option(absent) = %q, want fallback", got)
	}
}

func TestWrapText(t *testing.T) {
	long := strings.Repeat("word ", 30)
	wrapped := WrapText(strings.TrimSpace(long), 40)

	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > 40 {
			t.Errorf("line exceeds width: %q (%d chars)", line, len(line))
		}
	}
}

func TestWrapText_PreservesNewlines(t *testing.T) {
	in := "first\nsecond"
	if got := WrapText(in, 80); got != in {
		t.Errorf("WrapText changed short lines: %q", got)
	}
}

func TestChatStreamError_Messages(t *testing.T) {
	// Generic errors keep their cause in the message chain.
	err := chatStreamError(errTest)
	if err == nil || !strings.Contains(err.Error(), "streaming failed") {
		t.Errorf("generic error = %v, want streaming failed wrapper", err)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "boom" }
