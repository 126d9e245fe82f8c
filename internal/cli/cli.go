// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing and dispatch for rigchat.
//
// rigchat ships a single binary with a handful of subcommands. Parsing
// is hand-rolled: the flag surface is small and stable, and keeping it
// in one switch makes the usage text and the parser impossible to
// drift apart.
//
// Commands:
//   serve      Start the local chat server (default)
//   chat       Interactive terminal chat session
//   render     Render Markdown to HTML on stdout
//   sessions   List, search, export, and delete saved conversations
//   config     Show or modify configuration
//   version    Print version information
//   help       Show usage

package cli

import (
	"fmt"
	"os"
	"strings"
)

// =============================================================================
// VERSION INFO
// =============================================================================

// Build metadata, overridable via -ldflags at release time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies which subcommand was requested.
type Command int

const (
	CmdServe Command = iota
	CmdChat
	CmdRender
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet   bool   // -q, --quiet: minimal output
	Verbose bool   // -v, --verbose: verbose output
	Model   string // -m, --model: override the configured model

	// Subcommand and positional arguments
	Subcommand string
	Raw        []string

	// Command-specific options (--key value and --key)
	Options map[string]string
}

// HasOption reports whether a flag-style option was present.
func (a Args) HasOption(name string) bool {
	_, ok := a.Options[name]
	return ok
}

// Option returns the value of an option, or fallback when absent.
func (a Args) Option(name, fallback string) string {
	if v, ok := a.Options[name]; ok && v != "" {
		return v
	}
	return fallback
}

const usageText = `rigchat %s - local chat client with server-side Markdown rendering

USAGE:
  rigchat [command] [options]

COMMANDS:
  serve                Start the chat server (default when no command given)
  chat                 Interactive chat in the terminal
  render [file]        Render Markdown (file or stdin) to HTML on stdout
  sessions [action]    Manage saved conversations
  config [action]      Show or modify configuration
  version              Print version information
  help                 Show this help

GLOBAL OPTIONS:
  -m, --model NAME     Use a specific model (overrides config)
  -q, --quiet          Minimal output
  -v, --verbose        Verbose output

SERVE OPTIONS:
  --host HOST          Bind address (default from config)
  --port PORT          Bind port (default from config)
  --no-watch           Disable config file hot reload

SESSIONS ACTIONS:
  list                 List saved conversations (default)
  search QUERY         Search conversations by content
  show ID              Print a conversation
  export ID            Export a conversation (--format html|markdown|json)
  delete ID            Delete a conversation
  clear                Delete all conversations

CONFIG ACTIONS:
  show                 Print the active configuration (default)
  path                 Print the config file path
  init                 Write a default config file

EXAMPLES:
  rigchat                              Start the server
  rigchat serve --port 9000            Serve on another port
  rigchat chat -m qwen2.5:14b          Chat with a specific model
  rigchat render README.md             Render a file to HTML
  cat notes.md | rigchat render        Render stdin to HTML
  rigchat sessions export conv_ab12 --format html

Configuration file: ~/.rigchat/config.toml
Environment overrides: RIGCHAT_HOST, RIGCHAT_PORT, RIGCHAT_MODEL, ...
`

// PrintUsage prints usage information.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("rigchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args and returns the command and parsed arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given argument list. Split out from Parse so
// tests can drive it directly.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	// No command defaults to serve.
	if len(remaining) == 0 {
		return CmdServe, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "serve", "server":
		parseOptions(&args, remaining)
		return CmdServe, args

	case "chat":
		parseOptions(&args, remaining)
		return CmdChat, args

	case "render":
		parseOptions(&args, remaining)
		return CmdRender, args

	case "session", "sessions":
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			args.Subcommand = strings.ToLower(remaining[0])
			remaining = remaining[1:]
		}
		args.Raw = remaining
		parseOptions(&args, remaining)
		return CmdSessions, args

	case "config":
		if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
			args.Subcommand = strings.ToLower(remaining[0])
			remaining = remaining[1:]
		}
		args.Raw = remaining
		parseOptions(&args, remaining)
		return CmdConfig, args

	case "version", "--version", "-V":
		return CmdVersion, args

	case "help", "--help", "-h":
		return CmdHelp, args

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts global flags, returning the remaining
// arguments and the partially populated Args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	args := Args{Options: make(map[string]string)}
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-m", "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		default:
			remaining = append(remaining, argv[i])
		}
	}

	return remaining, args
}

// parseOptions collects --key value and bare --key pairs into
// args.Options and keeps positionals in args.Raw.
func parseOptions(args *Args, argv []string) {
	var positional []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}

		name := strings.TrimPrefix(arg, "--")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			args.Options[name[:eq]] = name[eq+1:]
			continue
		}
		// A following non-flag token is the value; otherwise the
		// option is boolean.
		if i+1 < len(argv) && !strings.HasPrefix(argv[i+1], "--") {
			args.Options[name] = argv[i+1]
			i++
		} else {
			args.Options[name] = ""
		}
	}

	args.Raw = positional
}

// =============================================================================
// SIMPLE HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	PrintVersion()
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp(args Args) error {
	PrintUsage()
	return nil
}
