// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// =============================================================================
// LANGUAGE ALLOW-LIST
// =============================================================================

// knownLanguages is the allow-list of code-fence language tags, matched
// case-insensitively. A fence whose tag is absent from this set is not
// treated as a code block and renders as literal text, which keeps a typo
// like ```frobnicate from swallowing the rest of a streamed message.
var knownLanguages = map[string]struct{}{
	// Plain text
	"text": {}, "plain": {}, "plaintext": {}, "txt": {},

	// Systems and general-purpose
	"go": {}, "golang": {},
	"c": {}, "cpp": {}, "c++": {}, "h": {}, "hpp": {},
	"csharp": {}, "cs": {}, "c#": {},
	"rust": {}, "rs": {},
	"java": {}, "kotlin": {}, "kt": {}, "scala": {},
	"swift": {}, "objc": {}, "objective-c": {},
	"zig": {}, "nim": {}, "d": {},

	// Scripting
	"python": {}, "py": {},
	"javascript": {}, "js": {}, "jsx": {},
	"typescript": {}, "ts": {}, "tsx": {},
	"ruby": {}, "rb": {},
	"php": {}, "perl": {}, "pl": {},
	"lua": {}, "r": {}, "julia": {}, "dart": {},

	// Shell
	"sh": {}, "bash": {}, "shell": {}, "zsh": {}, "fish": {},
	"powershell": {}, "ps1": {}, "bat": {}, "cmd": {},

	// Functional
	"haskell": {}, "hs": {},
	"elixir": {}, "ex": {}, "erlang": {},
	"clojure": {}, "lisp": {}, "scheme": {},
	"ocaml": {}, "ml": {}, "fsharp": {}, "f#": {},

	// Data and markup
	"json": {}, "yaml": {}, "yml": {}, "toml": {}, "ini": {},
	"xml": {}, "html": {}, "css": {}, "scss": {}, "sass": {}, "less": {},
	"markdown": {}, "md": {},
	"sql": {}, "graphql": {}, "proto": {}, "protobuf": {},
	"csv": {}, "diff": {}, "patch": {},

	// Infra
	"dockerfile": {}, "docker": {}, "makefile": {}, "make": {},
	"nginx": {}, "terraform": {}, "hcl": {}, "cmake": {},

	// Misc
	"tex": {}, "latex": {}, "vim": {}, "regex": {}, "asm": {}, "wasm": {},
}

// knownLanguage reports whether a fence language tag is on the allow-list.
func knownLanguage(tag string) bool {
	_, ok := knownLanguages[strings.ToLower(tag)]
	return ok
}
