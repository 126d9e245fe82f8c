// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// =============================================================================
// HTML ESCAPING
// =============================================================================

// htmlEscaper replaces the five HTML-sensitive characters. The replacer
// substitutes in a single pass over the input, so the ampersands introduced
// by the other replacements are never re-escaped.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// escapeHTML escapes text for safe embedding in HTML. It must be applied
// exactly once per leaf text segment: protected-region contents are escaped
// at restoration time, everything else right after extraction.
func escapeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlEscaper.Replace(s)
}
