// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// PARAGRAPH / WHITESPACE NORMALIZATION
// =============================================================================

var (
	paragraphBreakRe = regexp.MustCompile(`\n{2,}`)

	// Block-level elements must not carry a stray <br> on either side.
	breakBeforeBlockRe = regexp.MustCompile(`(?:<br>\s*)+(<(?:div|table|ul|ol|blockquote|h[1-6]|hr|pre))`)
	breakAfterBlockRe  = regexp.MustCompile(`(</(?:div|table|ul|ol|blockquote|pre)>|</h[1-6]>|<hr>)(?:\s*<br>)+`)
)

// normalizeParagraphs converts blank-line-separated runs into paragraphs:
// a blank line becomes a paragraph boundary, remaining single newlines
// become line breaks, and the whole result is wrapped in one paragraph
// container. Empty paragraph artifacts are collapsed.
func normalizeParagraphs(text string) string {
	text = paragraphBreakRe.ReplaceAllString(text, "</p><p>")
	text = strings.ReplaceAll(text, "\n", "<br>")
	text = "<p>" + text + "</p>"
	text = strings.ReplaceAll(text, "<p></p>", "")
	return text
}

// cleanupWhitespace runs after restoration and strips line-break elements
// hugging block-level elements, plus breaks trapped against paragraph
// boundaries. Purely cosmetic, but without it every code block or table
// arrives with a blank line glued above and below.
func cleanupWhitespace(text string) string {
	text = breakBeforeBlockRe.ReplaceAllString(text, "$1")
	text = breakAfterBlockRe.ReplaceAllString(text, "$1")
	text = strings.ReplaceAll(text, "<p><br>", "<p>")
	text = strings.ReplaceAll(text, "<br></p>", "</p>")
	text = strings.ReplaceAll(text, "<p></p>", "")
	return text
}
