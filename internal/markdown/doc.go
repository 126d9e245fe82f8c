// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown converts a constrained Markdown dialect into sanitized
// HTML, incrementally re-rendering as streamed tokens arrive.
//
// The renderer is built for streaming chat replies: on every streamed
// fragment the caller re-renders the entire accumulated text, so the
// pipeline must tolerate incomplete input (unterminated fences, tables
// mid-row) and produce identical output for identical input with no state
// carried between calls.
//
// Pipeline per render call:
//  1. Extract protected regions (fenced code, inline code, pipe tables)
//     into call-local side tables, substituting sentinel tokens.
//  2. HTML-escape the residual text.
//  3. Apply line-oriented (headers, rules, quotes, lists) and
//     span-oriented (bold, italic, strikethrough, links, images) rules.
//  4. Normalize paragraphs and line breaks.
//  5. Restore protected regions (inline code, then tables, then code
//     blocks), escaping their contents exactly once at restoration time.
//  6. Strip stray line breaks around block elements.
//
// Malformed input is never an error: unknown code-fence languages,
// unterminated fences, and piped lines without a separator row all fall
// back to literal, escaped text.
package markdown
