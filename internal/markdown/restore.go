// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"log"
	"strings"
)

// =============================================================================
// PLACEHOLDER RESTORATION
// =============================================================================

// restore re-inserts rendered protected regions in dependency order:
// inline code first, then tables (whose cells resolve their own inline-code
// sentinels), then code blocks last, which can never contain sentinels of
// the other kinds.
func (ctx *renderContext) restore(text string, highlight Highlighter) string {
	text = restoreInlineCode(text, ctx.inlineCodes)

	for i, lines := range ctx.tables {
		token := tableToken(i)
		if !strings.Contains(text, token) {
			continue
		}
		text = strings.ReplaceAll(text, token, renderTable(lines, ctx.inlineCodes))
	}

	for i, block := range ctx.codeBlocks {
		token := codeBlockToken(i)
		if !strings.Contains(text, token) {
			continue
		}
		text = strings.ReplaceAll(text, token, renderCodeBlock(block, highlight))
	}

	return text
}

// restoreInlineCode replaces every inline-code sentinel with its rendered
// span. The stored code is raw and gets its single escaping pass here.
func restoreInlineCode(text string, codes []string) string {
	if !strings.Contains(text, "__INLINECODE_") {
		return text
	}
	for i, code := range codes {
		token := inlineCodeToken(i)
		if !strings.Contains(text, token) {
			continue
		}
		text = strings.ReplaceAll(text, token, `<code class="inline-code">`+escapeHTML(code)+`</code>`)
	}
	return text
}

// renderCodeBlock renders an extracted fence: a header bar with the
// language name and a copy affordance, then the verbatim code. Code block
// contents never pass through the formatter. When a highlighter is
// configured its markup replaces the escaped body; a highlighter failure is
// logged and the escaped code is shown unstyled.
func renderCodeBlock(block codeBlock, highlight Highlighter) string {
	display := block.Language
	if display == "plaintext" {
		display = "text"
	}

	body := ""
	if highlight != nil {
		out, err := highlight(block.Code, block.Language)
		if err != nil {
			log.Printf("HIGHLIGHT_FAILED | lang=%s error=%v", block.Language, err)
		} else {
			body = out
		}
	}
	if body == "" {
		body = escapeHTML(block.Code)
	}

	var sb strings.Builder
	sb.WriteString(`<div class="code-block">`)
	sb.WriteString(`<div class="code-header"><span class="code-lang">`)
	sb.WriteString(escapeHTML(display))
	sb.WriteString(`</span><button class="code-copy" data-action="copy-code">Copy</button></div>`)
	sb.WriteString(`<pre><code class="language-` + block.Language + `">`)
	sb.WriteString(body)
	sb.WriteString(`</code></pre></div>`)
	return sb.String()
}
