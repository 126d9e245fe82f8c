// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"regexp"
	"strings"
)

// =============================================================================
// BLOCK/INLINE FORMATTING
// =============================================================================

// The formatter operates on text that is already escaped and carries
// sentinel tokens. Sentinels are plain word tokens and survive every rule
// below untouched. Rules apply in a fixed order; later rules may act on the
// output of earlier ones.

var (
	// Headers, longest hash count first so ### is never half-matched by #.
	headingRes = []struct {
		re  *regexp.Regexp
		tag string
	}{
		{regexp.MustCompile(`(?m)^###### +(.+)$`), "h6"},
		{regexp.MustCompile(`(?m)^##### +(.+)$`), "h5"},
		{regexp.MustCompile(`(?m)^#### +(.+)$`), "h4"},
		{regexp.MustCompile(`(?m)^### +(.+)$`), "h3"},
		{regexp.MustCompile(`(?m)^## +(.+)$`), "h2"},
		{regexp.MustCompile(`(?m)^# +(.+)$`), "h1"},
	}

	horizontalRuleRe = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)

	// Blockquote matches the escaped form of ">" since escaping runs first.
	blockquoteRe = regexp.MustCompile(`(?m)^&gt;[ \t]?(.*)$`)

	unorderedItemRe = regexp.MustCompile(`(?m)^[-+*][ \t]+(.+)$`)
	orderedItemRe   = regexp.MustCompile(`(?m)^\d+\.[ \t]+(.+)$`)

	boldRe          = regexp.MustCompile(`(?s)\*\*(.+?)\*\*`)
	italicStarRe    = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUnderRe   = regexp.MustCompile(`(?m)(^|[^0-9A-Za-z_])_([^_\n]+)_($|[^0-9A-Za-z_])`)
	strikethroughRe = regexp.MustCompile(`~~([^~]+)~~`)
	linkRe          = regexp.MustCompile(`!?\[([^\]]*)\]\(([^()\s]+)\)`)
	imageRe         = regexp.MustCompile(`!\[([^\]]*)\]\(([^()\s]+)\)`)
)

// formatBlocks applies all line-oriented and span-oriented rules.
func formatBlocks(text string) string {
	for _, h := range headingRes {
		text = h.re.ReplaceAllString(text, "<"+h.tag+">$1</"+h.tag+">")
	}
	text = horizontalRuleRe.ReplaceAllString(text, "<hr>")
	text = blockquoteRe.ReplaceAllString(text, "<blockquote>$1</blockquote>")
	text = formatLists(text)
	text = formatSpans(text)
	return text
}

// -----------------------------------------------------------------------------
// Lists
// -----------------------------------------------------------------------------

// formatLists converts list-item lines and wraps maximal runs of items in a
// single container. A run becomes an ordered list when any of its items
// matched the digit-dot pattern; mixed runs deliberately share one
// container rather than being split.
func formatLists(text string) string {
	// Ordered items get a distinct interim tag so the wrapper can tell the
	// two apart after line-level substitution.
	text = unorderedItemRe.ReplaceAllString(text, "<li>$1</li>")
	text = orderedItemRe.ReplaceAllString(text, "<oli>$1</oli>")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	isItem := func(line string) bool {
		return strings.HasPrefix(line, "<li>") || strings.HasPrefix(line, "<oli>")
	}

	for i := 0; i < len(lines); {
		if !isItem(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		j := i
		ordered := false
		for j < len(lines) && isItem(lines[j]) {
			if strings.HasPrefix(lines[j], "<oli>") {
				ordered = true
			}
			j++
		}

		var run strings.Builder
		for _, line := range lines[i:j] {
			line = strings.ReplaceAll(line, "<oli>", "<li>")
			line = strings.ReplaceAll(line, "</oli>", "</li>")
			run.WriteString(line)
		}

		tag := "ul"
		if ordered {
			tag = "ol"
		}
		out = append(out, "<"+tag+">"+run.String()+"</"+tag+">")
		i = j
	}

	return strings.Join(out, "\n")
}

// -----------------------------------------------------------------------------
// Spans
// -----------------------------------------------------------------------------

// formatSpans applies the span-oriented rules: bold, italic, strikethrough,
// links, and images. This is also the full rule set for table cells, which
// never receive block-level structure.
func formatSpans(text string) string {
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicStarRe.ReplaceAllString(text, "<em>$1</em>")
	text = italicUnderRe.ReplaceAllString(text, "$1<em>$2</em>$3")
	text = strikethroughRe.ReplaceAllString(text, "<del>$1</del>")

	// Links skip image syntax; the image rule right after picks it up.
	text = linkRe.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, "!") {
			return match
		}
		parts := linkRe.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		return `<a href="` + parts[2] + `" target="_blank" rel="noopener noreferrer">` + parts[1] + `</a>`
	})
	text = imageRe.ReplaceAllString(text, `<img src="$2" alt="$1" loading="lazy">`)

	return text
}
