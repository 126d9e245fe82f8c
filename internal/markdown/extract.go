// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// PROTECTED-REGION EXTRACTION
// =============================================================================

// codeBlock is an extracted fenced code block. The code is stored raw and
// escaped only at restoration time, so the extractor's own patterns never
// see already-escaped entities.
type codeBlock struct {
	Language string // lowercased fence tag, or "plaintext"
	Code     string
}

// renderContext carries the per-call side tables of protected regions.
// All placeholder counters are local to one render invocation, so
// concurrent renders of different messages never share state.
type renderContext struct {
	codeBlocks  []codeBlock
	inlineCodes []string
	tables      [][]string
}

func codeBlockToken(i int) string  { return fmt.Sprintf("__CODEBLOCK_%d__", i) }
func inlineCodeToken(i int) string { return fmt.Sprintf("__INLINECODE_%d__", i) }
func tableToken(i int) string      { return fmt.Sprintf("__TABLE_%d__", i) }

// extract pulls fenced code blocks, inline code spans, and pipe tables out
// of the raw text, replacing each with a sentinel token. Stages run in a
// fixed order, each scanning the output of the previous one:
//
//  1. fenced blocks with a declared (allow-listed) language
//  2. fenced blocks with no language
//  3. inline code, single-backtick pass
//  4. pipe tables
//  5. inline code, generalized backtick-run pass
//
// Fences are pulled before inline code so a fence's internal backticks are
// never misread as spans; the first inline pass runs before tables so a
// pipe inside inline code cannot confuse the row matcher; the second pass
// catches spans that only become visible once table pipes are gone.
func (ctx *renderContext) extract(text string) string {
	text = ctx.extractFencedWithLanguage(text)
	text = ctx.extractFencedPlain(text)
	text = ctx.extractInlineCode(text)
	text = ctx.extractTables(text)
	text = ctx.extractBacktickRuns(text)
	return text
}

// -----------------------------------------------------------------------------
// Fenced code blocks
// -----------------------------------------------------------------------------

var (
	fencedLangRe  = regexp.MustCompile("(?s)```([A-Za-z0-9_+.#-]+)[ \t]*\n(.*?)```")
	fencedPlainRe = regexp.MustCompile("(?s)```[ \t]*\n(.*?)```")
)

// extractFencedWithLanguage extracts ```lang fences whose tag is on the
// allow-list. Unknown tags and unterminated fences are left untouched and
// fall through to later stages as ordinary text.
func (ctx *renderContext) extractFencedWithLanguage(text string) string {
	return fencedLangRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := fencedLangRe.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		lang := strings.ToLower(parts[1])
		if !knownLanguage(lang) {
			return match
		}
		ctx.codeBlocks = append(ctx.codeBlocks, codeBlock{
			Language: lang,
			Code:     trimBlankLines(parts[2]),
		})
		return codeBlockToken(len(ctx.codeBlocks) - 1)
	})
}

// extractFencedPlain extracts ``` fences without a language tag. These are
// always accepted and stored as plaintext.
func (ctx *renderContext) extractFencedPlain(text string) string {
	return fencedPlainRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := fencedPlainRe.FindStringSubmatch(match)
		if len(parts) != 2 {
			return match
		}
		ctx.codeBlocks = append(ctx.codeBlocks, codeBlock{
			Language: "plaintext",
			Code:     trimBlankLines(parts[1]),
		})
		return codeBlockToken(len(ctx.codeBlocks) - 1)
	})
}

// trimBlankLines strips leading and trailing blank lines from a fence body
// while preserving interior indentation.
func trimBlankLines(s string) string {
	return strings.Trim(s, "\r\n")
}

// -----------------------------------------------------------------------------
// Inline code, first pass
// -----------------------------------------------------------------------------

var inlineCodeRe = regexp.MustCompile("`[^`\n]+`")

// extractInlineCode extracts single-backtick spans. A span only counts when
// it is not adjacent to further backticks on either side, so the interior
// of a double-backtick span is never matched prematurely.
func (ctx *renderContext) extractInlineCode(text string) string {
	matches := inlineCodeRe.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && text[start-1] == '`' {
			continue
		}
		if end < len(text) && text[end] == '`' {
			continue
		}
		sb.WriteString(text[last:start])
		ctx.inlineCodes = append(ctx.inlineCodes, text[start+1:end-1])
		sb.WriteString(inlineCodeToken(len(ctx.inlineCodes) - 1))
		last = end
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// -----------------------------------------------------------------------------
// Pipe tables
// -----------------------------------------------------------------------------

// tableSeparatorRe matches a pure alignment/separator row, e.g. |---|:--:|.
var tableSeparatorRe = regexp.MustCompile(`^\|[ \t:|-]+\|$`)

// isTableLine reports whether a line is a candidate table row: it starts
// and ends with a pipe after trimming surrounding whitespace.
func isTableLine(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) >= 2 && strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|")
}

// isSeparatorLine reports whether a line is a pure alignment row.
func isSeparatorLine(line string) bool {
	return tableSeparatorRe.MatchString(strings.TrimSpace(line))
}

// extractTables extracts maximal runs of consecutive piped lines, but only
// when the run contains a separator row. A lone piped line that is not a
// real table stays in place and renders as literal text.
func (ctx *renderContext) extractTables(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		if !isTableLine(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		j := i
		hasSeparator := false
		for j < len(lines) && isTableLine(lines[j]) {
			if isSeparatorLine(lines[j]) {
				hasSeparator = true
			}
			j++
		}

		if hasSeparator {
			block := make([]string, j-i)
			copy(block, lines[i:j])
			ctx.tables = append(ctx.tables, block)
			out = append(out, tableToken(len(ctx.tables)-1))
		} else {
			out = append(out, lines[i:j]...)
		}
		i = j
	}

	return strings.Join(out, "\n")
}

// -----------------------------------------------------------------------------
// Inline code, second pass
// -----------------------------------------------------------------------------

var backtickRunRe = regexp.MustCompile("(`+)([^`\n]+)(`+)")

// extractBacktickRuns catches spans the first pass left behind, typically
// ones that only surfaced after table extraction removed confounding pipes.
// A run of N backticks around backtick-free content counts as inline code
// only when N is odd and both runs have equal length; doubled backticks are
// the user's literal-backtick escape convention and pass through untouched.
func (ctx *renderContext) extractBacktickRuns(text string) string {
	return backtickRunRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := backtickRunRe.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		open, body, closing := parts[1], parts[2], parts[3]
		if len(open) != len(closing) || len(open)%2 == 0 {
			return match
		}
		ctx.inlineCodes = append(ctx.inlineCodes, body)
		return inlineCodeToken(len(ctx.inlineCodes) - 1)
	})
}
