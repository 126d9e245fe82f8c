// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// =============================================================================
// TABLE RENDERING
// =============================================================================

// renderTable turns the raw lines of an extracted table into an HTML table.
// The first separator row splits header rows from body rows and declares
// per-column alignment. Cells run through the inline-only formatter with
// the render call's inline-code side table, so code spans inside cells
// restore correctly. If no separator is present the raw lines come back as
// escaped plain text; extraction should never let that happen, but the
// renderer must not crash on it either.
func renderTable(lines []string, inlineCodes []string) string {
	separator := -1
	for i, line := range lines {
		if isSeparatorLine(line) {
			separator = i
			break
		}
	}
	if separator == -1 {
		return escapeHTML(strings.Join(lines, "\n"))
	}

	alignments := parseAlignments(lines[separator])

	var sb strings.Builder
	sb.WriteString(`<table class="md-table">`)

	if separator > 0 {
		sb.WriteString("<thead>")
		for _, row := range lines[:separator] {
			writeTableRow(&sb, row, alignments, "th", inlineCodes)
		}
		sb.WriteString("</thead>")
	}

	if separator+1 < len(lines) {
		sb.WriteString("<tbody>")
		for _, row := range lines[separator+1:] {
			writeTableRow(&sb, row, alignments, "td", inlineCodes)
		}
		sb.WriteString("</tbody>")
	}

	sb.WriteString("</table>")
	return sb.String()
}

// parseAlignments classifies each column of the separator row: colons on
// both sides center, a trailing colon alone right-aligns, anything else
// left-aligns.
func parseAlignments(separator string) []string {
	cells := splitTableRow(separator)
	alignments := make([]string, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		left := strings.HasPrefix(cell, ":")
		right := strings.HasSuffix(cell, ":")
		switch {
		case left && right:
			alignments[i] = "center"
		case right:
			alignments[i] = "right"
		default:
			alignments[i] = "left"
		}
	}
	return alignments
}

// splitTableRow splits a row on pipes and discards the empty edge cells
// produced by the leading and trailing pipe. Interior empty cells survive.
func splitTableRow(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// writeTableRow renders one header or body row. Ragged rows are handled
// positionally: short rows simply produce fewer cells, and cells beyond the
// alignment list fall back to left alignment.
func writeTableRow(sb *strings.Builder, line string, alignments []string, tag string, inlineCodes []string) {
	cells := splitTableRow(line)
	sb.WriteString("<tr>")
	for i, cell := range cells {
		align := "left"
		if i < len(alignments) {
			align = alignments[i]
		}
		content := renderTableCell(strings.TrimSpace(cell), inlineCodes)
		sb.WriteString("<" + tag + ` style="text-align:` + align + `">` + content + "</" + tag + ">")
	}
	sb.WriteString("</tr>")
}

// renderTableCell escapes a raw cell and applies the inline-only rule set:
// spans plus inline-code restoration, never block-level structure. Table
// lines are extracted before global escaping, so this is the cell's one
// escaping pass.
func renderTableCell(cell string, inlineCodes []string) string {
	out := escapeHTML(cell)
	out = formatSpans(out)
	out = restoreInlineCode(out, inlineCodes)
	return out
}
