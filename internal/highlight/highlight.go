// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package highlight wraps chroma to produce embeddable HTML for code
// blocks. The output carries inline styles and no surrounding <pre>, so
// the markdown renderer can drop it straight into its own code block
// scaffolding.
package highlight

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "monokai"

// Styler highlights code for HTML output with a fixed chroma style.
type Styler struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New creates a Styler for the named chroma style. Unknown names fall
// back to the chroma fallback style rather than erroring.
func New(styleName string) *Styler {
	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	return &Styler{
		style: style,
		formatter: chromahtml.New(
			chromahtml.WithClasses(false),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// HTML highlights code as HTML spans. The language selects a lexer; an
// unknown language falls back to content analysis, then to the plain
// fallback lexer. The returned markup is fully escaped by chroma.
func (s *Styler) HTML(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenize %s: %w", language, err)
	}

	var buf strings.Builder
	if err := s.formatter.Format(&buf, s.style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", language, err)
	}
	return buf.String(), nil
}
