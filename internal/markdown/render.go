// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import "strings"

// =============================================================================
// RENDERER
// =============================================================================

// Highlighter produces highlighted HTML for a code block. The returned
// markup must be safe to embed directly (the highlighter does its own
// escaping). An error makes the renderer fall back to escaped plain code.
type Highlighter func(code, language string) (string, error)

// Renderer converts Markdown to sanitized HTML. The zero value is usable;
// options add collaborators such as a syntax highlighter.
type Renderer struct {
	highlight Highlighter
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithHighlighter wires a server-side syntax highlighter into code block
// restoration.
func WithHighlighter(h Highlighter) Option {
	return func(r *Renderer) { r.highlight = h }
}

// NewRenderer creates a Renderer with the given options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRenderer = NewRenderer()

// Render converts Markdown to HTML with the default renderer. It is a
// total function: empty input yields an empty string and malformed
// constructs fall back to literal escaped text.
func Render(text string) string {
	return defaultRenderer.Render(text)
}

// Render converts Markdown to HTML. The function is pure given its input;
// every side table lives in a call-local context, so concurrent renders of
// different messages are safe and rendering the same text twice yields
// byte-identical output.
func (r *Renderer) Render(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	ctx := &renderContext{}
	text = ctx.extract(text)
	text = escapeHTML(text)
	text = formatBlocks(text)
	text = normalizeParagraphs(text)
	text = ctx.restore(text, r.highlight)
	text = cleanupWhitespace(text)
	return text
}

// =============================================================================
// STREAM RENDERER
// =============================================================================

// StreamRenderer accumulates streamed fragments and re-renders the full
// text on every append. Callers feed it each increment from a chat stream
// and display the returned HTML as-is; because each render is a pure
// function of the accumulated text, a half-received fence or table simply
// shows as literal text until its closing marker arrives.
type StreamRenderer struct {
	renderer *Renderer
	buf      strings.Builder
}

// NewStreamRenderer creates a StreamRenderer on top of the given Renderer.
// A nil renderer uses the package default.
func NewStreamRenderer(r *Renderer) *StreamRenderer {
	if r == nil {
		r = defaultRenderer
	}
	return &StreamRenderer{renderer: r}
}

// Append adds a fragment and returns the HTML for the entire accumulated
// text so far.
func (s *StreamRenderer) Append(fragment string) string {
	s.buf.WriteString(fragment)
	return s.renderer.Render(s.buf.String())
}

// Text returns the accumulated raw Markdown.
func (s *StreamRenderer) Text() string {
	return s.buf.String()
}

// HTML renders the accumulated text without appending.
func (s *StreamRenderer) HTML() string {
	return s.renderer.Render(s.buf.String())
}
