// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - "rigchat render" command handler.
//
// Renders Markdown to HTML on stdout, using the same renderer the
// server uses for chat messages. Reads a file argument or stdin.
//
// Examples:
//   rigchat render README.md
//   cat notes.md | rigchat render
//   rigchat render --style github --out notes.html notes.md

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/highlight"
	"github.com/jeranaias/rigchat/internal/markdown"
)

// maxRenderInput caps how much Markdown the render command accepts.
const maxRenderInput = 10 << 20 // 10 MB

// HandleRender handles the "render" command.
func HandleRender(args Args) error {
	source, err := readRenderInput(args)
	if err != nil {
		return err
	}

	cfg := config.Global()
	opts := []markdown.Option{}
	if cfg.Render.HighlightEnabled && !args.HasOption("no-highlight") {
		style := args.Option("style", cfg.Render.HighlightStyle)
		opts = append(opts, markdown.WithHighlighter(highlight.New(style).HTML))
	}

	html := markdown.NewRenderer(opts...).Render(string(source))

	if out := args.Option("out", ""); out != "" {
		if err := os.WriteFile(out, []byte(html), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		if !args.Quiet {
			fmt.Printf("Wrote %s\n", out)
		}
		return nil
	}

	fmt.Println(html)
	return nil
}

// readRenderInput reads the first positional file, or stdin when no
// file is named.
func readRenderInput(args Args) ([]byte, error) {
	if len(args.Raw) > 0 {
		path := args.Raw[0]
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if info.Size() > maxRenderInput {
			return nil, fmt.Errorf("%s is too large (max %d bytes)", path, maxRenderInput)
		}
		return os.ReadFile(path)
	}

	if IsTTY() {
		return nil, fmt.Errorf("no input: pass a file or pipe Markdown on stdin")
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxRenderInput+1))
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) > maxRenderInput {
		return nil, fmt.Errorf("stdin input is too large (max %d bytes)", maxRenderInput)
	}
	return data, nil
}
