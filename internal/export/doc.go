// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides conversation export functionality.
//
// Three formats are supported: Markdown (frontmatter plus pass-through
// bodies), HTML (standalone document with embedded CSS and a theme
// toggle; bodies rendered by internal/markdown), and JSON (the complete
// stored structure).
//
// Usage:
//
//	exporter, _ := export.NewExporter("html", opts)
//	path, err := export.ExportToFile(conv, exporter, opts)
package export
