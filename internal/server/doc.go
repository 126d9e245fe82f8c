// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local web chat server.
//
// Endpoints:
//   - GET  /                        - embedded web UI
//   - GET  /api/health              - health check (backend reachability)
//   - GET  /api/models              - available models
//   - GET  /api/conversations       - list (or search with ?q=)
//   - GET  /api/conversations/{id}  - conversation with rendered HTML
//   - DELETE /api/conversations/{id}
//   - POST /api/chat                - chat, streamed back over SSE
//
// All Markdown rendering happens server-side. The chat stream re-renders
// the accumulated assistant reply on every fragment and pushes the full
// HTML to the browser, so the client only ever assigns innerHTML.
//
// Middleware: panic recovery, security headers, request logging, per-IP
// rate limiting, and optional bearer-token auth on /api routes.
package server
