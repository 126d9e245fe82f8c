// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the HTTP client for an Ollama-compatible chat
// API running on localhost.
//
// The client supports health checks, model listing, one-shot chat, and
// streaming chat over NDJSON (one JSON object per line, the final line
// carrying done=true and generation statistics).
//
// # Streaming
//
// ChatStream parses the NDJSON stream and invokes a callback per chunk:
//
//	err := client.ChatStream(ctx, "qwen2.5:7b", messages, func(chunk llm.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
//
// StreamAccumulator collects chunks into the full reply and computes
// TTFT and tokens-per-second from the final chunk.
//
// # Errors
//
// Failures are ClientError values categorized by ErrorType, with
// sentinels (ErrNotRunning, ErrTimeout, ErrModelNotFound) and predicate
// helpers (IsNotRunning, IsTimeout, IsModelNotFound) for dispatch.
package llm
