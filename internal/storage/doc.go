// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable persistence for rigchat.
//
// The package is layered: a flat KV interface with two implementations
// (SQLite-backed for durability, in-memory with an optional JSON
// snapshot for degraded mode and tests), and a ConversationStore that
// persists chat conversations on top of any KV.
//
// Open returns the durable store and silently degrades to the in-memory
// store when SQLite cannot be opened, logging the failure. A degraded
// store loses data at process exit but keeps the application usable.
//
//	kv := storage.Open(dbPath)
//	defer kv.Close()
//	store := storage.NewConversationStore(kv)
//	id, err := store.Save(storage.FromConversation(conv))
package storage
