// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations and messages.
//
// # Key Types
//
//   - Conversation: Container for a chat session with messages and metadata
//   - Message: Single message with role, content, and timestamp
//   - Role: Message role enumeration (user, assistant, system)
//   - Statistics: Timing and token counts for one generation
//
// # Usage
//
// Create a new conversation:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//
// Stream an assistant reply:
//
//	msg := conv.AddAssistantMessage()
//	msg.AppendToken("Hi")
//	msg.FinalizeStream(stats)
package model
