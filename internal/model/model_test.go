// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_GeneratesID(t *testing.T) {
	a := NewUserMessage("one")
	b := NewUserMessage("two")

	if a.ID == "" || b.ID == "" {
		t.Fatal("message IDs should not be empty")
	}
	if a.ID == b.ID {
		t.Errorf("message IDs should be unique, both were %q", a.ID)
	}
	if !strings.HasPrefix(a.ID, "msg_") {
		t.Errorf("message ID should carry msg_ prefix, got %q", a.ID)
	}
}

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("display content during stream = %q, want %q", got, "Hello, world")
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty until finalized, got %q", msg.Content)
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("finalized content = %q, want %q", msg.Content, "Hello, world")
	}
	if msg.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", msg.TokenCount)
	}
}

func TestMessage_AppendAfterFinalizeIgnored(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("done")
	msg.FinalizeStream(nil)

	msg.AppendToken(" extra")
	if msg.Content != "done" {
		t.Errorf("append after finalize changed content: %q", msg.Content)
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("héllo wörld, this is a long message for truncation")

	short := msg.Preview(10)
	if len([]rune(short)) != 10 {
		t.Errorf("Preview(10) rune length = %d, want 10", len([]rune(short)))
	}
	if !strings.HasSuffix(short, "...") {
		t.Errorf("truncated preview should end with ellipsis: %q", short)
	}

	full := msg.Preview(1000)
	if full != msg.Content {
		t.Errorf("Preview longer than content should return it unchanged")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("unknown role should not be valid")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation()

	if conv.ID == "" {
		t.Error("conversation ID should not be empty")
	}
	if !strings.HasPrefix(conv.ID, "conv_") {
		t.Errorf("conversation ID should carry conv_ prefix, got %q", conv.ID)
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}
	if conv.GetTitle() != "New Conversation" {
		t.Errorf("default title = %q", conv.GetTitle())
	}
}

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("be brief")
	conv.AddUserMessage("What is a goroutine?")

	if conv.GetTitle() != "What is a goroutine?" {
		t.Errorf("title = %q, want first user message", conv.GetTitle())
	}

	conv.AddUserMessage("second question")
	if conv.GetTitle() != "What is a goroutine?" {
		t.Error("title should not change after it is set")
	}
}

func TestConversation_StreamingThroughConversation(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()

	conv.AppendToLast("partial ")
	conv.AppendToLast("answer")
	conv.FinalizeLast(nil)

	last := conv.GetLastAssistantMessage()
	if last == nil {
		t.Fatal("expected an assistant message")
	}
	if last.Content != "partial answer" {
		t.Errorf("assistant content = %q", last.Content)
	}
}

func TestConversation_RemoveMessage(t *testing.T) {
	conv := NewConversation()
	msg := conv.AddUserMessage("delete me")
	conv.AddUserMessage("keep me")

	if !conv.RemoveMessage(msg.ID) {
		t.Fatal("RemoveMessage returned false for existing ID")
	}
	if conv.MessageCount() != 1 {
		t.Errorf("MessageCount = %d, want 1", conv.MessageCount())
	}
	if conv.RemoveMessage("msg_nope") {
		t.Error("RemoveMessage should return false for unknown ID")
	}
}

func TestConversation_PruneKeepsSystemMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("system prompt")

	for i := 0; i < MaxMessages+10; i++ {
		conv.AddMessage(&Message{ID: generateID(), Role: RoleUser, Content: "x", Timestamp: time.Now()})
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("MessageCount = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message should survive pruning at the front")
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversationWithModel("qwen2.5:7b")
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"
	clone.AddUserMessage("extra")

	if conv.Messages[0].Content != "original" {
		t.Error("mutating the clone changed the original message")
	}
	if conv.MessageCount() != 1 {
		t.Errorf("original message count changed: %d", conv.MessageCount())
	}
	if clone.Model != "qwen2.5:7b" {
		t.Errorf("clone lost model: %q", clone.Model)
	}
}

func TestConversation_GetMeta(t *testing.T) {
	conv := NewConversationWithModel("llama3.2")
	conv.AddUserMessage("hello there")

	meta := conv.GetMeta()
	if meta.ID != conv.ID {
		t.Error("meta ID mismatch")
	}
	if meta.Model != "llama3.2" {
		t.Errorf("meta model = %q", meta.Model)
	}
	if meta.MessageCount != 1 {
		t.Errorf("meta message count = %d", meta.MessageCount)
	}
	if meta.Preview != "hello there" {
		t.Errorf("meta preview = %q", meta.Preview)
	}
}

func TestConversation_TokenEstimate(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage(strings.Repeat("a", 400))

	if conv.TokensUsed < 100 {
		t.Errorf("TokensUsed = %d, want at least 100 for 400 chars", conv.TokensUsed)
	}
	if conv.GetContextPercent() <= 0 {
		t.Error("context percent should be positive after a message")
	}
}
