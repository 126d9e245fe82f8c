// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	kv := NewMemoryKV()
	t.Cleanup(func() { kv.Close() })
	return NewConversationStore(kv)
}

func testConversation(id, userContent string) *StoredConversation {
	return &StoredConversation{
		ID:    id,
		Model: "qwen2.5:7b",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: userContent, Timestamp: time.Now()},
			{ID: "m2", Role: "assistant", Content: "an answer", Timestamp: time.Now()},
		},
	}
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

func TestConversationStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Save(testConversation("conv_1", "how do channels work?"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != "conv_1" {
		t.Errorf("Save returned %q, want conv_1", id)
	}

	loaded, err := store.Load("conv_1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Model != "qwen2.5:7b" {
		t.Errorf("Model = %q", loaded.Model)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Content != "how do channels work?" {
		t.Errorf("first message = %q", loaded.Messages[0].Content)
	}
}

func TestConversationStore_SaveGeneratesIDAndSummary(t *testing.T) {
	store := newTestStore(t)

	conv := testConversation("", "this is a fairly long question that should be truncated for the summary line")
	id, err := store.Save(conv)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(id, "conv_") {
		t.Errorf("generated ID = %q, want conv_ prefix", id)
	}
	if conv.Summary == "" {
		t.Error("summary should be auto-generated")
	}
	if len([]rune(conv.Summary)) > 50 {
		t.Errorf("summary too long: %q", conv.Summary)
	}
	if !strings.HasSuffix(conv.Summary, "...") {
		t.Errorf("long summary should be truncated with ellipsis: %q", conv.Summary)
	}
}

func TestConversationStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("conv_nope")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Load error = %v, want ErrConversationNotFound", err)
	}
}

func TestConversationStore_LoadByIndex(t *testing.T) {
	store := newTestStore(t)

	store.Save(testConversation("conv_old", "old question"))
	time.Sleep(10 * time.Millisecond)
	store.Save(testConversation("conv_new", "new question"))

	conv, err := store.LoadByIndex(0)
	if err != nil {
		t.Fatalf("LoadByIndex failed: %v", err)
	}
	if conv.ID != "conv_new" {
		t.Errorf("index 0 = %q, want the most recent conversation", conv.ID)
	}

	if _, err := store.LoadByIndex(5); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("out-of-range index error = %v, want ErrConversationNotFound", err)
	}
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

func TestConversationStore_ListOrdering(t *testing.T) {
	store := newTestStore(t)

	store.Save(testConversation("conv_a", "first"))
	time.Sleep(10 * time.Millisecond)
	store.Save(testConversation("conv_b", "second"))

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List returned %d, want 2", len(metas))
	}
	if metas[0].ID != "conv_b" {
		t.Errorf("most recent first: got %q", metas[0].ID)
	}
	if metas[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", metas[0].MessageCount)
	}
	if metas[0].Preview != "second" {
		t.Errorf("Preview = %q, want second", metas[0].Preview)
	}
}

func TestConversationStore_Search(t *testing.T) {
	store := newTestStore(t)

	store.Save(testConversation("conv_go", "how do goroutines work?"))
	store.Save(testConversation("conv_py", "explain python decorators"))

	results, err := store.Search("GOROUTINES")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "conv_go" {
		t.Errorf("Search results = %+v, want only conv_go", results)
	}
}

func TestConversationStore_SearchMessages(t *testing.T) {
	store := newTestStore(t)

	conv := testConversation("conv_deep", "short question")
	conv.Messages = append(conv.Messages, StoredMessage{
		ID: "m3", Role: "assistant", Content: "the needle is buried here", Timestamp: time.Now(),
	})
	store.Save(conv)
	store.Save(testConversation("conv_other", "unrelated"))

	results, err := store.SearchMessages("needle")
	if err != nil {
		t.Fatalf("SearchMessages failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "conv_deep" {
		t.Errorf("SearchMessages = %+v, want only conv_deep", results)
	}

	// Empty query lists everything.
	all, err := store.SearchMessages("")
	if err != nil {
		t.Fatalf("SearchMessages(\"\") failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("empty query returned %d, want 2", len(all))
	}
}

// =============================================================================
// DELETE / CLEAR / LIMIT
// =============================================================================

func TestConversationStore_Delete(t *testing.T) {
	store := newTestStore(t)
	store.Save(testConversation("conv_del", "bye"))

	if err := store.Delete("conv_del"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load("conv_del"); !errors.Is(err, ErrConversationNotFound) {
		t.Error("conversation should be gone after delete")
	}
	if err := store.Delete("conv_del"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("double delete error = %v, want ErrConversationNotFound", err)
	}
}

func TestConversationStore_Clear(t *testing.T) {
	store := newTestStore(t)
	store.Save(testConversation("conv_1", "one"))
	store.Save(testConversation("conv_2", "two"))

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	metas, _ := store.List()
	if len(metas) != 0 {
		t.Errorf("List after Clear returned %d, want 0", len(metas))
	}
}

func TestConversationStore_EnforceLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxConversations = 3

	for _, id := range []string{"conv_1", "conv_2", "conv_3", "conv_4"} {
		store.Save(testConversation(id, "question for "+id))
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("List returned %d, want 3 after eviction", len(metas))
	}
	for _, meta := range metas {
		if meta.ID == "conv_1" {
			t.Error("oldest conversation should have been evicted")
		}
	}
}

// =============================================================================
// MODEL CONVERSION
// =============================================================================

func TestConversionRoundTrip(t *testing.T) {
	conv := model.NewConversationWithModel("llama3.2")
	conv.SystemPrompt = "be terse"
	conv.AddUserMessage("hello")
	msg := conv.AddAssistantMessage()
	msg.AppendToken("hi there")
	msg.FinalizeStream(nil)

	restored := FromConversation(conv).ToConversation()

	if restored.ID != conv.ID {
		t.Errorf("ID = %q, want %q", restored.ID, conv.ID)
	}
	if restored.Model != "llama3.2" {
		t.Errorf("Model = %q", restored.Model)
	}
	if restored.SystemPrompt != "be terse" {
		t.Errorf("SystemPrompt = %q", restored.SystemPrompt)
	}
	if len(restored.Messages) != 2 {
		t.Fatalf("Messages = %d, want 2", len(restored.Messages))
	}
	if restored.Messages[1].Role != model.RoleAssistant {
		t.Errorf("second role = %q", restored.Messages[1].Role)
	}
	if restored.Messages[1].Content != "hi there" {
		t.Errorf("assistant content = %q", restored.Messages[1].Content)
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func TestStoredConversation_ExportMarkdown(t *testing.T) {
	conv := testConversation("conv_md", "question?")
	out := conv.ExportMarkdown()

	if !strings.Contains(out, "# Session conv_md") {
		t.Errorf("missing session header: %q", out)
	}
	if !strings.Contains(out, "**User**") || !strings.Contains(out, "**Assistant**") {
		t.Errorf("missing role labels: %q", out)
	}
	if !strings.Contains(out, "question?") {
		t.Errorf("missing message content: %q", out)
	}
}

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil); got != "No sessions found." {
		t.Errorf("empty list = %q", got)
	}

	out := FormatSessionList([]ConversationMeta{
		{ID: "conv_abcdef123456", CreatedAt: time.Now(), MessageCount: 4, Preview: "hello"},
	})
	if !strings.Contains(out, "conv_abcdef1") {
		t.Errorf("ID should be truncated to 12 chars: %q", out)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("missing preview: %q", out)
	}
}
