// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/rigchat/internal/model"
)

// conversationPrefix namespaces conversation records inside the KV.
const conversationPrefix = "conv:"

// =============================================================================
// STORED CONVERSATION TYPE
// =============================================================================

// StoredConversation represents a persisted conversation.
type StoredConversation struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`

	TokensUsed   int    `json:"tokens_used,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// StoredMessage represents a persisted message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Statistics (for assistant messages)
	TokenCount   int     `json:"token_count,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
	TTFTMs       int64   `json:"ttft_ms,omitempty"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Summary      string    `json:"summary"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"` // First user message truncated
}

// =============================================================================
// MODEL CONVERSION
// =============================================================================

// FromConversation converts a live conversation into its stored form.
func FromConversation(conv *model.Conversation) *StoredConversation {
	stored := &StoredConversation{
		ID:           conv.ID,
		Summary:      conv.Title,
		Model:        conv.Model,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		TokensUsed:   conv.TokensUsed,
		SystemPrompt: conv.SystemPrompt,
		Messages:     make([]StoredMessage, 0, len(conv.Messages)),
	}

	for _, msg := range conv.Messages {
		stored.Messages = append(stored.Messages, StoredMessage{
			ID:           msg.ID,
			Role:         msg.Role.String(),
			Content:      msg.GetDisplayContent(),
			Timestamp:    msg.Timestamp,
			TokenCount:   msg.TokenCount,
			DurationMs:   msg.TotalDuration.Milliseconds(),
			TokensPerSec: msg.TokensPerSec,
			TTFTMs:       msg.TTFT.Milliseconds(),
		})
	}

	return stored
}

// ToConversation converts a stored conversation back into a live one.
func (c *StoredConversation) ToConversation() *model.Conversation {
	conv := &model.Conversation{
		ID:           c.ID,
		Title:        c.Summary,
		Model:        c.Model,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		TokensUsed:   c.TokensUsed,
		SystemPrompt: c.SystemPrompt,
		MaxTokens:    128000,
		Messages:     make([]*model.Message, 0, len(c.Messages)),
	}

	for _, msg := range c.Messages {
		conv.Messages = append(conv.Messages, &model.Message{
			ID:            msg.ID,
			Role:          model.Role(msg.Role),
			Content:       msg.Content,
			Timestamp:     msg.Timestamp,
			TokenCount:    msg.TokenCount,
			TotalDuration: time.Duration(msg.DurationMs) * time.Millisecond,
			TokensPerSec:  msg.TokensPerSec,
			TTFT:          time.Duration(msg.TTFTMs) * time.Millisecond,
		})
	}

	return conv
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles conversation persistence on top of a KV.
type ConversationStore struct {
	kv KV

	// MaxConversations limits stored conversations (0 = unlimited).
	// Oldest conversations are evicted when the limit is exceeded.
	MaxConversations int
}

// NewConversationStore creates a conversation store over the given KV.
// Close releases the underlying key-value store.
func (s *ConversationStore) Close() error {
	return s.kv.Close()
}

func NewConversationStore(kv KV) *ConversationStore {
	return &ConversationStore{
		kv:               kv,
		MaxConversations: 100,
	}
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a conversation and returns its ID.
func (s *ConversationStore) Save(conv *StoredConversation) (string, error) {
	if conv.ID == "" {
		conv.ID = "conv_" + uuid.NewString()
	}

	if conv.Summary == "" {
		conv.Summary = s.generateSummary(conv)
	}

	conv.UpdatedAt = time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = conv.UpdatedAt
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return "", fmt.Errorf("marshal conversation: %w", err)
	}

	if err := s.kv.Set(conversationPrefix+conv.ID, data); err != nil {
		return "", fmt.Errorf("save conversation: %w", err)
	}

	if s.MaxConversations > 0 {
		s.enforceLimit()
	}

	return conv.ID, nil
}

// generateSummary creates a summary from the first user message.
func (s *ConversationStore) generateSummary(conv *StoredConversation) string {
	for _, msg := range conv.Messages {
		if msg.Role == "user" && msg.Content != "" {
			content := msg.Content
			// Rune-based truncation for Unicode safety.
			runes := []rune(content)
			if len(runes) > 50 {
				content = string(runes[:47]) + "..."
			}
			content = strings.ReplaceAll(content, "\n", " ")
			content = strings.ReplaceAll(content, "\r", "")
			return content
		}
	}
	return "New conversation"
}

// enforceLimit removes oldest conversations if over limit.
func (s *ConversationStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxConversations {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxConversations
	for i := 0; i < excess; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID.
func (s *ConversationStore) Load(id string) (*StoredConversation, error) {
	data, err := s.kv.Get(conversationPrefix + id)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var conv StoredConversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}

	return &conv, nil
}

// LoadByIndex loads a conversation by its index in the list (0 = most recent).
func (s *ConversationStore) LoadByIndex(index int) (*StoredConversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(metas) {
		return nil, ErrConversationNotFound
	}

	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved conversations (most recent first).
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	keys, err := s.kv.Keys(conversationPrefix)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	var metas []ConversationMeta

	for _, key := range keys {
		id := strings.TrimPrefix(key, conversationPrefix)
		conv, err := s.Load(id)
		if err != nil {
			// Skip corrupted records.
			continue
		}

		preview := ""
		for _, msg := range conv.Messages {
			if msg.Role == "user" {
				preview = truncateString(msg.Content, 80)
				break
			}
		}

		metas = append(metas, ConversationMeta{
			ID:           conv.ID,
			Summary:      conv.Summary,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
			Preview:      preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// Search finds conversations whose summary or preview matches a query
// string (case-insensitive).
func (s *ConversationStore) Search(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ConversationMeta

	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Summary), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}

	return results, nil
}

// SearchMessages searches conversations by message content.
// Returns conversations where any message contains the query string
// (case-insensitive).
func (s *ConversationStore) SearchMessages(query string) ([]ConversationMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []ConversationMeta

	for _, meta := range all {
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}

		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}

	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID.
func (s *ConversationStore) Delete(id string) error {
	// Distinguish missing from present first; KV deletes are idempotent.
	if _, err := s.kv.Get(conversationPrefix + id); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return s.kv.Delete(conversationPrefix + id)
}

// Clear removes all saved conversations.
func (s *ConversationStore) Clear() error {
	keys, err := s.kv.Keys(conversationPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.kv.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList formats a list of sessions for display in a table.
func FormatSessionList(sessions []ConversationMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(formatPadded("ID", 12) + " " + formatPadded("Created", 20) + " " + formatPadded("Messages", 8) + " Preview\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, s := range sessions {
		preview := truncateString(s.Preview, 30)
		idStr := s.ID
		if len(idStr) > 12 {
			idStr = idStr[:12]
		}
		createdStr := s.CreatedAt.Format("2006-01-02 15:04")

		sb.WriteString(formatPadded(idStr, 12) + " " +
			formatPadded(createdStr, 20) + " " +
			formatPadded(strconv.Itoa(s.MessageCount), 8) + " " +
			preview + "\n")
	}
	return sb.String()
}

// truncateString truncates a string to maxLen display cells, adding
// "..." if truncated. Width-aware so CJK previews line up.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}

// formatPadded pads a string to the specified display width with spaces.
func formatPadded(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown exports the conversation as a Markdown formatted string.
func (c *StoredConversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Session " + c.ID + "\n\n")
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		role := "**User**"
		switch msg.Role {
		case "assistant":
			role = "**Assistant**"
		case "system":
			role = "**System**"
		}
		sb.WriteString(role + " (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// ExportJSON exports the conversation as a pretty-printed JSON byte array.
func (c *StoredConversation) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// GetPreview returns a preview string from the first user message.
func (c *StoredConversation) GetPreview() string {
	for _, msg := range c.Messages {
		if msg.Role == "user" && msg.Content != "" {
			return truncateString(msg.Content, 80)
		}
	}
	return ""
}

// MessageCount returns the number of messages in the conversation.
func (c *StoredConversation) MessageCount() int {
	return len(c.Messages)
}
