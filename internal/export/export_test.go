// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

func testConversation() *storage.StoredConversation {
	return &storage.StoredConversation{
		ID:        "conv_test",
		Summary:   "Sorting in Python",
		Model:     "qwen2.5:7b",
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC),
		Messages: []storage.StoredMessage{
			{
				ID:        "msg_1",
				Role:      "user",
				Content:   "Show me **bubble sort** in Python",
				Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			},
			{
				ID:           "msg_2",
				Role:         "assistant",
				Content:      "Here you go:\n\n```python\ndef sort(xs):\n    return sorted(xs)\n```",
				Timestamp:    time.Date(2025, 3, 1, 10, 0, 30, 0, time.UTC),
				TokenCount:   42,
				DurationMs:   1500,
				TokensPerSec: 28.0,
			},
		},
	}
}

// =============================================================================
// HTML EXPORT
// =============================================================================

func TestHTMLExporter(t *testing.T) {
	exporter := NewHTMLExporter(DefaultOptions())

	out, err := exporter.Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"<title>Sorting in Python</title>",
		"class=\"dark-theme\"",
		// User Markdown is rendered, not echoed.
		"<strong>bubble sort</strong>",
		// The code block goes through the Markdown renderer.
		`class="language-python"`,
		"def sort(xs):",
		"Tokens: 42",
		"toggleTheme",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML export missing %q", want)
		}
	}

	if strings.Contains(html, "```") {
		t.Error("raw code fences should not survive HTML export")
	}
}

func TestHTMLExporter_EscapesContent(t *testing.T) {
	conv := testConversation()
	conv.Messages[0].Content = "try <script>alert(1)</script>"

	out, err := NewHTMLExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(out), "<script>alert(1)</script>") {
		t.Error("message HTML must be escaped")
	}
	if !strings.Contains(string(out), "&lt;script&gt;") {
		t.Error("escaped form should be present")
	}
}

func TestHTMLExporter_EmptyConversation(t *testing.T) {
	_, err := NewHTMLExporter(nil).Export(&storage.StoredConversation{
		Summary:   "empty",
		CreatedAt: time.Now(),
	})
	if err == nil {
		t.Error("exporting an empty conversation should fail")
	}
}

// =============================================================================
// MARKDOWN EXPORT
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(DefaultOptions()).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"---\ntitle: Sorting in Python",
		"model: qwen2.5:7b",
		"### [User]",
		"### [Assistant]",
		// Markdown bodies pass through untouched.
		"```python",
		"Tokens: 42",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown export missing %q", want)
		}
	}
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(testConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	md := string(out)

	if strings.Contains(md, "## Session Information") {
		t.Error("metadata section should be omitted")
	}
	if strings.Contains(md, "<sub>") {
		t.Error("timestamps and stats should be omitted")
	}
}

// =============================================================================
// JSON EXPORT
// =============================================================================

func TestJSONExporter_RoundTrip(t *testing.T) {
	conv := testConversation()

	out, err := NewJSONExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var restored storage.StoredConversation
	if err := json.Unmarshal(out, &restored); err != nil {
		t.Fatalf("exported JSON does not parse: %v", err)
	}
	if restored.ID != conv.ID || len(restored.Messages) != 2 {
		t.Errorf("restored = %+v", restored)
	}
}

// =============================================================================
// FILE EXPORT
// =============================================================================

func TestExportToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(testConversation(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q, want .md suffix", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export failed: %v", err)
	}
	if !strings.Contains(string(data), "Sorting in Python") {
		t.Error("exported file should contain the conversation")
	}
}

func TestExportConversation_FromLiveModel(t *testing.T) {
	conv := model.NewConversation()
	conv.Model = "test-model"
	conv.AddUserMessage("hello")
	msg := conv.AddAssistantMessage()
	msg.AppendToken("world")
	msg.FinalizeStream(nil)

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportConversation(conv, "json", opts)
	if err != nil {
		t.Fatalf("ExportConversation failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "world") {
		t.Error("live conversation content should be exported")
	}
}

func TestNewExporter_UnknownFormat(t *testing.T) {
	if _, err := NewExporter("pdf", nil); err == nil {
		t.Error("unknown format should be rejected")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"simple", "simple"},
		{"has spaces", "has_spaces"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "conversation"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
