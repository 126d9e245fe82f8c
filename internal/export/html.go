// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/highlight"
	"github.com/jeranaias/rigchat/internal/markdown"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML document with
// embedded CSS and a theme toggle. Message bodies go through the
// Markdown renderer, so exports match what the web UI showed.
type HTMLExporter struct {
	options  *Options
	renderer *markdown.Renderer
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}

	var mdOpts []markdown.Option
	if opts.HighlightStyle != "" {
		styler := highlight.New(opts.HighlightStyle)
		mdOpts = append(mdOpts, markdown.WithHighlighter(styler.HTML))
	}

	return &HTMLExporter{
		options:  opts,
		renderer: markdown.NewRenderer(mdOpts...),
	}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *storage.StoredConversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}
	if conv.CreatedAt.IsZero() {
		return nil, fmt.Errorf("conversation has invalid creation timestamp")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(conv.Summary)))
	sb.WriteString("    <meta name=\"generator\" content=\"rigchat\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(exportCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range conv.Messages {
		sb.WriteString(e.renderMessage(&conv.Messages[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>rigchat</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString(exportScript)
	sb.WriteString("</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(conv *storage.StoredConversation) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(conv.Summary)))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(conv.Model)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(conv.Messages)))
	if conv.TokensUsed > 0 {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Tokens:</strong> %d</span>\n", conv.TokensUsed))
	}
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message. The body is rendered Markdown.
func (e *HTMLExporter) renderMessage(msg *storage.StoredMessage) string {
	var sb strings.Builder

	roleClass := strings.ToLower(msg.Role)
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", roleLabel(msg.Role)))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(e.renderer.Render(msg.Content))
	sb.WriteString("\n                </div>\n")

	if msg.Role == "assistant" && e.options.IncludeMetadata {
		sb.WriteString(e.renderMessageStats(msg))
	}

	sb.WriteString("            </div>\n")

	return sb.String()
}

// renderMessageStats renders statistics for a message.
func (e *HTMLExporter) renderMessageStats(msg *storage.StoredMessage) string {
	if msg.TokenCount == 0 && msg.DurationMs == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("                <div class=\"message-stats\">\n")

	if msg.TokenCount > 0 {
		sb.WriteString(fmt.Sprintf("                    <span class=\"stat\">Tokens: %d</span>\n", msg.TokenCount))
	}
	if msg.DurationMs > 0 {
		sb.WriteString(fmt.Sprintf("                    <span class=\"stat\">Time: %s</span>\n", formatDuration(msg.DurationMs)))
	}
	if msg.TTFTMs > 0 {
		sb.WriteString(fmt.Sprintf("                    <span class=\"stat\">TTFT: %s</span>\n", formatDuration(msg.TTFTMs)))
	}
	if msg.TokensPerSec > 0 {
		sb.WriteString(fmt.Sprintf("                    <span class=\"stat\">Speed: %s</span>\n", formatTokensPerSec(msg.TokensPerSec)))
	}

	sb.WriteString("                </div>\n")
	return sb.String()
}

// roleLabel returns a formatted label for the message role.
func roleLabel(role string) string {
	switch role {
	case "user":
		return "[User]"
	case "assistant":
		return "[Assistant]"
	case "system":
		return "[System]"
	case "":
		return "Unknown"
	default:
		runes := []rune(role)
		return strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
	}
}

// =============================================================================
// EMBEDDED CSS AND SCRIPT
// =============================================================================

const exportCSS = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26; --bg-secondary: #24283b; --bg-tertiary: #414868;
            --text-primary: #c0caf5; --text-secondary: #a9b1d6; --text-muted: #565f89;
            --border-color: #414868; --user-bg: #1f2335; --assistant-bg: #24283b;
            --code-bg: #16161e; --accent-blue: #7aa2f7; --accent-green: #9ece6a;
            --accent-purple: #bb9af7;
        }

        .light-theme {
            --bg-primary: #ffffff; --bg-secondary: #f7f8fa; --bg-tertiary: #e1e4e8;
            --text-primary: #24292e; --text-secondary: #586069; --text-muted: #6a737d;
            --border-color: #e1e4e8; --user-bg: #f6f8fa; --assistant-bg: #ffffff;
            --code-bg: #f6f8fa; --accent-blue: #0366d6; --accent-green: #22863a;
            --accent-purple: #6f42c1;
        }

        body {
            font-family: var(--font-sans); font-size: 16px; line-height: 1.6;
            color: var(--text-primary); background: var(--bg-primary); padding: 20px;
        }

        .container {
            max-width: 900px; margin: 0 auto; background: var(--bg-secondary);
            border-radius: 12px; overflow: hidden;
        }

        .header {
            padding: 32px; background: var(--bg-tertiary);
            border-bottom: 2px solid var(--border-color);
        }
        .header h1 { font-size: 28px; margin-bottom: 16px; }
        .metadata {
            display: flex; flex-wrap: wrap; gap: 16px; align-items: center;
            font-size: 14px; color: var(--text-secondary);
        }
        .theme-toggle {
            margin-left: auto; background: var(--bg-secondary);
            border: 1px solid var(--border-color); border-radius: 6px;
            padding: 6px 12px; cursor: pointer; color: var(--text-primary);
        }

        .conversation { padding: 24px 32px; }
        .message {
            margin-bottom: 24px; padding: 20px; border-radius: 8px;
            border-left: 4px solid transparent;
        }
        .user-message { background: var(--user-bg); border-left-color: var(--accent-blue); }
        .assistant-message { background: var(--assistant-bg); border-left-color: var(--accent-green); }
        .system-message { background: var(--bg-tertiary); border-left-color: var(--accent-purple); }

        .message-header {
            display: flex; justify-content: space-between; align-items: center;
            margin-bottom: 12px; font-size: 14px;
        }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--text-muted); font-size: 13px; font-family: var(--font-mono); }

        .message-content { line-height: 1.7; }
        .message-content p { margin-bottom: 12px; }
        .message-content pre {
            margin: 16px 0; padding: 16px; border-radius: 8px; overflow-x: auto;
            background: var(--code-bg); border: 1px solid var(--border-color);
        }
        .message-content code { font-family: var(--font-mono); font-size: 14px; }
        .message-content table { border-collapse: collapse; margin: 12px 0; }
        .message-content th, .message-content td {
            border: 1px solid var(--border-color); padding: 6px 12px;
        }
        .message-content blockquote {
            margin: 12px 0; padding-left: 14px;
            border-left: 3px solid var(--accent-blue); color: var(--text-secondary);
        }

        .message-stats {
            margin-top: 12px; padding-top: 12px;
            border-top: 1px solid var(--border-color);
            display: flex; flex-wrap: wrap; gap: 16px;
            font-size: 13px; color: var(--text-muted);
        }

        .footer {
            padding: 20px 32px; text-align: center; font-size: 14px;
            color: var(--text-muted); border-top: 1px solid var(--border-color);
        }

        @media print {
            body { padding: 0; }
            .theme-toggle { display: none; }
            .message { page-break-inside: avoid; }
        }
    </style>
`

const exportScript = `    <script>
        function toggleTheme() {
            const body = document.body;
            if (body.classList.contains('dark-theme')) {
                body.classList.remove('dark-theme');
                body.classList.add('light-theme');
                localStorage.setItem('theme', 'light');
            } else {
                body.classList.remove('light-theme');
                body.classList.add('dark-theme');
                localStorage.setItem('theme', 'dark');
            }
        }

        document.addEventListener('DOMContentLoaded', function() {
            const savedTheme = localStorage.getItem('theme');
            if (savedTheme) {
                document.body.classList.remove('dark-theme', 'light-theme');
                document.body.classList.add(savedTheme + '-theme');
            }
        });
    </script>
`
