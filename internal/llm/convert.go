// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import "github.com/jeranaias/rigchat/internal/model"

// MessagesFromConversation converts a conversation into the wire format,
// prepending the system prompt when one is set. Empty messages are
// skipped.
func MessagesFromConversation(conv *model.Conversation) []Message {
	messages := make([]Message, 0, len(conv.Messages)+1)

	if conv.SystemPrompt != "" {
		messages = append(messages, NewSystemMessage(conv.SystemPrompt))
	}

	for _, msg := range conv.Messages {
		if !msg.Role.Valid() {
			continue
		}
		content := msg.GetDisplayContent()
		if content == "" {
			continue
		}
		messages = append(messages, Message{
			Role:    msg.Role.String(),
			Content: content,
		})
	}

	return messages
}
