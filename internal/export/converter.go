// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

// ExportConversation exports a live conversation in the given format,
// converting through the stored form first. Lets callers export an
// active conversation that was never persisted.
func ExportConversation(conv *model.Conversation, format string, opts *Options) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("conversation is nil")
	}

	exporter, err := NewExporter(format, opts)
	if err != nil {
		return "", err
	}

	return ExportToFile(storage.FromConversation(conv), exporter, opts)
}
