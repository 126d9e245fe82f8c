// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - "rigchat sessions" command handler.
//
// Manages saved conversations: list, search, show, export, delete,
// clear. IDs accept either the full conversation ID or a 1-based index
// into the list.
//
// Examples:
//   rigchat sessions                       List conversations
//   rigchat sessions search "bubble sort"  Search message content
//   rigchat sessions show 1                Print the newest conversation
//   rigchat sessions export conv_ab12 --format html
//   rigchat sessions delete conv_ab12 --confirm

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/storage"
)

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) error {
	cfg := config.Global()
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return fmt.Errorf("resolving database path: %w", err)
	}
	store := storage.NewConversationStore(storage.Open(dbPath))
	store.MaxConversations = cfg.Storage.MaxConversations
	defer store.Close()

	switch args.Subcommand {
	case "", "list", "ls":
		return sessionsList(store, args)
	case "search":
		return sessionsSearch(store, args)
	case "show":
		return sessionsShow(store, args)
	case "export":
		return sessionsExport(store, args, cfg)
	case "delete", "rm":
		return sessionsDelete(store, args)
	case "clear":
		return sessionsClear(store, args)
	default:
		return fmt.Errorf("unknown sessions action: %s", args.Subcommand)
	}
}

func sessionsList(store *storage.ConversationStore, args Args) error {
	metas, err := store.List()
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if args.HasOption("json") {
		return printJSON(metas)
	}
	fmt.Print(storage.FormatSessionList(metas))
	return nil
}

func sessionsSearch(store *storage.ConversationStore, args Args) error {
	if len(args.Raw) == 0 {
		return fmt.Errorf("usage: rigchat sessions search QUERY")
	}
	query := strings.Join(args.Raw, " ")

	metas, err := store.SearchMessages(query)
	if err != nil {
		return fmt.Errorf("searching conversations: %w", err)
	}
	if args.HasOption("json") {
		return printJSON(metas)
	}
	if len(metas) == 0 {
		fmt.Printf("No conversations match %q.\n", query)
		return nil
	}
	fmt.Print(storage.FormatSessionList(metas))
	return nil
}

func sessionsShow(store *storage.ConversationStore, args Args) error {
	conv, err := loadByIDOrIndex(store, args)
	if err != nil {
		return err
	}
	if args.HasOption("json") {
		return printJSON(conv)
	}
	fmt.Print(conv.ExportMarkdown())
	return nil
}

func sessionsExport(store *storage.ConversationStore, args Args, cfg *config.Config) error {
	stored, err := loadByIDOrIndex(store, args)
	if err != nil {
		return err
	}

	format := args.Option("format", "markdown")
	opts := export.DefaultOptions()
	opts.Theme = cfg.UI.Theme
	opts.HighlightStyle = cfg.Render.HighlightStyle
	if dir := args.Option("out", ""); dir != "" {
		opts.OutputDir = dir
	}

	path, err := export.ExportConversation(stored.ToConversation(), format, opts)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func sessionsDelete(store *storage.ConversationStore, args Args) error {
	conv, err := loadByIDOrIndex(store, args)
	if err != nil {
		return err
	}

	ok, err := Confirm(fmt.Sprintf("delete conversation %s (%q)", conv.ID, conv.Summary),
		args.HasOption("confirm"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := store.Delete(conv.ID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted %s\n", conv.ID)
	return nil
}

func sessionsClear(store *storage.ConversationStore, args Args) error {
	metas, err := store.List()
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if len(metas) == 0 {
		fmt.Println("No conversations to delete.")
		return nil
	}

	ok, err := Confirm(fmt.Sprintf("delete all %d conversations", len(metas)),
		args.HasOption("confirm"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Printf("Deleted %d conversations.\n", len(metas))
	return nil
}

// loadByIDOrIndex resolves the first positional argument as either a
// conversation ID or a 1-based list index.
func loadByIDOrIndex(store *storage.ConversationStore, args Args) (*storage.StoredConversation, error) {
	if len(args.Raw) == 0 {
		return nil, fmt.Errorf("usage: rigchat sessions %s ID", args.Subcommand)
	}
	ref := args.Raw[0]

	if index, err := strconv.Atoi(ref); err == nil {
		// User-facing indices are 1-based, newest first.
		conv, err := store.LoadByIndex(index - 1)
		if err != nil {
			return nil, fmt.Errorf("no conversation at index %d: %w", index, err)
		}
		return conv, nil
	}

	conv, err := store.Load(ref)
	if err != nil {
		return nil, fmt.Errorf("no conversation %q: %w", ref, err)
	}
	return conv, nil
}

// printJSON writes indented JSON to stdout for --json output.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
