// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for rigchat.
//
// Handles "rigchat chat", a terminal REPL against the configured
// backend. On a TTY the reply is collected and rendered as Markdown
// with glamour; piped output streams the raw tokens instead.
//
// Interactive commands:
//   /help, /h        Show available commands
//   /new, /n         Start a fresh conversation
//   /model [name]    Show or switch model
//   /history         Show conversation history
//   /save            Save the conversation now
//   /quit, /q        Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/llm"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/offline"
	"github.com/jeranaias/rigchat/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with history persisted under the config
// directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from disk, if present.
func (c *ChatCLI) LoadHistory() {
	f, err := os.Open(c.historyFile)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.ReadHistory(f)
}

// ReadInput reads a line with history navigation and appends non-empty
// input to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history to disk.
func (c *ChatCLI) SaveHistory() {
	f, err := os.OpenFile(c.historyFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession holds the state of one interactive chat run.
type ChatSession struct {
	Config   *config.Config
	Client   *llm.Client
	Store    *storage.ConversationStore
	Conv     *model.Conversation
	Input    *ChatCLI
	Model    string
	Quiet    bool
	Renderer *glamour.TermRenderer

	// Accumulated across the session for the exit summary.
	TotalTokens int
	Started     time.Time

	cancel context.CancelFunc
}

// newChatSession wires up a session from config and flags.
func newChatSession(args Args) *ChatSession {
	cfg := config.Global()

	modelName := cfg.LLM.Model
	if args.Model != "" {
		modelName = args.Model
	}

	client := llm.NewClientWithConfig(&llm.ClientConfig{
		BaseURL:      cfg.LLM.BaseURL,
		DefaultModel: modelName,
		Timeout:      time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		// storage.Open degrades to memory when the path is unusable.
		dbPath = filepath.Join(os.TempDir(), "rigchat.db")
	}
	store := storage.NewConversationStore(storage.Open(dbPath))
	store.MaxConversations = cfg.Storage.MaxConversations

	conv := model.NewConversationWithModel(modelName)
	if cfg.LLM.SystemPrompt != "" {
		conv.AddSystemMessage(cfg.LLM.SystemPrompt)
	}

	var renderer *glamour.TermRenderer
	if IsStdoutTTY() {
		renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()),
		)
	}

	return &ChatSession{
		Config:   cfg,
		Client:   client,
		Store:    store,
		Conv:     conv,
		Input:    NewChatCLI(),
		Model:    modelName,
		Quiet:    args.Quiet,
		Renderer: renderer,
		Started:  time.Now(),
	}
}

// renderReply renders assistant Markdown for the terminal, falling
// back to the raw text when rendering is unavailable.
func (s *ChatSession) renderReply(content string) string {
	if s.Renderer == nil {
		return content
	}
	rendered, err := s.Renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	session := newChatSession(args)
	defer session.Store.Close()

	if err := offline.ValidateBackendURL(session.Config.LLM.BaseURL); err != nil {
		return err
	}
	if session.Config.OfflineMode || offline.IsOfflineMode() {
		return errors.New("offline mode is enabled; chat requires the backend")
	}

	ctx := context.Background()
	if err := session.Client.CheckRunning(ctx); err != nil {
		return fmt.Errorf("chat backend is not reachable at %s: %w",
			session.Config.LLM.BaseURL, err)
	}

	if !session.Quiet {
		printWelcome(session)
	}

	defer session.Input.Close()

	// First Ctrl+C during generation cancels it; at the prompt liner
	// reports ErrPromptAborted instead.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if session.cancel != nil {
				session.cancel()
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.Input.ReadInput(PromptStyle.Render("rigchat> "))
		if err != nil {
			// ErrPromptAborted (Ctrl+C) or EOF (Ctrl+D) both exit.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printExitSummary(session)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends one user message and streams the reply.
func processMessage(session *ChatSession, input string) error {
	session.Conv.AddUserMessage(input)
	assistant := session.Conv.AddAssistantMessage()

	ctx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel
	defer func() {
		session.cancel = nil
		cancel()
	}()

	// On a TTY the reply is collected and rendered at the end; piped
	// output streams raw tokens as they arrive.
	buffered := session.Renderer != nil
	stats := llm.NewStreamStats()
	var final llm.StreamChunk

	fmt.Println()

	messages := llm.MessagesFromConversation(session.Conv)
	var streamErr error
	for chunk := range session.Client.ChatStreamChan(ctx, session.Model, messages) {
		if chunk.Error != nil {
			streamErr = chunk.Error
			break
		}
		if chunk.Content != "" {
			if assistant.IsEmpty() {
				stats.RecordFirstToken()
			}
			assistant.AppendToken(chunk.Content)
			if !buffered {
				fmt.Print(chunk.Content)
			}
		}
		if chunk.Done {
			final = chunk
		}
	}
	// A cancelled context can close the channel before the error chunk
	// gets through.
	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}
	if streamErr != nil {
		session.Conv.RemoveMessage(assistant.ID)
		return chatStreamError(streamErr)
	}

	stats.Finalize(final)
	assistant.FinalizeStream(&model.Statistics{
		CompletionTokens: stats.CompletionTokens,
		TotalDuration:    stats.TotalDuration,
		TTFT:             stats.TTFT,
		TokensPerSecond:  stats.TokensPerSecond,
	})
	session.TotalTokens += stats.CompletionTokens

	if buffered {
		fmt.Print(session.renderReply(assistant.Content))
	}
	fmt.Println()

	if !session.Quiet {
		fmt.Println(DimStyle.Render(stats.Format()))
		fmt.Println()
	}

	saveSession(session)
	return nil
}

// chatStreamError maps client errors to actionable messages.
func chatStreamError(err error) error {
	switch {
	case llm.IsNotRunning(err):
		return errors.New("chat backend is not running; start it and try again")
	case llm.IsTimeout(err):
		return errors.New("the request timed out; try a shorter prompt or a smaller model")
	case llm.IsModelNotFound(err):
		return fmt.Errorf("model not available: %w", err)
	default:
		return fmt.Errorf("streaming failed: %w", err)
	}
}

// saveSession persists the conversation, carrying the ID forward so
// repeated saves update the same record.
func saveSession(session *ChatSession) {
	if session.Conv.IsEmpty() {
		return
	}
	id, err := session.Store.Save(storage.FromConversation(session.Conv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s could not save conversation: %v\n",
			WarningStyle.Render("[Warning]"), err)
		return
	}
	session.Conv.ID = id
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand dispatches /commands. Returns false to exit.
func handleSlashCommand(cmd string, session *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	name := strings.ToLower(parts[0])

	switch name {
	case "/help", "/h":
		printChatHelp()
		return true, nil

	case "/new", "/n", "/clear", "/c":
		session.Conv = model.NewConversationWithModel(session.Model)
		if session.Config.LLM.SystemPrompt != "" {
			session.Conv.AddSystemMessage(session.Config.LLM.SystemPrompt)
		}
		fmt.Println(InfoStyle.Render("Started a new conversation."))
		return true, nil

	case "/model":
		return handleModelCommand(session, parts[1:])

	case "/history":
		printHistory(session)
		return true, nil

	case "/save", "/s":
		saveSession(session)
		if session.Conv.ID != "" {
			fmt.Println(InfoStyle.Render("Saved as " + session.Conv.ID))
		}
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", name)
	}
}

// handleModelCommand shows or switches the active model.
func handleModelCommand(session *ChatSession, args []string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(args) == 0 {
		fmt.Printf("Current model: %s\n", HighlightStyle.Render(session.Model))
		models, err := session.Client.ListModels(ctx)
		if err == nil && len(models) > 0 {
			fmt.Println("Available:")
			for _, m := range models {
				fmt.Printf("  %s (%s)\n", m.Name, m.FormatSize())
			}
		}
		return true, nil
	}

	name := args[0]
	if !session.Client.ModelExists(ctx, name) {
		return true, fmt.Errorf("model %q is not available", name)
	}
	session.Model = name
	session.Conv.Model = name
	fmt.Println(InfoStyle.Render("Switched to " + name))
	return true, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(session *ChatSession) {
	fmt.Println(TitleStyle.Render("rigchat " + Version))
	fmt.Printf("Model: %s | Backend: %s\n",
		HighlightStyle.Render(session.Model),
		DimStyle.Render(session.Config.LLM.BaseURL))
	fmt.Println(DimStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

func printChatHelp() {
	fmt.Println(SectionStyle.Render("Commands"))
	fmt.Println("  /help, /h        Show this help")
	fmt.Println("  /new, /n         Start a fresh conversation")
	fmt.Println("  /model [name]    Show or switch model")
	fmt.Println("  /history         Show conversation history")
	fmt.Println("  /save, /s        Save the conversation now")
	fmt.Println("  /quit, /q        Exit chat")
	fmt.Println()
}

// printHistory replays the conversation, rendering assistant Markdown.
func printHistory(session *ChatSession) {
	if session.Conv.IsEmpty() {
		fmt.Println(DimStyle.Render("No messages yet."))
		return
	}
	for _, msg := range session.Conv.GetHistory() {
		switch msg.Role {
		case model.RoleUser:
			fmt.Println(PromptStyle.Render("You:") + " " + msg.Content)
		case model.RoleAssistant:
			fmt.Println(HighlightStyle.Render("Assistant:"))
			fmt.Print(session.renderReply(msg.Content))
			fmt.Println()
		}
	}
}

func printExitSummary(session *ChatSession) {
	if session.Quiet {
		return
	}
	elapsed := time.Since(session.Started).Round(time.Second)
	fmt.Println(SectionStyle.Render("Session summary"))
	fmt.Printf("  Messages: %d\n", session.Conv.MessageCount())
	fmt.Printf("  Tokens:   %d\n", session.TotalTokens)
	fmt.Printf("  Duration: %s\n", elapsed)
	if session.Conv.ID != "" {
		fmt.Printf("  Saved as: %s\n", session.Conv.ID)
	}
}
