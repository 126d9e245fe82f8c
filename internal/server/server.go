// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/highlight"
	"github.com/jeranaias/rigchat/internal/llm"
	"github.com/jeranaias/rigchat/internal/markdown"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/offline"
	"github.com/jeranaias/rigchat/internal/storage"
)

//go:embed web
var webFS embed.FS

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 100000

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the local web chat server. It serves the embedded UI, a
// small JSON API over the conversation store, and the SSE chat stream.
type Server struct {
	cfg    *config.Config
	router *http.ServeMux
	server *http.Server

	llm      *llm.Client
	store    *storage.ConversationStore
	renderer *markdown.Renderer
}

// NewServer wires a server from configuration: chat client, storage
// (durable with degrade), and the Markdown renderer with optional
// highlighting.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	if err := offline.ValidateBackendURL(cfg.LLM.BaseURL); err != nil {
		return nil, fmt.Errorf("chat backend URL rejected: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}

	kv := storage.Open(dbPath)
	store := storage.NewConversationStore(kv)
	store.MaxConversations = cfg.Storage.MaxConversations

	client := llm.NewClientWithConfig(&llm.ClientConfig{
		BaseURL:      cfg.LLM.BaseURL,
		Timeout:      time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		DefaultModel: cfg.LLM.Model,
	})

	var opts []markdown.Option
	if cfg.Render.HighlightEnabled {
		styler := highlight.New(cfg.Render.HighlightStyle)
		opts = append(opts, markdown.WithHighlighter(styler.HTML))
	}

	s := &Server{
		cfg:      cfg,
		router:   http.NewServeMux(),
		llm:      client,
		store:    store,
		renderer: markdown.NewRenderer(opts...),
	}
	s.setupRoutes()
	return s, nil
}

// WithLLMClient sets a custom chat client. For tests.
func (s *Server) WithLLMClient(client *llm.Client) *Server {
	s.llm = client
	return s
}

// WithStore sets a custom conversation store. For tests.
func (s *Server) WithStore(store *storage.ConversationStore) *Server {
	s.store = store
	return s
}

// Handler returns the full handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
	}
	if s.cfg.Server.RateLimit > 0 {
		middlewares = append(middlewares,
			RateLimitMiddleware(NewIPRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst)))
	}
	if s.cfg.Server.AuthToken != "" {
		middlewares = append(middlewares, AuthMiddleware(s.cfg.Server.AuthToken))
	}
	return Chain(middlewares...)(s.router)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleIndex)

	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /api/models", s.handleModels)

	s.router.HandleFunc("GET /api/conversations", s.handleConversationList)
	s.router.HandleFunc("GET /api/conversations/{id}", s.handleConversationGet)
	s.router.HandleFunc("DELETE /api/conversations/{id}", s.handleConversationDelete)

	s.router.HandleFunc("POST /api/chat", s.handleChat)
}

// ============================================================================
// UI HANDLER
// ============================================================================

// handleIndex serves the embedded single-page UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// ============================================================================
// HEALTH / MODELS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	BackendStatus string `json:"backend_status"`
	OfflineMode   bool   `json:"offline_mode"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:      "ok",
		Version:     Version,
		OfflineMode: s.offlineMode(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.llm.CheckRunning(ctx); err == nil {
		health.BackendStatus = "ok"
	} else {
		health.BackendStatus = "unavailable"
		health.Status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, health)
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	models, err := s.llm.ListModels(ctx)
	if err != nil {
		log.Printf("MODEL_LIST_FAILED | error=%v", err)
		s.writeError(w, http.StatusBadGateway, "Chat backend unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"default": s.llm.GetDefaultModel(),
		"models":  models,
	})
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

// RenderedMessage is a stored message plus its rendered HTML.
type RenderedMessage struct {
	storage.StoredMessage
	HTML string `json:"html"`
}

// ConversationResponse is a conversation with rendered messages.
type ConversationResponse struct {
	ID        string            `json:"id"`
	Summary   string            `json:"summary"`
	Model     string            `json:"model"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []RenderedMessage `json:"messages"`
}

// handleConversationList handles GET /api/conversations.
func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	var (
		metas []storage.ConversationMeta
		err   error
	)
	if query := r.URL.Query().Get("q"); query != "" {
		metas, err = s.store.SearchMessages(query)
	} else {
		metas, err = s.store.List()
	}
	if err != nil {
		log.Printf("CONVERSATION_LIST_FAILED | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": metas})
}

// handleConversationGet handles GET /api/conversations/{id}. Every
// message body comes back rendered, so the client never interprets
// Markdown itself.
func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Load(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	resp := ConversationResponse{
		ID:        conv.ID,
		Summary:   conv.Summary,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]RenderedMessage, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		resp.Messages = append(resp.Messages, RenderedMessage{
			StoredMessage: msg,
			HTML:          s.renderer.Render(msg.Content),
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleConversationDelete handles DELETE /api/conversations/{id}.
func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ============================================================================
// CHAT HANDLER (SSE)
// ============================================================================

// ChatRequest is the POST /api/chat request body.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	Model          string `json:"model,omitempty"`
}

// chatDelta is the payload of each "delta" SSE event: the raw fragment
// plus the full re-rendered HTML of the reply so far.
type chatDelta struct {
	Delta string `json:"delta"`
	HTML  string `json:"html"`
}

// chatDone is the payload of the final "done" SSE event.
type chatDone struct {
	ConversationID string `json:"conversation_id"`
	HTML           string `json:"html"`
	Stats          string `json:"stats,omitempty"`
	TokenCount     int    `json:"token_count,omitempty"`
}

// handleChat handles POST /api/chat. The assistant reply streams back
// as SSE: each backend fragment produces a "delta" event carrying the
// fragment and the full reply re-rendered to HTML, and the stream ends
// with a "done" event carrying generation stats.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("CHAT_BAD_REQUEST | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}
	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	conv, err := s.loadOrCreateConversation(req)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	conv.AddUserMessage(req.Message)

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if s.offlineMode() {
		s.persist(conv)
		s.sendEvent(w, flusher, "error", map[string]string{
			"message": "Offline mode is enabled. Message saved but not sent.",
		})
		return
	}

	assistant := conv.AddAssistantMessage()
	stream := markdown.NewStreamRenderer(s.renderer)
	stats := llm.NewStreamStats()
	var finalChunk llm.StreamChunk

	err = s.llm.ChatStream(r.Context(), conv.Model, llm.MessagesFromConversation(conv),
		func(chunk llm.StreamChunk) {
			if chunk.Content != "" {
				if assistant.IsEmpty() {
					stats.RecordFirstToken()
				}
				assistant.AppendToken(chunk.Content)
				s.sendEvent(w, flusher, "delta", chatDelta{
					Delta: chunk.Content,
					HTML:  stream.Append(chunk.Content),
				})
			}
			if chunk.Done {
				finalChunk = chunk
			}
		})

	if err != nil {
		log.Printf("CHAT_STREAM_FAILED | conversation=%s error=%v", conv.ID, err)
		conv.RemoveMessage(assistant.ID)
		s.persist(conv)
		s.sendEvent(w, flusher, "error", map[string]string{
			"message": chatErrorMessage(err),
		})
		return
	}

	stats.Finalize(finalChunk)
	assistant.FinalizeStream(&model.Statistics{
		CompletionTokens: stats.CompletionTokens,
		TotalDuration:    stats.TotalDuration,
		TTFT:             stats.TTFT,
		TokensPerSecond:  stats.TokensPerSecond,
	})

	id := s.persist(conv)
	s.sendEvent(w, flusher, "done", chatDone{
		ConversationID: id,
		HTML:           stream.HTML(),
		Stats:          stats.Format(),
		TokenCount:     stats.CompletionTokens,
	})
}

// loadOrCreateConversation resolves the target conversation for a chat
// request, creating a fresh one when no ID is given.
func (s *Server) loadOrCreateConversation(req ChatRequest) (*model.Conversation, error) {
	if req.ConversationID == "" {
		conv := model.NewConversation()
		conv.Model = req.Model
		if conv.Model == "" {
			conv.Model = s.llm.GetDefaultModel()
		}
		conv.SystemPrompt = s.cfg.LLM.SystemPrompt
		return conv, nil
	}

	stored, err := s.store.Load(req.ConversationID)
	if err != nil {
		return nil, err
	}
	conv := stored.ToConversation()
	if req.Model != "" {
		conv.Model = req.Model
	}
	return conv, nil
}

// persist saves the conversation, logging instead of failing the
// request when storage misbehaves. Returns the conversation ID.
func (s *Server) persist(conv *model.Conversation) string {
	id, err := s.store.Save(storage.FromConversation(conv))
	if err != nil {
		log.Printf("CONVERSATION_SAVE_FAILED | conversation=%s error=%v", conv.ID, err)
		return conv.ID
	}
	conv.ID = id
	return id
}

// chatErrorMessage maps a client error to a user-visible message.
func chatErrorMessage(err error) string {
	switch {
	case llm.IsNotRunning(err):
		return "Chat backend is not running. Start it and try again."
	case llm.IsTimeout(err):
		return "The request timed out."
	case llm.IsModelNotFound(err):
		return "The requested model is not available."
	default:
		return "Chat request failed. Please try again."
	}
}

// offlineMode reports whether sends are blocked, from config or the
// runtime toggle.
func (s *Server) offlineMode() bool {
	return s.cfg.OfflineMode || offline.IsOfflineMode()
}

// sendEvent writes a single named SSE event with a JSON payload.
func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops. Binding a
// non-loopback host requires an auth token.
func (s *Server) Start() error {
	host := s.cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if !offline.IsLocalhost(host) && s.cfg.Server.AuthToken == "" {
		return fmt.Errorf("refusing to bind %s without an auth token", host)
	}

	addr := fmt.Sprintf("%s:%d", host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE streams are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
