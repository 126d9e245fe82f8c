// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Version string `toml:"version"`

	Server  ServerConfig  `toml:"server"`
	LLM     LLMConfig     `toml:"llm"`
	Storage StorageConfig `toml:"storage"`
	Render  RenderConfig  `toml:"render"`
	UI      UIConfig      `toml:"ui"`

	// OfflineMode blocks chat requests before any connection attempt.
	OfflineMode bool `toml:"offline_mode"`
}

// ServerConfig contains the local web server configuration.
type ServerConfig struct {
	// Host to bind. Defaults to 127.0.0.1; the server refuses to start
	// on a non-loopback host unless an auth token is configured.
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// AuthToken, when set, requires Bearer authentication on /api routes.
	AuthToken string `toml:"auth_token"`

	// RateLimit is the per-client request rate for /api routes in
	// requests per second (0 = unlimited). RateBurst is the burst size.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// LLMConfig contains the chat backend configuration.
type LLMConfig struct {
	// BaseURL of the Ollama-compatible API.
	BaseURL string `toml:"base_url"`
	// Model is the default model for new conversations.
	Model string `toml:"model"`
	// TimeoutSecs for non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// SystemPrompt prepended to every conversation (optional).
	SystemPrompt string `toml:"system_prompt"`
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite file (empty = ~/.rigchat/rigchat.db).
	DatabasePath string `toml:"database_path"`
	// MaxConversations limits stored conversations (0 = unlimited).
	MaxConversations int `toml:"max_conversations"`
}

// RenderConfig contains Markdown rendering configuration.
type RenderConfig struct {
	// HighlightEnabled toggles server-side syntax highlighting.
	HighlightEnabled bool `toml:"highlight_enabled"`
	// HighlightStyle is the chroma style name.
	HighlightStyle string `toml:"highlight_style"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// Theme for the web client: "dark" or "light".
	Theme string `toml:"theme"`
	// GlamourStyle for terminal Markdown rendering in the chat REPL.
	GlamourStyle string `toml:"glamour_style"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8090,
			RateLimit: 10,
			RateBurst: 20,
		},

		LLM: LLMConfig{
			BaseURL:     "http://127.0.0.1:11434",
			Model:       "qwen2.5:7b",
			TimeoutSecs: 30,
		},

		Storage: StorageConfig{
			MaxConversations: 100,
		},

		Render: RenderConfig{
			HighlightEnabled: true,
			HighlightStyle:   "monokai",
		},

		UI: UIConfig{
			Theme:        "dark",
			GlamourStyle: "dark",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath resolves the SQLite path, applying the default when the
// config leaves it empty.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rigchat.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back
// to defaults when the file does not exist. Environment overrides are
// applied last, then the result is validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file. A missing
// file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file. The file is
// created with 0600 permissions since it may carry an auth token.
func SaveToPath(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# rigchat configuration file")
	fmt.Fprintln(file, "# Generated by rigchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{Field: "server.port", Message: "must be between 1 and 65535"})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if c.Server.RateBurst < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must not be negative"})
	}

	if parsed, err := url.Parse(c.LLM.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, ValidationError{Field: "llm.base_url", Message: "must be a valid URL"})
	}
	if c.LLM.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "llm.timeout_secs", Message: "must be at least 1"})
	}

	if c.Storage.MaxConversations < 0 {
		errs = append(errs, ValidationError{Field: "storage.max_conversations", Message: "must not be negative"})
	}

	switch c.UI.Theme {
	case "dark", "light":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: "must be dark or light"})
	}

	return errors.Join(errs...)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RIGCHAT_HOST: overrides server.host
//   - RIGCHAT_PORT: overrides server.port
//   - RIGCHAT_AUTH_TOKEN: overrides server.auth_token
//   - RIGCHAT_LLM_URL: overrides llm.base_url
//   - RIGCHAT_MODEL: overrides llm.model
//   - RIGCHAT_DB: overrides storage.database_path
//   - RIGCHAT_THEME: overrides ui.theme
//   - RIGCHAT_OFFLINE: set to "1" or "true" to enable offline mode
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("RIGCHAT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("RIGCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if token := os.Getenv("RIGCHAT_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
	if llmURL := os.Getenv("RIGCHAT_LLM_URL"); llmURL != "" {
		c.LLM.BaseURL = llmURL
	}
	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if db := os.Getenv("RIGCHAT_DB"); db != "" {
		c.Storage.DatabasePath = db
	}
	if theme := os.Getenv("RIGCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if offline := os.Getenv("RIGCHAT_OFFLINE"); offline != "" {
		c.OfflineMode = offline == "1" || strings.ToLower(offline) == "true"
	}
}

// =============================================================================
// SINGLETON (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on
// first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets singleton state. Only for tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
