// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Server.Port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.LLM.BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if !cfg.Render.HighlightEnabled {
		t.Error("highlighting should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.LLM.Model != "qwen2.5:7b" {
		t.Errorf("Model = %q, want default", cfg.LLM.Model)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
offline_mode = true

[server]
port = 9000

[llm]
model = "llama3.2:3b"

[render]
highlight_style = "dracula"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.LLM.Model != "llama3.2:3b" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if cfg.Render.HighlightStyle != "dracula" {
		t.Errorf("HighlightStyle = %q", cfg.Render.HighlightStyle)
	}
	if !cfg.OfflineMode {
		t.Error("OfflineMode should be true")
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default preserved", cfg.Server.Host)
	}
}

func TestLoadFromPath_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 99999\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("out-of-range port should fail validation")
	}
}

func TestSaveToPath_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Server.AuthToken = "secret-token"
	cfg.LLM.Model = "mistral:7b"

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# rigchat configuration file") {
		t.Error("saved config should start with the header comment")
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Server.AuthToken != "secret-token" {
		t.Errorf("AuthToken = %q", loaded.Server.AuthToken)
	}
	if loaded.LLM.Model != "mistral:7b" {
		t.Errorf("Model = %q", loaded.LLM.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"bad url", func(c *Config) { c.LLM.BaseURL = "not a url" }, "llm.base_url"},
		{"zero timeout", func(c *Config) { c.LLM.TimeoutSecs = 0 }, "llm.timeout_secs"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error = %v, should mention %s", err, tt.field)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RIGCHAT_PORT", "7777")
	t.Setenv("RIGCHAT_MODEL", "phi3:mini")
	t.Setenv("RIGCHAT_OFFLINE", "true")
	t.Setenv("RIGCHAT_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.LLM.Model != "phi3:mini" {
		t.Errorf("Model = %q", cfg.LLM.Model)
	}
	if !cfg.OfflineMode {
		t.Error("OfflineMode should be set from env")
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	t.Setenv("RIGCHAT_PORT", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Port != 8090 {
		t.Errorf("Port = %d, malformed env value should be ignored", cfg.Server.Port)
	}
}

func TestDatabasePath_ExplicitWins(t *testing.T) {
	cfg := Default()
	cfg.Storage.DatabasePath = "/tmp/custom.db"

	path, err := cfg.DatabasePath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/custom.db" {
		t.Errorf("DatabasePath = %q", path)
	}
}

// TestConfig_ConcurrentAccess exercises Global(), SetGlobal(), and
// ReloadGlobal() under concurrency. Run with -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	SetGlobal(Default())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global returned nil")
			}
		}()
	}
	wg.Wait()

	ResetGlobalForTesting()
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveToPath(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	cfg := Default()
	cfg.LLM.Model = "updated:latest"
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.LLM.Model != "updated:latest" {
			t.Errorf("reloaded model = %q", got.LLM.Model)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveToPath(Default(), path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
