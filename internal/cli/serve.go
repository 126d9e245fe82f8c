// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - "rigchat serve" command handler.
//
// Starts the HTTP server that hosts the browser UI and the chat API,
// watches the config file for changes, and shuts down cleanly on
// SIGINT/SIGTERM.

package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may run after a
// termination signal before the server is torn down.
const shutdownTimeout = 10 * time.Second

// HandleServe handles the "serve" command.
func HandleServe(args Args) error {
	cfg := config.Global()

	// Command-line overrides beat config file and environment.
	if host := args.Option("host", ""); host != "" {
		cfg.Server.Host = host
	}
	if portStr := args.Option("port", ""); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port: %s", portStr)
		}
		cfg.Server.Port = port
	}
	if args.Model != "" {
		cfg.LLM.Model = args.Model
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}

	// Hot-reload the config file unless disabled. A reload updates the
	// global config; address and storage changes take effect on restart.
	if !args.HasOption("no-watch") {
		if path, err := config.ConfigPath(); err == nil {
			watcher, err := config.NewWatcher(path, func(next *config.Config) {
				config.SetGlobal(next)
			})
			if err != nil {
				log.Printf("CONFIG_WATCH_UNAVAILABLE | error=%v", err)
			} else {
				defer watcher.Close()
			}
		}
	}

	// Run the server in the background so signals can interrupt it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if !args.Quiet {
		fmt.Printf("rigchat serving on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop.")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Printf("SERVER_SHUTDOWN | signal=%v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if !args.Quiet {
		fmt.Println("Server stopped.")
	}
	return nil
}
