// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - "rigchat config" command handler.
//
// Actions:
//   show    Print the active configuration (default)
//   path    Print the config file path
//   init    Write a default config file
//   set     Set a config value (rigchat config set llm.model qwen2.5:14b)

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigchat/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "path":
		return configPath()
	case "init":
		return configInit(args)
	case "set":
		return configSet(args)
	default:
		return fmt.Errorf("unknown config action: %s", args.Subcommand)
	}
}

func configShow(args Args) error {
	cfg := config.Global()
	if !args.Quiet {
		if path, err := config.ConfigPath(); err == nil {
			fmt.Println(DimStyle.Render("# " + path))
		}
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func configPath() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func configInit(args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !args.HasOption("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// configSet updates a single key in the config file. Only the keys a
// user plausibly tunes by hand are supported; everything else is an
// edit-the-file job.
func configSet(args Args) error {
	if len(args.Raw) < 2 {
		return fmt.Errorf("usage: rigchat config set KEY VALUE")
	}
	key, value := args.Raw[0], args.Raw[1]

	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	switch key {
	case "server.host":
		cfg.Server.Host = value
	case "server.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port: %s", value)
		}
		cfg.Server.Port = port
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.system_prompt":
		cfg.LLM.SystemPrompt = value
	case "render.highlight_style":
		cfg.Render.HighlightStyle = value
	case "render.highlight_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Render.HighlightEnabled = enabled
	case "ui.theme":
		cfg.UI.Theme = value
	default:
		return fmt.Errorf("unknown or unsupported key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	if err := config.SaveToPath(cfg, path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	config.SetGlobal(cfg)
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}
