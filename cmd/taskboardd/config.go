// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the daemon settings. Values come from an optional TOML file
// and can be overridden by environment variables.
type Config struct {
	Addr              string `toml:"addr"`
	TelegramBotToken  string `toml:"telegram_bot_token"`
	TokenSecret       string `toml:"token_secret"`
	SendNotifications bool   `toml:"send_notifications"`
	StartingBalance   int64  `toml:"starting_balance"`
	LogLevel          string `toml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8000",
		StartingBalance: 1000,
		LogLevel:        "info",
	}
}

// loadConfig reads the TOML file at path (when non-empty), then applies
// environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if v := os.Getenv("TASKBOARD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramBotToken = v
	}
	if v := os.Getenv("TASKBOARD_TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := os.Getenv("SEND_NOTIFICATIONS"); v != "" {
		cfg.SendNotifications = v != "0" && v != "false"
	}
	if v := os.Getenv("TASKBOARD_STARTING_BALANCE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TASKBOARD_STARTING_BALANCE: %w", err)
		}
		cfg.StartingBalance = n
	}
	if v := os.Getenv("TASKBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
