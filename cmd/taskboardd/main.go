// Copyright 2025 The Go Taskboard Authors
// SPDX-License-Identifier: Apache-2.0

// Command taskboardd runs the taskboard marketplace server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-taskboard/taskboard/auth"
	"github.com/go-taskboard/taskboard/notify"
	"github.com/go-taskboard/taskboard/server"
)

// shutdownTimeout bounds the graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "taskboardd",
		Short: "Taskboard - escrow-backed peer-to-peer task marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func run(ctx context.Context, cfg Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	sink := notify.NewTelegramSink(cfg.TelegramBotToken, cfg.SendNotifications, logger.With("component", "notify"))

	engine := server.NewEngine(server.EngineConfig{
		Notifier:        sink,
		StartingBalance: cfg.StartingBalance,
		Logger:          logger.With("component", "engine"),
	})

	issuer := auth.NewIssuer(cfg.TokenSecret)
	resolver := auth.NewResolver(cfg.TelegramBotToken, issuer, logger.With("component", "auth"))

	srv := server.New(server.Config{
		Addr:   cfg.Addr,
		Engine: engine,
		Auth:   resolver,
		Logger: logger.With("component", "http"),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	logger.Info("taskboard started",
		"addr", cfg.Addr,
		"signed_tokens", issuer.Signed(),
		"notifications", cfg.SendNotifications)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
