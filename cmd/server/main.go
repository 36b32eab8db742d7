package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/linechat/internal/app"
	"github.com/vovakirdan/linechat/internal/config"
	applog "github.com/vovakirdan/linechat/internal/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "linechat",
		Short:         "Line-oriented multi-party chat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := applog.New(overrides.LogLevel, overrides.LogFormat)

			cfg, path, err := config.Load(bootLog, configPath)
			if err != nil {
				bootLog.Error().Err(err).Str("path", path).Msg("load config")
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := applog.New(cfg.LogLevel, cfg.LogFormat)
			application, err := app.New(cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("init application")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().
				Str("config", path).
				Str("chat_addr", cfg.ChatAddr).
				Str("http_addr", cfg.HTTPAddr).
				Msg("starting linechat server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return fmt.Errorf("run: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to config file (default ./linechat.yaml)")
	flags.StringVar(&overrides.ChatAddr, "chat-addr", "", "TCP chat listen address")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address for /health, /status and /ws")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	flags.IntVar(&overrides.BroadcastCapacity, "broadcast-capacity", 0, "messages retained per subscriber before lagging")

	return cmd
}
