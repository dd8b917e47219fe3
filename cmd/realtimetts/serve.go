package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/go-realtime-tts/internal/config"
	"github.com/example/go-realtime-tts/internal/server"
	"github.com/example/go-realtime-tts/internal/store"
	"github.com/example/go-realtime-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the realtime TTS HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			artifacts, err := store.New(
				cfg.Store.OutputDir,
				time.Duration(cfg.Store.RetentionSeconds)*time.Second,
				slog.Default(),
			)
			if err != nil {
				return err
			}
			defer artifacts.Close()

			svc := tts.NewService(buildSynthesizer(cfg), cfg.TTS, slog.Default())

			srv := server.New(cfg, svc, artifacts).
				WithShutdownTimeout(time.Duration(cfg.Server.ShutdownTimeout) * time.Second)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("starting server",
				slog.String("addr", cfg.Server.ListenAddr),
				slog.Int("workers", cfg.Server.Workers),
			)

			return srv.Start(ctx)
		},
	}

	defaults := config.DefaultConfig()
	config.RegisterFlags(cmd.Flags(), defaults)

	return cmd
}

// buildSynthesizer selects the synthesis backend: the configured external
// command when one is set, otherwise the deterministic built-in generator.
func buildSynthesizer(cfg config.Config) tts.Synthesizer {
	if cfg.TTS.Command != "" {
		return &tts.Exec{Command: cfg.TTS.Command}
	}

	slog.Warn("no synthesis command configured, serving generated tones")
	return &tts.Mock{}
}
