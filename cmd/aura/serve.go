package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aura-edu/aura/pkg/assistant"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assistant HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			gw, rec, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}
			if rec != nil {
				defer rec.Close()
			}

			srv := assistant.New(cfg, gw, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("starting aura",
				"model", cfg.Gemini.Model,
				"max_attempts", cfg.Gateway.MaxAttempts,
				"circuit_threshold", cfg.Gateway.CircuitThreshold,
				"telemetry", cfg.Telemetry.Enabled,
			)
			return srv.ListenAndServe(ctx)
		},
	}
}
