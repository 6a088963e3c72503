package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aura-edu/aura/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the gateway as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			gw, rec, err := newGateway(cfg, logger)
			if err != nil {
				return err
			}

			var ledger mcp.Ledger
			if rec != nil {
				defer rec.Close()
				ledger = rec
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcp.New(cfg, gw, ledger, version, logger)
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
