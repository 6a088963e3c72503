package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aura-edu/aura/pkg/models"
	"github.com/aura-edu/aura/pkg/router"
)

func newGenerateCmd() *cobra.Command {
	var (
		model       string
		interaction string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run one prompt through the gateway and print the text",
		Args:  cobra.MinimumNArgs(1),
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

			if model == "" {
				model = router.New(cfg).Resolve(models.InteractionType(interaction))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := gw.Call(ctx, model, strings.Join(args, " "))
			if verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "model=%s outcome=%s attempts=%d\n", model, res.Outcome, res.Attempts)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "model identifier (default: routed by --interaction)")
	cmd.Flags().StringVarP(&interaction, "interaction", "i", "conversation", "interaction type used for routing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print outcome and attempts to stderr")
	return cmd
}
