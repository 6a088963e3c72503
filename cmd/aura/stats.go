package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aura-edu/aura/pkg/telemetry"
)

func newStatsCmd() *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show gateway call outcomes from the telemetry ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			rec, err := telemetry.New(cfg.Telemetry.DBPath, cfg.Telemetry.RetentionDays, logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			ctx := context.Background()

			if recent > 0 {
				events, err := rec.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Println("No calls recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMODEL\tOUTCOME\tATTEMPTS\tLATENCY\tCIRCUIT")
				for _, ev := range events {
					circuit := ""
					if ev.CircuitOpened {
						circuit = "opened"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
						ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
						ev.Model, ev.Outcome, ev.Attempts, ev.Latency, circuit)
				}
				return w.Flush()
			}

			summaries, err := rec.Summary(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No calls recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tOUTCOME\tCALLS\tATTEMPTS\tAVG LATENCY\tCIRCUIT OPENS")
			var calls, opens int
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0fms\t%d\n",
					s.Model, s.Outcome, s.Calls, s.TotalAttempts, s.AvgLatencyMs, s.CircuitOpens)
				calls += s.Calls
				opens += s.CircuitOpens
			}
			fmt.Fprintf(w, "TOTAL\t\t%d\t\t\t%d\n", calls, opens)
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "summarise calls newer than this")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent calls instead of a summary")
	return cmd
}
