package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/metrics"
	"github.com/mkarlsen/stride/internal/units"
)

func statsCmd() *cobra.Command {
	var (
		weeks   int
		months  int
		monthly bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Training totals, heart-rate zones, and VO2max",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			timeline, err := a.svc.Timeline(ctx)
			if err != nil {
				return err
			}

			now := time.Now()
			var buckets []metrics.Bucket
			if monthly {
				buckets = metrics.MonthlyTotals(timeline, now, months)
			} else {
				buckets = metrics.WeeklyTotals(timeline, now, weeks)
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tRUNS\tDISTANCE\tTIME")
			for _, b := range buckets {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					b.Label, b.Count,
					units.Distance(b.DistanceKm, a.units),
					units.Duration(b.DurationMin),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			summary := metrics.Summarize(timeline, a.cfg.MaxHeartRate)
			fmt.Fprintf(out, "\nTotal: %d runs, %s in %s (avg %s)\n",
				summary.Workouts,
				units.Distance(summary.DistanceKm, a.units),
				units.Duration(summary.DurationMin),
				units.Pace(summary.AvgPace, a.units),
			)
			if summary.VO2Max != nil {
				fmt.Fprintf(out, "Estimated VO2max: %.1f\n", *summary.VO2Max)
			}

			routes, err := a.store.Routes(ctx)
			if err != nil {
				return err
			}
			if best, ok := metrics.BestPace(routes); ok {
				fmt.Fprintf(out, "Best pace: %s\n", units.Pace(best, a.units))
			}

			fmt.Fprintln(out, "\nHeart-rate zones:")
			for _, z := range metrics.HeartRateZones(timeline, a.cfg.MaxHeartRate) {
				fmt.Fprintf(out, "  %s  %s\n", z.Name, units.Duration(z.DurationMin))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&weeks, "weeks", 8, "weekly buckets to show")
	cmd.Flags().IntVar(&months, "months", 6, "monthly buckets to show (with --monthly)")
	cmd.Flags().BoolVar(&monthly, "monthly", false, "roll up by calendar month instead of week")
	return cmd
}
