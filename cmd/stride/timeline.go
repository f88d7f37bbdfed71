package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/units"
)

func timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Show the merged workout timeline, duplicates collapsed",
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
			if len(timeline) == 0 {
				fmt.Println("No workouts yet. Try `stride import export` or `stride sync`.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSOURCE\tDISTANCE\tTIME\tPACE\tHR")
			for i := range timeline {
				wo := &timeline[i]
				hr := "-"
				if wo.AvgHeartRate > 0 {
					hr = fmt.Sprintf("%.0f", wo.AvgHeartRate)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					wo.Start.Local().Format("2006-01-02 15:04"),
					wo.Source,
					units.Distance(wo.DistanceKm, a.units),
					units.Duration(wo.DurationMin),
					units.Pace(wo.PaceMinPerKm(), a.units),
					hr,
				)
			}
			return w.Flush()
		},
	}
}
