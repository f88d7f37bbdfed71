package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/export"
	"github.com/mkarlsen/stride/internal/units"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import workouts and GPS tracks",
	}
	cmd.AddCommand(importExportCmd(), importRouteCmd())
	return cmd
}

func importExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Import running workouts from a health export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			lastPercent := -1.0
			n, err := a.svc.ImportExport(ctx, args[0], func(p export.Progress) {
				// File sources report size; only print whole-percent steps.
				if p.TotalBytes == 0 || p.Percent-lastPercent < 1 {
					return
				}
				lastPercent = p.Percent
				fmt.Printf("\r%3.0f%% (%d workouts)", p.Percent, p.Workouts)
			})
			if err != nil {
				return err
			}
			if lastPercent >= 0 {
				fmt.Println()
			}

			fmt.Printf("Imported %d running workouts\n", n)
			return nil
		},
	}
}

func importRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <file>...",
		Short: "Import GPS tracks (gpx or fit)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			for _, path := range args {
				route, err := a.svc.ImportRouteFile(ctx, path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s in %s (%s)\n",
					route.ID,
					units.Distance(route.DistanceKm, a.units),
					units.Duration(route.DurationMin),
					units.Pace(route.AvgPaceMinKm, a.units),
				)
			}

			if _, err := a.svc.RelinkRoutes(ctx); err != nil {
				return fmt.Errorf("relinking routes: %w", err)
			}
			return nil
		},
	}
}
