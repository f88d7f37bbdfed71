package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/playback"
	"github.com/mkarlsen/stride/internal/run"
	"github.com/mkarlsen/stride/internal/units"
)

func raceCmd() *cobra.Command {
	var (
		speed float64
		tick  time.Duration
		seek  float64
	)

	cmd := &cobra.Command{
		Use:   "race <route-id> [route-id]",
		Short: "Replay one route, or race two against a shared clock",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var routes []run.Route
			for _, id := range args {
				r, err := a.store.Route(ctx, id)
				if err != nil {
					return err
				}
				if r == nil {
					return fmt.Errorf("route %q not found", id)
				}
				routes = append(routes, *r)
			}

			session, err := playback.NewSession(routes, playback.Options{
				TickInterval: tick,
				Speed:        speed,
			})
			if err != nil {
				return err
			}
			if seek > 0 {
				session.Seek(seek)
			}

			done := make(chan struct{})
			engine := playback.NewEngine(playback.WithLogger(a.logger))
			engine.Start(ctx, session, func(f playback.Frame) {
				printFrame(f, a.units)
				if f.Done {
					close(done)
				}
			})
			defer engine.Stop()

			select {
			case <-done:
				fmt.Println("\nFinished.")
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 10, "simulation speed multiplier")
	cmd.Flags().DurationVar(&tick, "tick", 0, "tick interval (default 100ms)")
	cmd.Flags().Float64Var(&seek, "seek", 0, "start at this percent of the race")
	return cmd
}

func printFrame(f playback.Frame, sys units.System) {
	fmt.Printf("\r%8s", f.Elapsed.Truncate(time.Second))
	for _, t := range f.Tracks {
		marker := ""
		if t.Finished {
			marker = " ✓"
		}
		fmt.Printf("  |  %s %s%s", t.RouteID, units.Distance(t.DistanceKm, sys), marker)
	}
}
