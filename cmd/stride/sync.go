package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync runs from Strava",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var after time.Time
			if since > 0 {
				after = time.Now().Add(-since)
			}

			n, err := a.svc.SyncStrava(ctx, after)
			if err != nil {
				return err
			}
			fmt.Printf("Synced %d runs from Strava\n", n)

			if _, err := a.svc.RelinkRoutes(ctx); err != nil {
				return fmt.Errorf("relinking routes: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only sync activities newer than this (e.g. 720h); default all history")
	return cmd
}
