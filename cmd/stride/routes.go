package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/reconcile"
	"github.com/mkarlsen/stride/internal/units"
)

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Inspect imported GPS routes",
	}
	cmd.AddCommand(routesListCmd(), routesSimilarCmd(), routesClustersCmd(), routesRelinkCmd())
	return cmd
}

func routesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			routes, err := a.store.Routes(ctx)
			if err != nil {
				return err
			}
			if len(routes) == 0 {
				fmt.Println("No routes yet. Try `stride import route`.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tDISTANCE\tPACE\tLINKED")
			for i := range routes {
				r := &routes[i]
				linked := "-"
				if r.LinkedWorkoutID != "" {
					linked = r.LinkedWorkoutID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID,
					r.Start.Local().Format("2006-01-02"),
					units.Distance(r.DistanceKm, a.units),
					units.Pace(r.AvgPaceMinKm, a.units),
					linked,
				)
			}
			return w.Flush()
		},
	}
}

func routesSimilarCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "similar <route-id>",
		Short: "Find routes similar to the given one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			target, err := a.store.Route(ctx, args[0])
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("route %q not found", args[0])
			}

			routes, err := a.store.Routes(ctx)
			if err != nil {
				return err
			}

			matches := reconcile.FindSimilar(target, routes, threshold)
			if len(matches) == 0 {
				fmt.Println("No similar routes.")
				return nil
			}
			for _, m := range matches {
				fmt.Printf("%.2f  %s (%s)\n",
					m.Score, m.Route.ID, units.Distance(m.Route.DistanceKm, a.units))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "minimum similarity score in [0,1]")
	return cmd
}

func routesClustersCmd() *cobra.Command {
	var radiusKm float64

	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Group routes by where they are",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			routes, err := a.store.Routes(ctx)
			if err != nil {
				return err
			}

			clusters := reconcile.ClusterRoutes(routes, radiusKm)
			for i, c := range clusters {
				fmt.Printf("Cluster %d (%.4f, %.4f): %d routes\n",
					i+1, c.Center.Lat, c.Center.Lon, len(c.Routes))
				for j := range c.Routes {
					fmt.Printf("  %s\n", c.Routes[j].ID)
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&radiusKm, "radius", 0, "cluster radius in km (default 2)")
	return cmd
}

func routesRelinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relink",
		Short: "Re-match routes against the workout timeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			linked, err := a.svc.RelinkRoutes(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d routes linked to workouts\n", linked)
			return nil
		},
	}
}
