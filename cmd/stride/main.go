package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mkarlsen/stride/internal/version"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "stride",
		Short:   "Running data from health exports, GPS tracks, and Strava",
		Version: version.Get(),
	}

	rootCmd.AddCommand(
		importCmd(),
		syncCmd(),
		timelineCmd(),
		routesCmd(),
		statsCmd(),
		raceCmd(),
		upgradeCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}
