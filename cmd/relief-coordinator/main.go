package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	demoMode bool
	jsonMode bool
	version  = "dev" // Will be set by build flags
)

var rootCmd = &cobra.Command{
	Use:   "relief-coordinator",
	Short: "Disaster relief logistics coordinator for Western North Carolina",
	Long: `Relief Coordinator fuses satellite detections, social media posts, official
bulletins, and shelter status into a live view of the regional road network,
and answers natural-language supply routing queries with ranked delivery
plans that avoid known hazards.`,
	Version: version,
	RunE:    runCoordinator,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVar(&demoMode, "demo", false, "run the canned demo query and exit")
	rootCmd.Flags().BoolVar(&jsonMode, "json", false, "print the raw JSON response")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
