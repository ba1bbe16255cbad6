package main

import (
	"context"
	"fmt"
	"os"
	"waimai-crawler/lib/serviceutil"
	"waimai-crawler/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "waimai",
	Short: "waimai finds the storefronts a brand runs on Meituan Waimai in a city and exports their menus.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "Path to the config file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging and dump http exchanges.")
}

// withApp loads the config and builds the app for one command.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	t, err := telemetry.SetupFromEnv(ctx, "waimai")
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer t.Shutdown(context.Background())

	a, err := newApp(ctx, cfg, verbose)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func main() {
	ctx := serviceutil.SignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
