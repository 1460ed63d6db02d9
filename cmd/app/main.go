package main

import (
	"fmt"
	"os"

	"SignalTrader/internal/di"
	"SignalTrader/pkg/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "signaltrader",
		Short:         "Signal-driven trade execution across broker accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the polling scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	})
	rootCmd.AddCommand(newCheckConfigCmd(&configPath))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "signaltrader %s\n", version)
		},
	})

	return rootCmd
}

func newCheckConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "environment: %s\n", cfg.Environment)
			fmt.Fprintf(out, "registry:    %s\n", cfg.Registry.ConfigURL)
			fmt.Fprintf(out, "interval:    %s every %s\n", cfg.MarketData.Interval, cfg.Scheduler.PollInterval)
			fmt.Fprintf(out, "candles:     %s\n", cfg.MarketData.Provider)
			fmt.Fprintf(out, "ledger:      %s\n", cfg.Ledger.Backend)
			fmt.Fprintf(out, "dedup:       %s\n", cfg.Dedup.Backend)
			fmt.Fprintf(out, "log sink:    %s\n", cfg.Sink.Backend)
			return nil
		},
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}

	// Run application (blocks until signal)
	return app.Run()
}
