package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakim/threatscore/internal/config"
)

var (
	cfgFile string
	verbose bool
	snap    *config.Snapshot
)

var rootCmd = &cobra.Command{
	Use:   "threatscore",
	Short: "URL threat scoring engine",
	Long: `ThreatScore scores a URL's maliciousness by combining threat-intel
reputation, reachability probing, collected evidence (WHOIS, DNS, TLS,
page content, screenshots), a two-stage classifier ensemble with conformal
calibration, hard policy overrides, and a point-scored category check
battery. The output is a calibrated probability with a confidence interval
and a categorical risk level from A (benign) to F (confirmed malicious).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that must work before a config file exists.
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}
		if skipConfig[cmd.Name()] {
			return nil
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		var err error
		snap, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w (run 'threatscore init' to create one)", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: threatscore.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
