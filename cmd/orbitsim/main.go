// Command orbitsim parses TLE catalogs and propagates them with a two-body
// Keplerian model.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/liamnightingale/OrbitSim/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool

	cfg    config.Config
	logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
)

var rootCmd = &cobra.Command{
	Use:   "orbitsim",
	Short: "Two-body orbit propagation from TLE catalogs",
	Long: `orbitsim reads Two-Line Element sets, derives classical orbital elements
and propagates them with an unperturbed Keplerian model.

Configuration comes from defaults, an optional orbitsim.yaml and
ORBITSIM_* environment variables, in increasing precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		boot := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), nil))
		loaded, err := config.Load(configFile, boot)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./orbitsim.yaml or ~/.config/orbitsim/orbitsim.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(reportCmd, propagateCmd, serveCmd, fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
