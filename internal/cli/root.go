// Package cli wires the pulsefeed commands: the polling daemon, a
// single-cycle run and checkpoint maintenance.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pulsefeed",
	Short: "Threat intelligence feed connector",
	Long: `pulsefeed polls a threat intelligence pulse feed, normalises the
records into canonical entities and publishes them to an ingestion API,
tracking progress with a durable per-source checkpoint.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
}

// Execute runs the root command with ctx, which cancels on shutdown
// signals.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
