package cli

import (
	"github.com/spf13/cobra"

	"github.com/seclane/pulsefeed/internal/core/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling daemon",
	Long: `Starts the polling loop: every interval, fetch pulses modified since
the checkpoint, normalise them and publish to the ingestion API. The
loop never exits on a failed cycle; stop it with SIGINT or SIGTERM.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.validate(ctx); err != nil {
		return err
	}

	if app.metrics != nil {
		app.metrics.Serve(app.cfg.MetricsAddr)
	}

	daemon := services.NewDaemon(app.importer, app.store.CycleStore(), app.cfg.Interval, app.metrics)
	if err := daemon.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
