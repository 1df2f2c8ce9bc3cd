package main

import "github.com/spf13/cobra"

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	root := &cobra.Command{
		Use:           "reelcast",
		Short:         "Mirror short-drama series to a video platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&ctx.apiAddr, "api", "", "Daemon API address (defaults to paths.api_bind)")
	flags.StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	flags.BoolVar(&ctx.asJSON, "json", false, "Print machine-readable JSON")

	root.AddCommand(
		newStatusCommand(ctx),
		newSeriesCommand(ctx),
		newQueueCommand(ctx),
		newSchedulerCommand(ctx),
		newPublishCommand(ctx),
		newLogsCommand(ctx),
		newDaemonCommand(ctx),
		newConfigCommand(ctx),
	)
	return root
}
