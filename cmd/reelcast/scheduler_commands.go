package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelcast/internal/apiclient"
	"reelcast/internal/scheduler"
)

func newSchedulerCommand(ctx *commandContext) *cobra.Command {
	schedulerCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Control the scheduled publisher",
	}

	schedulerCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schedule, next run and last result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.SchedulerStatus(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				printSchedulerStatus(cmd.OutOrStdout(), status)
				return nil
			})
		},
	})

	schedulerCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Arm the scheduler timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.StartScheduler(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduler started")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduler already running")
				}
				printSchedulerStatus(cmd.OutOrStdout(), resp.Status)
				return nil
			})
		},
	})

	schedulerCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Disarm the scheduler timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.StopScheduler(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if resp.Changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduler stopped")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduler was not running")
				}
				return nil
			})
		},
	})

	schedulerCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Publish the next episode now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				res, err := client.RunScheduler(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, res)
				}
				printRunResult(cmd.OutOrStdout(), res)
				return nil
			})
		},
	})

	return schedulerCmd
}

func printSchedulerStatus(out io.Writer, status scheduler.Status) {
	colorize := shouldColorize(out)
	kind, state := statusWarn, "stopped"
	if status.Running {
		kind, state = statusOK, "running"
	}
	if status.Uploading {
		state += ", upload in progress"
	}
	fmt.Fprintln(out, renderStatusLine("Scheduler", kind, state, colorize))
	fmt.Fprintln(out, renderStatusLine("Schedule", statusInfo, fmt.Sprintf("%s (%s)", status.Schedule, status.Timezone), colorize))
	if status.NextRun != nil {
		fmt.Fprintln(out, renderStatusLine("Next run", statusInfo, status.NextRun.Local().Format("2006-01-02 15:04 MST"), colorize))
	}
	if last := status.LastRun; last != nil {
		kind := statusOK
		if !last.Success {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine("Last run", kind, last.Message, colorize))
	}
}

func printRunResult(out io.Writer, res scheduler.RunResult) {
	fmt.Fprintln(out, res.Message)
	if res.EpisodeNumber > 0 {
		fmt.Fprintf(out, "Episode %d of %s\n", res.EpisodeNumber, res.SeriesTitle)
	}
	if res.URL != "" {
		fmt.Fprintf(out, "URL: %s\n", res.URL)
	}
	if res.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", res.Error)
	}
}
