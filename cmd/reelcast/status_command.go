package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"reelcast/internal/api"
	"reelcast/internal/apiclient"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, queue and scheduler status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			err := ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(out, status)
				return nil
			})
			if err != nil && !ctx.jsonOutput() {
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, err.Error(), colorize))
				return nil
			}
			return err
		},
	}
}

func printDaemonStatus(out io.Writer, status api.DaemonStatus) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	running := statusWarn
	if status.Running {
		running = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", running, "pid "+strconv.Itoa(status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))

	if len(status.Checks) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
		for _, check := range status.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Library", colorize))
	o := status.Overview
	fmt.Fprintln(out, renderStatusLine("Series", statusInfo, strconv.Itoa(o.Series), colorize))
	fmt.Fprintln(out, renderStatusLine("Episodes", statusInfo, strconv.Itoa(o.Episodes), colorize))
	taskKind := statusInfo
	if o.Tasks.Failed > 0 {
		taskKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Tasks", taskKind, fmt.Sprintf("%d pending, %d processing, %d completed, %d failed",
		o.Tasks.Pending, o.Tasks.Processing, o.Tasks.Completed, o.Tasks.Failed), colorize))
	if len(o.Publishes) > 0 {
		keys := make([]string, 0, len(o.Publishes))
		for key := range o.Publishes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		summary := ""
		for i, key := range keys {
			if i > 0 {
				summary += ", "
			}
			summary += fmt.Sprintf("%d %s", o.Publishes[key], key)
		}
		fmt.Fprintln(out, renderStatusLine("Publishes", statusInfo, summary, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Scheduler", colorize))
	printSchedulerStatus(out, status.Scheduler)
}
