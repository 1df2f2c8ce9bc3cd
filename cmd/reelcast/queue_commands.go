package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelcast/internal/api"
	"reelcast/internal/apiclient"
	"reelcast/internal/downloads"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Plan and process download tasks",
	}
	queueCmd.AddCommand(newQueueEnqueueCommand(ctx))
	queueCmd.AddCommand(newQueueProcessCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueRequeueCommand(ctx))
	return queueCmd
}

func newQueueEnqueueCommand(ctx *commandContext) *cobra.Command {
	var opts api.PlanOptions

	cmd := &cobra.Command{
		Use:   "enqueue <series-id>",
		Short: "Queue cover and video downloads for a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			if opts.SkipCovers && opts.SkipVideos {
				return fmt.Errorf("--skip-covers and --skip-videos leave nothing to download")
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Enqueue(cmd.Context(), api.EnqueueRequest{SeriesID: id, Plan: &opts})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %d tasks for series %d\n", resp.Count, id)
				for _, note := range resp.Skipped {
					fmt.Fprintf(out, "  skipped %s\n", note)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.SkipCovers, "skip-covers", false, "Do not queue cover images")
	cmd.Flags().BoolVar(&opts.SkipVideos, "skip-videos", false, "Do not queue episode videos")
	cmd.Flags().IntVar(&opts.FromEpisode, "from", 0, "First episode number to include")
	cmd.Flags().IntVar(&opts.ToEpisode, "to", 0, "Last episode number to include")
	cmd.Flags().BoolVar(&opts.SkipDownloaded, "skip-downloaded", false, "Skip files that are already stored")
	return cmd
}

func newQueueProcessCommand(ctx *commandContext) *cobra.Command {
	var drain bool
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the next pending task, or drain the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.Process(cmd.Context(), drain, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Drain != nil {
					for _, res := range resp.Drain.Results {
						printProcessResult(out, res)
					}
					fmt.Fprintf(out, "Processed %d tasks (%d succeeded, %d failed) in %s\n",
						resp.Drain.Processed, resp.Drain.Succeeded, resp.Drain.Failed, resp.Drain.Duration.Round(time.Millisecond))
					if resp.Drain.HasMore {
						fmt.Fprintln(out, "More tasks are pending")
					}
					return nil
				}
				if resp.Result != nil {
					printProcessResult(out, *resp.Result)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&drain, "drain", false, "Keep processing until the queue is empty")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tasks to process when draining")
	return cmd
}

func printProcessResult(out io.Writer, res downloads.Result) {
	if !res.Processed {
		fmt.Fprintln(out, res.Message)
		return
	}
	status := "done"
	detail := res.Path
	if !res.Success {
		status = "failed"
		detail = res.Error
	}
	fmt.Fprintf(out, "Task %d (%s): %s %s\n", res.TaskID, res.TaskType, status, detail)
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <series-id>",
		Short: "Show download tasks for a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.QueueStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				s := status.Stats
				fmt.Fprintf(out, "Series %d: %d total, %d pending, %d processing, %d completed, %d failed\n",
					id, s.Total, s.Pending, s.Processing, s.Completed, s.Failed)
				if len(status.Tasks) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(status.Tasks))
				for _, task := range status.Tasks {
					rows = append(rows, []string{
						strconv.FormatInt(task.ID, 10),
						task.Type,
						task.Filename,
						displayStatus(task.Status),
						valueOrDash(task.ErrorMessage),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{Header: "ID", Align: alignRight},
					{Header: "Type"},
					{Header: "File", Max: 40},
					{Header: "Status"},
					{Header: "Error", Max: 48},
				}, rows))
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <series-id>",
		Short: "Remove every task of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				removed, err := client.ClearQueue(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ClearResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d tasks\n", removed)
				return nil
			})
		},
	}
}

func newQueueRequeueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <series-id> [task-id...]",
		Short: "Reset failed tasks to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			taskIDs, err := parsePositiveIDs(args[1:], "task")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				n, err := client.Requeue(cmd.Context(), id, taskIDs...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.RequeueResponse{Requeued: n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed tasks\n", n)
				return nil
			})
		},
	}
}
