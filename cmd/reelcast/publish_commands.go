package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelcast/internal/api"
	"reelcast/internal/apiclient"
)

func newPublishCommand(ctx *commandContext) *cobra.Command {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload episodes and inspect publish records",
	}
	publishCmd.AddCommand(newPublishUploadCommand(ctx))
	publishCmd.AddCommand(newPublishStatusCommand(ctx))
	publishCmd.AddCommand(newPublishListCommand(ctx))
	return publishCmd
}

func newPublishUploadCommand(ctx *commandContext) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "upload <episode-id>",
		Short: "Upload one downloaded episode",
		Long: "Upload one downloaded episode. Without --title and --description the\n" +
			"generated \"EPS <n> - <series>\" title and series description are used.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "episode")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				out, err := client.Publish(cmd.Context(), api.PublishRequest{
					EpisodeID:   id,
					Title:       title,
					Description: description,
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, out.Message)
				if out.URL != "" {
					fmt.Fprintf(w, "URL: %s\n", out.URL)
				}
				if !out.Success {
					return fmt.Errorf("episode %d was not published", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Override the generated title")
	cmd.Flags().StringVar(&description, "description", "", "Override the generated description")
	return cmd
}

func newPublishStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <episode-id>",
		Short: "Show the publish state of an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "episode")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				status, err := client.PublishStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Episode %d: %s\n", id, displayStatus(status.Status))
				if status.URL != "" {
					fmt.Fprintf(w, "URL: %s\n", status.URL)
				}
				if status.Error != "" {
					fmt.Fprintf(w, "Error: %s\n", status.Error)
				}
				return nil
			})
		},
	}
}

func newPublishListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List publish records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				records, err := client.PublishRecords(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No publish records")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.EpisodeID, 10),
						displayStatus(rec.Status),
						valueOrDash(rec.VideoID),
						valueOrDash(rec.URL),
						formatTimestamp(rec.UpdatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{Header: "Episode", Align: alignRight},
					{Header: "Status"},
					{Header: "Video ID"},
					{Header: "URL", Max: 60},
					{Header: "Updated"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, uploading, published, failed)")
	return cmd
}
