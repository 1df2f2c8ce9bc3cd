package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelcast/internal/apiclient"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Import and inspect catalog series",
	}
	seriesCmd.AddCommand(newSeriesSearchCommand(ctx))
	seriesCmd.AddCommand(newSeriesImportCommand(ctx))
	seriesCmd.AddCommand(newSeriesListCommand(ctx))
	seriesCmd.AddCommand(newSeriesShowCommand(ctx))
	seriesCmd.AddCommand(newSeriesDeleteCommand(ctx))
	return seriesCmd
}

func newSeriesSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		tag           string
		offset, limit int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Browse catalog series available for import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.SearchCatalog(cmd.Context(), tag, offset, limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No catalog series found")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{item.SeriesID, item.Title, strconv.Itoa(item.EpisodeCount), valueOrDash(item.Intro)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{Header: "Catalog ID"},
					{Header: "Title", Max: 40},
					{Header: "Episodes", Align: alignRight},
					{Header: "Intro", Max: 60},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Catalog tag id to browse")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many results")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (catalog default when 0)")
	return cmd
}

func newSeriesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog-series-id>",
		Short: "Fetch a series from the catalog and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				resp, err := client.ImportSeries(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %q as series %d with %d episodes\n", resp.Series.Title, resp.Series.ID, resp.EpisodeCount)
				if resp.OriginalTitle != "" && resp.OriginalTitle != resp.Series.Title {
					fmt.Fprintf(out, "Catalog title: %s\n", resp.OriginalTitle)
				}
				return nil
			})
		},
	}
}

func newSeriesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiclient.Client) error {
				series, err := client.ListSeries(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, series)
				}
				if len(series) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No series imported yet")
					return nil
				}
				rows := make([][]string, 0, len(series))
				for _, s := range series {
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.CatalogID,
						s.Title,
						strconv.Itoa(s.EpisodeCount),
						yesNo(s.LocalCoverPath != ""),
						formatTimestamp(s.CreatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{Header: "ID", Align: alignRight},
					{Header: "Catalog ID"},
					{Header: "Title", Max: 48},
					{Header: "Episodes", Align: alignRight},
					{Header: "Cover"},
					{Header: "Imported"},
				}, rows))
				return nil
			})
		},
	}
}

func newSeriesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <series-id>",
		Short: "Show a series with its episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				detail, err := client.SeriesDetail(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderSectionHeader(detail.Series.Title, colorize))
				fmt.Fprintf(out, "Catalog ID: %s\n", detail.Series.CatalogID)
				fmt.Fprintf(out, "Intro:      %s\n", valueOrDash(detail.Series.Intro))
				fmt.Fprintf(out, "Tasks:      %d total, %d pending, %d completed, %d failed\n",
					detail.Tasks.Total, detail.Tasks.Pending, detail.Tasks.Completed, detail.Tasks.Failed)

				rows := make([][]string, 0, len(detail.Episodes))
				for _, ep := range detail.Episodes {
					publish := ep.PublishStatus
					if publish == "" {
						publish = "not_uploaded"
					}
					rows = append(rows, []string{
						strconv.FormatInt(ep.ID, 10),
						strconv.Itoa(ep.IndexSequence),
						ep.Title,
						formatSeconds(ep.Duration),
						yesNo(ep.LocalVideoPath != ""),
						displayStatus(publish),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{Header: "ID", Align: alignRight},
					{Header: "#", Align: alignRight},
					{Header: "Title", Max: 40},
					{Header: "Length", Align: alignRight},
					{Header: "Video"},
					{Header: "Publish"},
				}, rows))
				return nil
			})
		},
	}
}

func newSeriesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <series-id>",
		Short: "Delete a series with its episodes, tasks and publish records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0], "series")
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				if err := client.DeleteSeries(cmd.Context(), id); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"id": id, "deleted": true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Series %d deleted\n", id)
				return nil
			})
		},
	}
}
