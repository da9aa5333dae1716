package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/ipc"
)

func newFacetsCommand(ctx *commandContext) *cobra.Command {
	facetsCmd := &cobra.Command{
		Use:   "facets",
		Short: "Query and maintain the facet index",
	}

	facetsCmd.AddCommand(newFacetsSearchCommand(ctx))
	facetsCmd.AddCommand(newFacetsScanCommand(ctx))

	return facetsCmd
}

func newFacetsSearchCommand(ctx *commandContext) *cobra.Command {
	var facetType string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <terms>",
		Short: "Search indexed file metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms := strings.Join(args, " ")
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.FacetSearch(terms, facetType)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Records)
				}
				rows := make([][]string, 0, len(resp.Records))
				for _, record := range resp.Records {
					rows = append(rows, []string{
						record.Path,
						record.Title,
						record.Author,
						fmt.Sprintf("%d", record.FacetTypes),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Path", "Title", "Author", "Types"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&facetType, "type", "", "Restrict the search to one facet type")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}

func newFacetsScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Reindex a content directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = strings.TrimSpace(args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.FacetScan(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scan of %s completed\n", path)
				return nil
			})
		},
	}
	return cmd
}
