package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/catalog"
	"librarian/internal/contentid"
	"librarian/internal/ipc"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse and manage the content archive",
	}

	archiveCmd.AddCommand(newArchiveListCommand(ctx))
	archiveCmd.AddCommand(newArchiveSearchCommand(ctx))
	archiveCmd.AddCommand(newArchiveShowCommand(ctx))
	archiveCmd.AddCommand(newArchiveAddCommand(ctx))
	archiveCmd.AddCommand(newArchiveRemoveCommand(ctx))
	archiveCmd.AddCommand(newArchiveReloadCommand(ctx))

	return archiveCmd
}

type listFlags struct {
	offset    int
	limit     int
	tag       string
	lang      string
	multipage string
	jsonOut   bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Number of items to skip")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of items to show")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Filter by tag name")
	cmd.Flags().StringVar(&f.lang, "lang", "", "Filter by language")
	cmd.Flags().StringVar(&f.multipage, "multipage", "", "Filter by multipage flag (true/false)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Emit items as JSON")
}

func (f *listFlags) request(terms string) (ipc.ListRequest, error) {
	req := ipc.ListRequest{
		Offset: f.offset,
		Limit:  f.limit,
		Tag:    f.tag,
		Lang:   f.lang,
		Terms:  terms,
	}
	switch strings.ToLower(strings.TrimSpace(f.multipage)) {
	case "":
	case "true", "yes", "1":
		value := true
		req.Multipage = &value
	case "false", "no", "0":
		value := false
		req.Multipage = &value
	default:
		return req, fmt.Errorf("invalid multipage filter %q (use true or false)", f.multipage)
	}
	return req, nil
}

func newArchiveListCommand(ctx *commandContext) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archive content, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request("")
			if err != nil {
				return err
			}
			return runListRequest(ctx, cmd, req, flags.jsonOut)
		},
	}
	flags.register(cmd)
	return cmd
}

func newArchiveSearchCommand(ctx *commandContext) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "search <terms>",
		Short: "Search archive content titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return runListRequest(ctx, cmd, req, flags.jsonOut)
		},
	}
	flags.register(cmd)
	return cmd
}

func runListRequest(ctx *commandContext, cmd *cobra.Command, req ipc.ListRequest, jsonOut bool) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.List(req)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd, resp)
		}
		rows := make([][]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			rows = append(rows, []string{
				item.MD5,
				item.Meta.Title,
				item.Meta.Language,
				fmt.Sprintf("%d", item.Views),
				item.Updated.Format("2006-01-02"),
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Title", "Lang", "Views", "Updated"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
		fmt.Fprintf(out, "Showing %d of %d items\n", len(resp.Items), resp.Total)
		return nil
	})
}

func newArchiveShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single archive item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if !contentid.IsValid(id) {
				return fmt.Errorf("invalid content id %q", id)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Show(id)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Item)
				}
				printItem(cmd, resp.Item)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the item as JSON")
	return cmd
}

func printItem(cmd *cobra.Command, item catalog.Item) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	fmt.Fprintln(out, renderStatusLine("ID", statusInfo, item.MD5, colorize))
	fmt.Fprintln(out, renderStatusLine("Title", statusInfo, item.Meta.Title, colorize))
	fmt.Fprintln(out, renderStatusLine("URL", statusInfo, item.Meta.URL, colorize))
	fmt.Fprintln(out, renderStatusLine("Language", statusInfo, item.Meta.Language, colorize))
	fmt.Fprintln(out, renderStatusLine("License", statusInfo, item.Meta.License, colorize))
	fmt.Fprintln(out, renderStatusLine("Publisher", statusInfo, item.Meta.Publisher, colorize))
	fmt.Fprintln(out, renderStatusLine("Entry point", statusInfo, item.Meta.EntryPoint, colorize))
	fmt.Fprintln(out, renderStatusLine("Size", statusInfo, fmt.Sprintf("%d bytes", item.Size), colorize))
	fmt.Fprintln(out, renderStatusLine("Views", statusInfo, fmt.Sprintf("%d", item.Views), colorize))
	fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, item.Updated.Format("2006-01-02 15:04:05"), colorize))
	if len(item.Tags) > 0 {
		names := make([]string, 0, len(item.Tags))
		for name := range item.Tags {
			names = append(names, name)
		}
		fmt.Fprintln(out, renderStatusLine("Tags", statusInfo, strings.Join(names, ", "), colorize))
	}
	if item.ReplacesTitle != "" {
		fmt.Fprintln(out, renderStatusLine("Replaces", statusInfo, item.ReplacesTitle, colorize))
	}
}

func newArchiveAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id>...",
		Short: "Ingest spooled zipballs by content id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseContentIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d item(s)\n", resp.Affected)
				return nil
			})
		},
	}
}

func newArchiveRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove items and their content trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseContentIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Remove(ids)
				if err != nil {
					return err
				}
				for _, path := range resp.Failed {
					fmt.Fprintf(cmd.OutOrStdout(), "Failed to remove tree: %s\n", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", len(ids)-len(resp.Failed))
				return nil
			})
		},
	}
}

func newArchiveReloadCommand(ctx *commandContext) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the catalog from the extracted content trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload(clear)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d item(s)\n", resp.Affected)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Empty the catalog before reloading")
	return cmd
}

func parseContentIDs(args []string) ([]string, error) {
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id := strings.TrimSpace(arg)
		if !contentid.IsValid(id) {
			return nil, fmt.Errorf("invalid content id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
