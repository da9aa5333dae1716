package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/contentid"
	"librarian/internal/ipc"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage content tags",
	}

	tagsCmd.AddCommand(newTagsAddCommand(ctx))
	tagsCmd.AddCommand(newTagsRemoveCommand(ctx))
	tagsCmd.AddCommand(newTagsCloudCommand(ctx))

	return tagsCmd
}

func newTagsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <tag>...",
		Short: "Attach tags to an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, tags, err := parseTagArgs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.TagsAdd(id, tags); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s with %s\n", id, strings.Join(tags, ", "))
				return nil
			})
		},
	}
}

func newTagsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> <tag>...",
		Short: "Detach tags from an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, tags, err := parseTagArgs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.TagsRemove(id, tags); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", strings.Join(tags, ", "), id)
				return nil
			})
		},
	}
}

func newTagsCloudCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Show tag usage counts, most used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TagCloud()
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp.Tags)
				}
				rows := make([][]string, 0, len(resp.Tags))
				for _, tag := range resp.Tags {
					rows = append(rows, []string{tag.Name, fmt.Sprintf("%d", tag.Count)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Tag", "Items"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the cloud as JSON")
	return cmd
}

func parseTagArgs(args []string) (string, []string, error) {
	id := strings.TrimSpace(args[0])
	if !contentid.IsValid(id) {
		return "", nil, fmt.Errorf("invalid content id %q", args[0])
	}
	tags := make([]string, 0, len(args)-1)
	for _, arg := range args[1:] {
		tag := strings.TrimSpace(arg)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return "", nil, fmt.Errorf("at least one tag is required")
	}
	return id, tags, nil
}
