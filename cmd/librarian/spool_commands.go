package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"librarian/internal/spool"
)

func newSpoolCommand(ctx *commandContext) *cobra.Command {
	spoolCmd := &cobra.Command{
		Use:   "spool",
		Short: "Inspect and maintain the download spool",
	}

	spoolCmd.AddCommand(newSpoolListCommand(ctx))
	spoolCmd.AddCommand(newSpoolCleanCommand(ctx))

	return spoolCmd
}

func newSpoolListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List spooled downloads, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			downloads, err := spool.GetDownloads(cfg.Paths.SpoolDir, cfg.Spool.Extension)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(downloads))
			for _, download := range downloads {
				expired := ""
				if spool.IsExpired(download.MTime, cfg.Spool.MaxAgeDays) {
					expired = "expired"
				}
				rows = append(rows, []string{
					filepath.Base(download.Path),
					download.MTime.Format("2006-01-02 15:04:05"),
					expired,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Modified", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newSpoolCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete expired downloads from the spool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := spool.FindSigned(cfg.Paths.SpoolDir, cfg.Spool.Extension)
			if err != nil {
				return err
			}
			kept := spool.Cleanup(files, cfg.Spool.MaxAgeDays)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired download(s), %d kept\n", len(files)-len(kept), len(kept))
			return nil
		},
	}
}
