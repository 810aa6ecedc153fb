package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stopmo/internal/history"
	"stopmo/internal/logging"
)

func newExportsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "exports",
		Short: "List saved GIF and video exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := openHistory(cmd.Context(), cfg, logging.NewNop())
			if store == nil {
				return fmt.Errorf("export history %s is unavailable", cfg.HistoryPath())
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONList(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No exports recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderExportsTable(entries, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderExportsTable(entries []history.Entry, now time.Time) string {
	columns := []tableColumn{
		{"ID", alignRight},
		{"Created", alignLeft},
		{"Kind", alignLeft},
		{"File", alignLeft},
		{"Type", alignLeft},
		{"Size", alignRight},
		{"Frames", alignRight},
		{"Dimensions", alignRight},
		{"Fallback", alignLeft},
		{"Codec", alignLeft},
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		codec := e.Codec
		if codec == "" {
			codec = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
			titleLabel(e.Kind),
			e.Filename,
			e.MIMEType,
			humanize.Bytes(uint64(max(e.SizeBytes, 0))),
			strconv.Itoa(e.Frames),
			fmt.Sprintf("%dx%d", e.Width, e.Height),
			yesNo(e.UsedFallback),
			codec,
		})
	}
	footer := "1 export"
	if len(entries) != 1 {
		footer = fmt.Sprintf("%d exports", len(entries))
	}
	return renderTable(columns, rows, footer)
}
