package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ugoira/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []history.Status
			if s := strings.TrimSpace(status); s != "" {
				parsed, ok := history.ParseStatus(s)
				if !ok {
					return fmt.Errorf("unknown status %q (use completed, failed or review)", s)
				}
				filter = append(filter, parsed)
			}

			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	cmd.Flags().StringVar(&status, "status", "", "Only show records with this status")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history records and reset the download counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history record(s)\n", removed)
			return nil
		},
	}
}

func renderHistoryTable(records []history.Record) string {
	headers := []string{"Finished", "Status", "Format", "Strategy", "Frames", "Size", "File"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		file := filepath.Base(r.OutputPath)
		if r.OutputPath == "" {
			file = "-"
			if msg := strings.TrimSpace(r.ErrorMessage); msg != "" {
				file = truncateMessage(msg, 60)
			}
		}
		rows = append(rows, []string{
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			string(r.Status),
			r.Format,
			dashIfEmpty(r.Strategy),
			strconv.Itoa(r.Frames),
			humanize.IBytes(uint64(max(r.Bytes, 0))),
			file,
		})
	}
	return renderTable(headers, rows, aligns)
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncateMessage(msg string, limit int) string {
	runes := []rune(msg)
	if len(runes) <= limit {
		return msg
	}
	return string(runes[:limit-1]) + "…"
}
