package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"ugoira/internal/history"
	"ugoira/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show directory health and the download counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			var opts []workflow.ManagerOption
			if store != nil {
				defer store.Close()
				opts = append(opts, workflow.WithHistory(store))
			}

			summary, err := workflow.NewManager(cfg, logger, opts...).Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Configuration", colorize)
			path := ctx.configPath
			if !ctx.configFile {
				path += " (not found, using defaults)"
			}
			lines = append(lines,
				renderStatusLine("Config", statusInfo, path, colorize),
				renderStatusLine("Output", statusInfo, cfg.DeliveryDir(), colorize),
				renderStatusLine("Format", statusInfo, cfg.Conversion.Format, colorize),
				renderStatusLine("Strategies", statusInfo, strings.Join(cfg.Conversion.Strategies, " → "), colorize),
				"",
			)

			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			for _, r := range summary.Preflight {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			lines = append(lines, "")

			lines = append(lines, renderSectionHeader("History", colorize)...)
			lines = append(lines, renderStatusLine("Enabled", statusInfo, yesNo(summary.HistoryEnabled), colorize))
			if summary.HistoryEnabled {
				lines = append(lines, renderStatusLine("Downloads", statusOK, fmt.Sprintf("%d", summary.Completed), colorize))
				for _, st := range sortedStatuses(summary.ByStatus) {
					if st == history.StatusCompleted {
						continue
					}
					kind := statusWarn
					if st == history.StatusFailed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(strings.ToUpper(string(st[:1]))+string(st[1:]), kind, fmt.Sprintf("%d", summary.ByStatus[st]), colorize))
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

func sortedStatuses(stats map[history.Status]int) []history.Status {
	out := make([]history.Status, 0, len(stats))
	for st := range stats {
		out = append(out, st)
	}
	slices.Sort(out)
	return out
}
