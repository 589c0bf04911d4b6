package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ugoira/internal/config"
	"ugoira/internal/workflow"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		metaPath string
		author   string
		title    string
		format   string
		noBar    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <bundle.zip>",
		Short: "Convert a ugoira frame bundle into a GIF",
		Long: "Convert a ugoira zip into an animated GIF (or a re-bundled zip with --format zip).\n" +
			"Frame delays come from --meta, or from an animation.json inside the bundle, or default to the configured delay.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "" && format != config.FormatGIF && format != config.FormatZIP {
				return fmt.Errorf("unsupported format %q (use gif or zip)", format)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			var bar *conversionBar
			if !noBar {
				bar = newConversionBar(cmd.ErrOrStderr())
			}
			opts := []workflow.ManagerOption{workflow.WithObserver(bar.observe)}
			if store != nil {
				opts = append(opts, workflow.WithHistory(store))
			}
			mgr := workflow.NewManager(cfg, logger, opts...)

			bundle, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve bundle path: %w", err)
			}
			job := workflow.Job{
				BundlePath: bundle,
				Author:     author,
				Title:      title,
				Format:     format,
			}
			if metaPath = strings.TrimSpace(metaPath); metaPath != "" {
				expanded, err := config.ExpandPath(metaPath)
				if err != nil {
					return fmt.Errorf("resolve metadata path: %w", err)
				}
				job.MetadataPath = expanded
			}

			out, err := mgr.Run(cmd.Context(), job)
			bar.finish()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Saved %s\n", out.Path)
			details := fmt.Sprintf("%d frames, %s", out.Frames, humanize.IBytes(uint64(out.Bytes)))
			if out.Strategy != "" {
				details += ", strategy " + out.Strategy
			}
			fmt.Fprintf(w, "  %s in %s\n", details, out.Duration.Round(time.Millisecond))
			if out.Renamed {
				fmt.Fprintln(w, "  A file with the same name already existed; a numbered name was used")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&metaPath, "meta", "m", "", "Metadata JSON with frame delays (API response or animation.json)")
	cmd.Flags().StringVarP(&author, "author", "a", "", "Artist name used in the output file name")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Artwork title used in the output file name")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: gif or zip (default from config)")
	cmd.Flags().BoolVar(&noBar, "no-progress", false, "Disable the progress bar")
	return cmd
}
