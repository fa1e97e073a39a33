package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/tarot-scan/internal/batch"
	"github.com/MeKo-Tech/tarot-scan/internal/config"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch PATH...",
		Short: "Extract the cards from many scans into one deck",
		Long: `Run detect over every scan image found in the given files and directories,
one scan after another. Directory contents are processed in name order, so
scan identifiers and crop numbers follow the file names.

Examples:
  tarot-scan batch scans/
  tarot-scan batch scans/ --recursive --register-scans
  tarot-scan batch scans/ --include 'page_*.png' --format csv -o report.csv`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args)
		},
	}

	defaults := config.DefaultConfig()
	f := cmd.Flags()
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", defaults.Batch.Include, "file name patterns to process")
	f.StringSlice("exclude", nil, "file name patterns to skip")
	f.Bool("continue-on-error", defaults.Batch.ContinueOnError, "keep going when a scan fails")
	f.Bool("register-scans", false, "append a scan record for every scan")
	f.Int("height", defaults.Output.TargetHeight, "height of every crop in pixels (0 keeps the measured size)")
	f.Bool("debug", false, "write annotated copies of the scans")
	f.StringP("format", "f", outputFormatText, "report format (text, json, csv)")
	f.StringP("output", "o", "", "write the report to this file instead of stdout")

	a.bindFlags(cmd, map[string]string{
		"recursive":         "batch.recursive",
		"include":           "batch.include",
		"exclude":           "batch.exclude",
		"continue-on-error": "batch.continue_on_error",
		"height":            "output.target_height",
		"debug":             "output.debug",
		"format":            "output.format",
	})
	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	ext, metrics, err := a.newExtractor(cfg.ToPipelineConfig(), nil)
	if err != nil {
		return err
	}

	register, _ := cmd.Flags().GetBool("register-scans")
	progress := newBatchProgress(cmd.ErrOrStderr())
	runner, err := batch.NewRunner(batch.Config{
		DeckDir:         cfg.DeckDir(),
		Recursive:       cfg.Batch.Recursive,
		IncludePatterns: cfg.Batch.Include,
		ExcludePatterns: cfg.Batch.Exclude,
		ContinueOnError: cfg.Batch.ContinueOnError,
		RegisterScans:   register,
		DPI:             cfg.Scan.DPI,
		Device:          cfg.Scan.Device,
	}, ext, batch.WithProgress(progress.update), batch.WithLogger(a.logger))
	if err != nil {
		return err
	}

	res, runErr := runner.ProcessBatch(cmd.Context(), args)
	progress.finish()
	a.writeMetrics(metrics)
	if errors.Is(runErr, batch.ErrNoScans) {
		printError(cmd.ErrOrStderr(), "No scan images found")
		return runErr
	}
	if res == nil {
		return runErr
	}

	outputFile, _ := cmd.Flags().GetString("output")
	if err := res.SaveResults(cmd.OutOrStdout(), cfg.Output.Format, outputFile); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	res.PrintStats(cmd.ErrOrStderr())
	if runErr != nil {
		return runErr
	}
	if failed := res.Failed(); failed > 0 {
		printError(cmd.ErrOrStderr(), "%d of %d scans failed", failed, len(res.Scans))
	}
	return nil
}
