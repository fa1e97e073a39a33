package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/MeKo-Tech/tarot-scan/internal/config"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/spf13/cobra"
)

func newDetectSingleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect-single IMAGE",
		Short: "Crop the card from an image holding a single card",
		Long: `Crop the largest card from a photo or scan of one card and write it to
<outdir>/<name>_crop.png. Nothing is recorded in a deck manifest.

The card is expected to fill much of the image, so the area bounds default
to 30% and 99% of the image instead of the flatbed values.

Examples:
  tarot-scan detect-single photo.jpg
  tarot-scan detect-single photo.jpg --outdir crops --debug`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetectSingle(cmd, args[0])
		},
	}

	defaults := config.DefaultConfig()
	single := pipeline.SingleCardConfig().Detector.Filter
	f := cmd.Flags()
	f.StringP("outdir", "o", ".", "directory for the crop and debug image")
	f.Float64("min-area", single.MinAreaFraction, "minimum card area as a fraction of the image")
	f.Float64("max-area", single.MaxAreaFraction, "maximum card area as a fraction of the image")
	f.Int("height", defaults.Output.TargetHeight, "height of the crop in pixels (0 keeps the measured size)")
	f.Bool("debug", false, "also write <name>_debug.png with the detection drawn on the image")

	a.bindFlags(cmd, map[string]string{
		"height": "output.target_height",
		"debug":  "output.debug",
	})
	return cmd
}

func (a *app) runDetectSingle(cmd *cobra.Command, imagePath string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("image not found: %w", err)
	}
	outDir, _ := cmd.Flags().GetString("outdir")

	pcfg := a.cfg.ToPipelineConfig()
	pcfg.Detector.Filter.MinAreaFraction, _ = cmd.Flags().GetFloat64("min-area")
	pcfg.Detector.Filter.MaxAreaFraction, _ = cmd.Flags().GetFloat64("max-area")

	ext, metrics, err := a.newExtractor(pcfg, nil)
	if err != nil {
		return err
	}
	out, err := ext.ExtractSingle(cmd.Context(), imagePath, outDir)
	a.writeMetrics(metrics)
	if errors.Is(err, pipeline.ErrNoCardFound) {
		printError(cmd.ErrOrStderr(), "No card found in %s", imagePath)
	}
	if err != nil {
		return err
	}

	successColor.Fprintf(cmd.ErrOrStderr(), "✓ Saved crop\n")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
