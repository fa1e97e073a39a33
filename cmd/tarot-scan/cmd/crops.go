package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/spf13/cobra"
)

func newCropsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crops",
		Short: "List the card crops recorded in the deck manifest",
		Long: `List the crop records of the active deck in manifest order.
With --pending only crops without a classification record are listed.

Examples:
  tarot-scan crops
  tarot-scan crops --pending --format json
  tarot-scan crops --scan scan_0002`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         a.runCrops,
	}

	f := cmd.Flags()
	f.Bool("pending", false, "only crops that have not been classified")
	f.String("scan", "", "only crops extracted from this scan id")
	f.StringP("format", "f", outputFormatText, "output format (text, json, csv)")

	a.bindFlags(cmd, map[string]string{"format": "output.format"})
	return cmd
}

func (a *app) runCrops(cmd *cobra.Command, _ []string) error {
	log := pipeline.Deck{Dir: a.cfg.DeckDir()}.Manifest()

	pending, _ := cmd.Flags().GetBool("pending")
	var (
		crops []manifest.CardCropMeta
		err   error
	)
	if pending {
		crops, err = log.PendingCrops()
	} else {
		crops, err = log.Crops()
	}
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if scanID, _ := cmd.Flags().GetString("scan"); scanID != "" {
		crops = filterByScan(crops, scanID)
	}

	w := cmd.OutOrStdout()
	switch a.cfg.Output.Format {
	case outputFormatJSON:
		if crops == nil {
			crops = []manifest.CardCropMeta{}
		}
		b, err := json.MarshalIndent(crops, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case outputFormatCSV:
		out, err := pipeline.ToCSV(crops)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	}

	if len(crops) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No crops")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CROP\tSCAN\tFILE\tBBOX")
	for _, c := range crops {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d,%d %dx%d\n", c.CropID, c.SourceScanID, c.File, c.BBox[0], c.BBox[1], c.BBox[2], c.BBox[3])
	}
	return tw.Flush()
}

func filterByScan(crops []manifest.CardCropMeta, scanID string) []manifest.CardCropMeta {
	var out []manifest.CardCropMeta
	for _, c := range crops {
		if c.SourceScanID == scanID {
			out = append(out, c)
		}
	}
	return out
}
