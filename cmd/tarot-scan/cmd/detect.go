package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/config"
	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

func newDetectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect SCAN",
		Short: "Detect and extract the cards on a flatbed scan",
		Long: `Detect every card on a flatbed scan, rectify each one to an upright crop and
record the crops in the deck manifest in reading order (rows top to bottom,
left to right within a row).

Without --scan-id the next free scan_NNNN identifier of the deck is used.
With --register-scan a scan record (file, timestamp, dpi, device) is
appended to the manifest before extraction.

Examples:
  tarot-scan detect scan.png
  tarot-scan detect scan.png --register-scan --dpi 600
  tarot-scan detect scan.png --debug --format json`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetect(cmd, args[0])
		},
	}

	defaults := config.DefaultConfig()
	f := cmd.Flags()
	f.String("scan-id", "", "scan identifier (default: next free scan_NNNN)")
	f.Bool("register-scan", false, "append a scan record to the manifest")
	f.Float64("min-area", defaults.Detection.MinAreaFraction, "minimum card area as a fraction of the scan")
	f.Float64("max-area", defaults.Detection.MaxAreaFraction, "maximum card area as a fraction of the scan")
	f.Float64("epsilon", defaults.Detection.EpsilonFraction, "polygon approximation tolerance as a fraction of the perimeter")
	f.Int("height", defaults.Output.TargetHeight, "height of every crop in pixels (0 keeps the measured size)")
	f.Bool("debug", false, "write an annotated copy of the scan to the deck's debug directory")
	f.Int("dpi", defaults.Scan.DPI, "scan resolution recorded with --register-scan")
	f.String("device", "", "scanner device recorded with --register-scan (env SANE_DEVICE)")
	f.StringP("format", "f", outputFormatText, "output format (text, json, csv)")

	a.bindFlags(cmd, map[string]string{
		"min-area": "detection.min_area_fraction",
		"max-area": "detection.max_area_fraction",
		"epsilon":  "detection.epsilon_fraction",
		"height":   "output.target_height",
		"debug":    "output.debug",
		"dpi":      "scan.dpi",
		"device":   "scan.device",
		"format":   "output.format",
	})
	return cmd
}

func (a *app) runDetect(cmd *cobra.Command, scanPath string) error {
	if _, err := os.Stat(scanPath); err != nil {
		return fmt.Errorf("scan not found: %w", err)
	}
	cfg := a.cfg
	deck := pipeline.Deck{Dir: cfg.DeckDir()}

	scanID, _ := cmd.Flags().GetString("scan-id")
	if register, _ := cmd.Flags().GetBool("register-scan"); register {
		meta, err := deck.RegisterScan(scanPath, scanID, cfg.Scan.DPI, cfg.Scan.Device, time.Now())
		if err != nil {
			return err
		}
		scanID = meta.ScanID
		a.logger.Info("scan registered", "scan_id", scanID, "file", meta.File)
	}

	console := newConsoleObserver(cmd.ErrOrStderr())
	defer console.finish()
	ext, metrics, err := a.newExtractor(cfg.ToPipelineConfig(), console)
	if err != nil {
		return err
	}

	res, err := ext.Extract(cmd.Context(), pipeline.ScanRequest{
		ScanPath: scanPath,
		ScanID:   scanID,
		DeckDir:  deck.Dir,
	})
	a.writeMetrics(metrics)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return printResult(cmd.OutOrStdout(), res, cfg.Output.Format)
}

// newExtractor builds an extractor that reports to the given console
// observer (may be nil) and to the debug log. Metrics are collected only
// when a textfile is configured.
func (a *app) newExtractor(pcfg pipeline.Config, console pipeline.Observer) (*pipeline.Extractor, *pipeline.Metrics, error) {
	var metrics *pipeline.Metrics
	if a.cfg.Metrics.Textfile != "" {
		metrics = pipeline.NewMetrics()
	}
	obs := pipeline.NewMultiObserver(console, pipeline.NewLogObserver(a.logger, slog.LevelDebug))
	ext, err := pipeline.NewExtractor(pcfg,
		pipeline.WithObserver(obs),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return ext, metrics, nil
}

func (a *app) writeMetrics(m *pipeline.Metrics) {
	if m == nil {
		return
	}
	if err := m.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("metrics not written", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}

func printResult(w io.Writer, res *pipeline.ExtractionResult, format string) error {
	var (
		out string
		err error
	)
	switch format {
	case outputFormatJSON:
		out, err = pipeline.ToJSON(res)
	case outputFormatCSV:
		crops := make([]manifest.CardCropMeta, len(res.Cards))
		for i, c := range res.Cards {
			crops[i] = c.Meta
		}
		out, err = pipeline.ToCSV(crops)
	default:
		out, err = pipeline.ToPlainText(res)
	}
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(out, "\n"))
	return err
}
