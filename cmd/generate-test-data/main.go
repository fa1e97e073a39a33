package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
)

// scanFixture pairs a synthetic scan with the cards it should yield.
type scanFixture struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	InputFile     string            `json:"input_file"`
	ExpectedCards int               `json:"expected_cards"`
	Corners       [][4][2]float64   `json:"corners,omitempty"`
	Spec          testutil.ScanSpec `json:"-"`
}

func fixtures() []scanFixture {
	rotated := testutil.ScanSpec{
		Width: 800, Height: 800,
		Cards: []testutil.CardSpec{{X: 300, Y: 230, W: 200, H: 340, Angle: 8, Caption: "XIII"}},
	}
	mixed := testutil.ScanSpec{
		Width: 1000, Height: 700,
		Cards: []testutil.CardSpec{
			{X: 80, Y: 90, W: 200, H: 340, Angle: -4, Caption: "0"},
			{X: 400, Y: 110, W: 200, H: 340, Angle: 3, Caption: "I"},
			{X: 720, Y: 80, W: 200, H: 340, Caption: "II"},
		},
	}
	single := testutil.ScanSpec{
		Width: 360, Height: 560,
		Cards: []testutil.CardSpec{{X: 60, Y: 80, W: 240, H: 400, Caption: "XVII"}},
	}

	return []scanFixture{
		{Name: "grid_2x3", Description: "Two rows of three upright cards", Spec: testutil.GridScan(2, 3, 200, 340, 80, 120)},
		{Name: "grid_3x4", Description: "Full flatbed of twelve cards", Spec: testutil.GridScan(3, 4, 200, 340, 80, 120)},
		{Name: "rotated_8", Description: "One card rotated by 8 degrees", Spec: rotated},
		{Name: "uneven_row", Description: "One row with slightly skewed cards", Spec: mixed},
		{Name: "single_card", Description: "Photo mostly filled by one card", Spec: single},
		{Name: "blank", Description: "Empty scanner bed", Spec: testutil.ScanSpec{Width: 600, Height: 600}},
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir           = flag.String("out", "testdata", "Output directory")
		generateImages   = flag.Bool("images", true, "Generate synthetic scans")
		generateFixtures = flag.Bool("fixtures", true, "Generate the expected-cards fixture file")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic flatbed scans for tarot-scan testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                     # Generate scans and fixtures\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false     # Generate only scans\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -out /tmp/scans     # Write somewhere else\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	slog.Info("Starting test data generation...", "out", *outDir)
	items := fixtures()

	if *generateImages {
		if err := generateScans(*outDir, items, *verbose); err != nil {
			slog.Error("Failed to generate scans", "error", err)
			os.Exit(1)
		}
		slog.Info("✓ Generated synthetic scans", "count", len(items))
	}

	if *generateFixtures {
		path, err := writeFixtures(*outDir, items)
		if err != nil {
			slog.Error("Failed to generate test fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("✓ Generated test fixtures", "path", path)
	}

	slog.Info("Test data generation completed successfully!")
}

func generateScans(outDir string, items []scanFixture, verbose bool) error {
	for _, f := range items {
		path := filepath.Join(outDir, "scans", f.Name+".png")
		if err := testutil.WriteScanPNG(path, f.Spec); err != nil {
			return fmt.Errorf("failed to write scan %s: %w", f.Name, err)
		}
		if verbose {
			slog.Info("Wrote scan", "path", path, "width", f.Spec.Width, "height", f.Spec.Height, "cards", len(f.Spec.Cards))
		}
	}
	return nil
}

func writeFixtures(outDir string, items []scanFixture) (string, error) {
	for i := range items {
		f := &items[i]
		f.InputFile = filepath.ToSlash(filepath.Join("scans", f.Name+".png"))
		f.ExpectedCards = len(f.Spec.Cards)
		f.Corners = nil
		for _, c := range f.Spec.Cards {
			var q [4][2]float64
			for j, p := range c.Quad() {
				q[j] = [2]float64{p.X, p.Y}
			}
			f.Corners = append(f.Corners, q)
		}
	}

	dir := filepath.Join(outDir, "fixtures")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "scans.json")
	return path, os.WriteFile(path, data, 0o600)
}
