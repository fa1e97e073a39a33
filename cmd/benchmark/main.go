package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/MeKo-Tech/tarot-scan/internal/benchmark"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

func main() {
	var (
		iterations = flag.Int("iterations", 3, "Number of iterations per benchmark")
		height     = flag.Int("height", 1024, "Target crop height (0 keeps the measured size)")
		rows       = flag.Int("rows", 3, "Rows of the synthetic scan used when no scans are given")
		cols       = flag.Int("cols", 4, "Columns of the synthetic scan used when no scans are given")
		outputFile = flag.String("output", "", "Output file for CSV results (optional)")
		verbose    = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [SCAN...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Time the tarot-scan extraction stages on scans.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	fmt.Println("tarot-scan Extraction Benchmark")
	fmt.Println("===============================")
	fmt.Printf("GOOS: %s, GOARCH: %s, NumCPU: %d, Go: %s\n\n",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	cfg := pipeline.DefaultConfig()
	cfg.TargetCropHeight = *height

	suite := benchmark.NewSuite()
	if flag.NArg() == 0 {
		spec := testutil.GridScan(*rows, *cols, 600, 1020, 120, 200)
		label := fmt.Sprintf("synthetic_%dx%d", *rows, *cols)
		if err := benchmark.AddScanStages(suite, label, testutil.GenerateScan(spec), cfg); err != nil {
			log.Fatalf("Failed to set up benchmark: %v", err)
		}
		if *verbose {
			fmt.Printf("Generated %dx%d px scan with %d cards\n", spec.Width, spec.Height, len(spec.Cards))
		}
	}
	for _, path := range flag.Args() {
		img, meta, err := utils.LoadImage(path)
		if err != nil {
			log.Fatalf("Failed to load scan: %v", err)
		}
		label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := benchmark.AddScanStages(suite, label, img, cfg); err != nil {
			log.Fatalf("Failed to set up benchmark: %v", err)
		}
		if *verbose {
			fmt.Printf("Added scan: %s (%dx%d)\n", path, meta.Width, meta.Height)
		}
	}

	fmt.Printf("Running benchmarks with %d iterations per stage...\n\n", *iterations)
	suite.RunAll(*iterations)
	suite.WriteResults(os.Stdout)

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, suite.Results()); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

func saveResultsToFile(filename string, results []benchmark.Result) error {
	file, err := os.Create(filename) //nolint:gosec // G304: output path from flag
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintln(file, "Stage,Iterations,Total_ms,PerOp_ms,Alloc_KB_per_op,Error")
	for _, r := range results {
		errText := ""
		if r.Error != nil {
			errText = r.Error.Error()
		}
		_, _ = fmt.Fprintf(file, "%s,%d,%.2f,%.2f,%d,%q\n",
			r.Name,
			r.Iterations,
			float64(r.Duration.Nanoseconds())/1e6,
			float64(r.PerOp().Nanoseconds())/1e6,
			r.AllocatedPerOp()/1024,
			errText,
		)
	}
	return nil
}
