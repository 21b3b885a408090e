package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"health-analyzer/config"
	"health-analyzer/healthexport"
	"health-analyzer/observability"
)

func main() {
	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	var (
		outDir    = flag.String("out-dir", "", "Output directory for manifest.json, samples.jsonl and workouts.json")
		overwrite = flag.Bool("overwrite", defaults.Overwrite, "Allow writing to non-empty output directories")
		types     = flag.String("types", "", "Comma-separated metric names to keep, e.g. heart_rate,vo2max (default all)")
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-export.xml>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	var keep []healthexport.MetricType
	for _, name := range strings.Split(*types, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := healthexport.ParseMetric(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -types: %v\n", err)
			os.Exit(2)
		}
		keep = append(keep, m)
	}

	inputPath := flag.Arg(0)
	if strings.TrimSpace(*outDir) == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		*outDir = filepath.Join(".", "exports", base+"_"+healthexport.ExportFormatVersion)
	}

	result, err := healthexport.ExportFile(inputPath, *outDir, healthexport.ExportOptions{
		Overwrite: *overwrite,
		Types:     keep,
		Logger:    observability.NewLogger("healthexport", observability.ParseLevel(defaults.LogLevel), os.Stderr),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Export complete\n")
	fmt.Printf("Output dir: %s\n", result.OutputDir)
	fmt.Printf("Manifest:   %s\n", result.ManifestPath)
	fmt.Printf("Samples:    %s\n", result.SamplesPath)
	fmt.Printf("Workouts:   %s\n", result.WorkoutsPath)
	fmt.Printf("Counts:     %d samples, %d workouts, %d skipped\n", result.SampleCount, result.WorkoutCount, result.SkippedCount)
	fmt.Printf("SHA-256:    %s\n", result.SourceSHA256)
}
