package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"health-analyzer/config"
	"health-analyzer/observability"
	"health-analyzer/pipeline"
)

func main() {
	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	var tracks []string
	var (
		exportPath     = flag.String("export", "", "Path to the health export XML (export.xml)")
		outDir         = flag.String("out", "", "Output directory")
		format         = flag.String("format", defaults.OutputFormat, "Table format: parquet|csv")
		rangeName      = flag.String("range", defaults.Range, "Trailing window: all|last_week|last_month|last_3_months|last_6_months|last_year")
		timezone       = flag.String("tz", defaults.Timezone, "IANA zone for calendar dates (empty keeps recorded offsets)")
		window         = flag.Duration("window", defaults.AssociationWindow, "Track-to-workout association window")
		fitnessDays    = flag.Int("fitness-days", defaults.FitnessDays, "Fitness time constant in days")
		fatigueDays    = flag.Int("fatigue-days", defaults.FatigueDays, "Fatigue time constant in days")
		workload       = flag.String("workload", defaults.Workload, "Training load unit: distance|duration")
		includeSamples = flag.Bool("samples", defaults.IncludeSamples, "Also write samples.jsonl")
		overwrite      = flag.Bool("overwrite", defaults.Overwrite, "Allow writing into non-empty output directories")
		showMetrics    = flag.Bool("metrics", false, "Log pipeline counters at exit")
	)
	flag.Func("track", "GPX or FIT track file (repeatable)", func(v string) error {
		tracks = append(tracks, v)
		return nil
	})
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --export export.xml --out outdir [--track run.gpx ...] [--format parquet|csv]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*exportPath) == "" || strings.TrimSpace(*outDir) == "" {
		flag.Usage()
		os.Exit(2)
	}
	tracks = append(tracks, flag.Args()...)

	logger := observability.NewLogger("health_analyze", observability.ParseLevel(defaults.LogLevel), os.Stderr)
	settings := defaults
	settings.Range = *rangeName
	settings.Timezone = *timezone
	settings.AssociationWindow = *window
	settings.FitnessDays = *fitnessDays
	settings.FatigueDays = *fatigueDays
	settings.Workload = *workload
	analysisCfg, err := settings.AnalysisConfig(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(2)
	}

	var metrics *observability.Metrics
	if *showMetrics {
		metrics = observability.NewMetrics()
	}

	result, err := pipeline.Run(pipeline.Options{
		ExportPath:     *exportPath,
		TrackPaths:     tracks,
		OutDir:         *outDir,
		Format:         *format,
		Overwrite:      *overwrite,
		IncludeSamples: *includeSamples,
		Config:         analysisCfg,
		Metrics:        metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "health_analyze failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("health_analyze complete\n")
	fmt.Printf("Output dir:          %s\n", result.OutputDir)
	fmt.Printf("manifest.json:       %s\n", result.ManifestPath)
	fmt.Printf("workouts.json:       %s\n", result.WorkoutsPath)
	fmt.Printf("tracks.json:         %s\n", result.TracksPath)
	fmt.Printf("daily summary:       %s\n", result.DailySummaryPath)
	fmt.Printf("training load:       %s\n", result.TrainingLoadPath)
	fmt.Printf("training summary:    %s\n", result.TrainingSummaryPath)
	if result.SamplesPath != "" {
		fmt.Printf("samples:             %s\n", result.SamplesPath)
	}
	fmt.Printf("aligned tables:      %d\n", len(result.AlignedPaths))
	for _, w := range result.Warnings {
		fmt.Printf("warning:             %s\n", w)
	}

	if err := metrics.LogSnapshot(logger); err != nil {
		logger.Error("gather metrics", "error", err)
	}
}
