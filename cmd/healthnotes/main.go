package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	healthnotes "health-analyzer"
	"health-analyzer/config"
	"health-analyzer/observability"
)

func main() {
	defaults, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(2)
	}

	var (
		jsonOut      = flag.Bool("json", false, "Emit full analysis as JSON")
		showWorkouts = flag.Bool("workouts", false, "Include a per-workout table in text output")
		rangeName    = flag.String("range", defaults.Range, "Trailing window: all|last_week|last_month|last_3_months|last_6_months|last_year")
		timezone     = flag.String("tz", defaults.Timezone, "IANA zone for calendar dates")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-export.xml> [track.gpx|track.fit ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	settings := defaults
	settings.Range = *rangeName
	settings.Timezone = *timezone
	cfg, err := settings.AnalysisConfig(observability.NewLogger("healthnotes", observability.ParseLevel(settings.LogLevel), os.Stderr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		os.Exit(2)
	}

	analysis, err := healthnotes.AnalyzeFile(flag.Arg(0), flag.Args()[1:], cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(analysis.Notes)
	if *showWorkouts && len(analysis.Workouts) > 0 {
		fmt.Println()
		fmt.Println("Workouts")
		for _, wa := range analysis.Workouts {
			distance := "     -"
			if d := wa.Distance.Value; d != nil {
				distance = fmt.Sprintf("%6.2f", *d)
			}
			hr := "  -"
			if wa.AvgHeartRate != nil {
				hr = fmt.Sprintf("%3.0f", *wa.AvgHeartRate)
			}
			fmt.Printf(
				"- %s | %-8s | %s km (%-11s) | %s bpm | %6.1f min\n",
				wa.Workout.Start.Format("2006-01-02 15:04"),
				wa.Workout.ActivityType,
				distance,
				wa.Distance.Source,
				hr,
				wa.Workout.Duration.Minutes(),
			)
		}
	}
}
