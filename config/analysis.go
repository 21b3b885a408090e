package config

import (
	"fmt"
	"log/slog"
	"strings"

	healthnotes "health-analyzer"
	"health-analyzer/daily"
	"health-analyzer/trend"
)

// ParseWorkload accepts "distance" and "duration".
func ParseWorkload(s string) (daily.WorkloadKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "distance", "km":
		return daily.WorkloadDistance, nil
	case "duration", "minutes":
		return daily.WorkloadDuration, nil
	}
	return 0, fmt.Errorf("unknown workload %q (expected distance|duration)", s)
}

// AnalysisConfig resolves the string settings into an analysis configuration.
func (c Config) AnalysisConfig(logger *slog.Logger) (healthnotes.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return healthnotes.Config{}, fmt.Errorf("timezone: %w", err)
	}
	r, err := daily.ParseRange(c.Range)
	if err != nil {
		return healthnotes.Config{}, err
	}
	workload, err := ParseWorkload(c.Workload)
	if err != nil {
		return healthnotes.Config{}, err
	}
	return healthnotes.Config{
		Location:          loc,
		AssociationWindow: c.AssociationWindow,
		TSB: trend.TSBConfig{
			FitnessDays: float64(c.FitnessDays),
			FatigueDays: float64(c.FatigueDays),
		},
		Workload: workload,
		Range:    r,
		Logger:   logger,
	}, nil
}
