package trend

import (
	"math"

	"cloud.google.com/go/civil"

	"health-analyzer/daily"
)

// TSBConfig holds the impulse-response time constants in days.
type TSBConfig struct {
	FitnessDays float64
	FatigueDays float64

	// Until extends the series with rest days through this date.
	Until *civil.Date
}

// DefaultTSBConfig uses the conventional 42-day fitness and 7-day fatigue constants.
func DefaultTSBConfig() TSBConfig {
	return TSBConfig{FitnessDays: 42, FatigueDays: 7}
}

// StressPoint is one day of the fitness/fatigue model.
type StressPoint struct {
	Date    civil.Date `json:"date"`
	Load    float64    `json:"load"`
	Fitness float64    `json:"fitness"`
	Fatigue float64    `json:"fatigue"`
	TSB     float64    `json:"tsb"`
}

// TrainingStress runs the exponential fitness/fatigue model over every
// calendar day of the load series, both starting at zero. Each day decays the
// previous value by exp(-1/T) and adds the day's load weighted by the
// remainder. TSB is fitness minus fatigue on the same day.
func TrainingStress(series []daily.Summary, cfg TSBConfig) []StressPoint {
	def := DefaultTSBConfig()
	if cfg.FitnessDays <= 0 {
		cfg.FitnessDays = def.FitnessDays
	}
	if cfg.FatigueDays <= 0 {
		cfg.FatigueDays = def.FatigueDays
	}
	kFit := math.Exp(-1 / cfg.FitnessDays)
	kFat := math.Exp(-1 / cfg.FatigueDays)

	dates, loads := dense(series, cfg.Until)
	out := make([]StressPoint, len(dates))
	var fitness, fatigue float64
	for i, d := range dates {
		fitness = fitness*kFit + loads[i]*(1-kFit)
		fatigue = fatigue*kFat + loads[i]*(1-kFat)
		out[i] = StressPoint{
			Date:    d,
			Load:    loads[i],
			Fitness: fitness,
			Fatigue: fatigue,
			TSB:     fitness - fatigue,
		}
	}
	return out
}

// FormDescription returns a human-readable description of TSB.
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
