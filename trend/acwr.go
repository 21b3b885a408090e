package trend

import (
	"cloud.google.com/go/civil"

	"health-analyzer/daily"
)

const (
	// AcuteDays is the short load window.
	AcuteDays = 7

	// ChronicDays is the long load window. Its sum is scaled to one acute window.
	ChronicDays = 28
)

// Band classifies an acute:chronic workload ratio.
type Band string

const (
	BandUnderTrained Band = "under_trained"
	BandOptimal      Band = "optimal"
	BandElevated     Band = "elevated"
	BandHighRisk     Band = "high_risk"
)

// BandFor places a ratio: at most 0.8 is under-trained, below 1.3 optimal,
// below 1.5 elevated, anything higher high risk.
func BandFor(ratio float64) Band {
	switch {
	case ratio <= 0.8:
		return BandUnderTrained
	case ratio < 1.3:
		return BandOptimal
	case ratio < 1.5:
		return BandElevated
	default:
		return BandHighRisk
	}
}

// ACWR computes the acute:chronic workload ratio for every calendar day from
// the first to the last entry of a daily load series. Days absent from the
// series are rest days. The chronic window includes the day itself, so the
// first ChronicDays-1 days (indices 0 through 26) are insufficient history
// and day index 27, the 28th calendar day, is the first with a ratio.
// A zero chronic load makes the ratio unavailable.
func ACWR(series []daily.Summary) []Point {
	return acwr(series, nil)
}

// ACWRUntil is ACWR extended with rest days through until.
func ACWRUntil(series []daily.Summary, until civil.Date) []Point {
	return acwr(series, &until)
}

func acwr(series []daily.Summary, until *civil.Date) []Point {
	dates, loads := dense(series, until)
	out := make([]Point, len(dates))
	for i, d := range dates {
		if i+1 < ChronicDays {
			out[i] = Point{Date: d, Status: StatusInsufficientHistory}
			continue
		}
		// Windows are summed per day so an emptied window is exactly zero.
		chronic := windowSum(loads, i, ChronicDays)
		if chronic <= 0 {
			out[i] = Point{Date: d, Status: StatusUnavailable}
			continue
		}
		acute := windowSum(loads, i, AcuteDays)
		out[i] = okPoint(d, acute/(chronic/(ChronicDays/AcuteDays)))
	}
	return out
}

// windowSum adds the n loads ending at index i.
func windowSum(loads []float64, i, n int) float64 {
	sum := 0.0
	for _, v := range loads[max(0, i-n+1) : i+1] {
		sum += v
	}
	return sum
}
