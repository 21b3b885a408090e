// Package trend derives training-load and physiological indicators from daily series.
package trend

import (
	"cloud.google.com/go/civil"

	"health-analyzer/daily"
)

// Status qualifies a derived value.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusInsufficientHistory Status = "insufficient_history"
	StatusUnavailable         Status = "unavailable"
)

// Point is one derived daily value. Value is nil unless Status is ok.
type Point struct {
	Date   civil.Date `json:"date"`
	Value  *float64   `json:"value,omitempty"`
	Status Status     `json:"status"`
}

func okPoint(d civil.Date, v float64) Point {
	return Point{Date: d, Value: &v, Status: StatusOK}
}

// dense expands a series to every calendar day from its first to its last
// date, or to until when that is later. Missing days carry zero load;
// repeated dates are summed.
func dense(series []daily.Summary, until *civil.Date) ([]civil.Date, []float64) {
	if len(series) == 0 {
		return nil, nil
	}
	first, last := series[0].Date, series[0].Date
	byDate := make(map[civil.Date]float64, len(series))
	for _, s := range series {
		if s.Date.Before(first) {
			first = s.Date
		}
		if s.Date.After(last) {
			last = s.Date
		}
		byDate[s.Date] += s.Value
	}
	if until != nil && until.After(last) {
		last = *until
	}

	n := last.DaysSince(first) + 1
	dates := make([]civil.Date, n)
	loads := make([]float64, n)
	for i := range dates {
		dates[i] = first.AddDays(i)
		loads[i] = byDate[dates[i]]
	}
	return dates, loads
}
