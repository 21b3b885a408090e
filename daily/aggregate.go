// Package daily reduces samples to one value per local calendar date.
package daily

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"health-analyzer/healthexport"
)

// Func is a per-day reduction.
type Func int

const (
	FuncMean Func = iota
	FuncSum
	FuncCount
	FuncMax
	FuncDurationHours
)

var funcNames = map[Func]string{
	FuncMean:          "mean",
	FuncSum:           "sum",
	FuncCount:         "count",
	FuncMax:           "max",
	FuncDurationHours: "duration_hours",
}

func (f Func) String() string {
	if s, ok := funcNames[f]; ok {
		return s
	}
	return fmt.Sprintf("func(%d)", int(f))
}

// ParseFunc accepts the names produced by Func.String.
func ParseFunc(s string) (Func, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range funcNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation %q", s)
}

// DefaultFunc sums count-like metrics, totals sleep duration and averages the rest.
func DefaultFunc(metric healthexport.MetricType) Func {
	switch metric {
	case healthexport.MetricStepCount,
		healthexport.MetricActiveEnergy,
		healthexport.MetricBasalEnergy,
		healthexport.MetricExerciseTime,
		healthexport.MetricStandTime,
		healthexport.MetricDistanceWalkingRunning,
		healthexport.MetricDistanceCycling,
		healthexport.MetricDistanceSwimming:
		return FuncSum
	case healthexport.MetricSleepAnalysis:
		return FuncDurationHours
	default:
		return FuncMean
	}
}

// Summary is one day's aggregate. Days without data have no Summary.
type Summary struct {
	Date   civil.Date `json:"date"`
	Metric string     `json:"metric"`
	Value  float64    `json:"value"`
	Count  int        `json:"count"`
}

// AggregateOptions controls Aggregate.
type AggregateOptions struct {
	Func  Func
	Range Range

	// Anchor ends the range window. Nil anchors at the latest day with data.
	Anchor *civil.Date

	// Location assigns calendar dates. Nil keeps each sample's own offset.
	Location *time.Location
}

type accumulator struct {
	sum   float64
	max   float64
	hours float64
	count int
}

// Aggregate groups samples of metric by the local calendar date of their
// start and reduces each day with opts.Func. The result is sorted by date.
func Aggregate(samples []healthexport.Sample, metric healthexport.MetricType, opts AggregateOptions) []Summary {
	days := make(map[civil.Date]*accumulator)
	for _, s := range samples {
		if s.Type != metric {
			continue
		}
		d := DateOf(s.Start, opts.Location)
		acc, ok := days[d]
		if !ok {
			acc = &accumulator{max: math.Inf(-1)}
			days[d] = acc
		}
		acc.sum += s.Value
		acc.max = math.Max(acc.max, s.Value)
		acc.hours += s.End.Sub(s.Start).Hours()
		acc.count++
	}

	out := make([]Summary, 0, len(days))
	for d, acc := range days {
		out = append(out, Summary{
			Date:   d,
			Metric: metric.String(),
			Value:  reduce(opts.Func, acc),
			Count:  acc.count,
		})
	}
	sortByDate(out)
	return WithinRange(out, opts.Range, opts.Anchor)
}

func reduce(f Func, acc *accumulator) float64 {
	switch f {
	case FuncSum:
		return acc.sum
	case FuncCount:
		return float64(acc.count)
	case FuncMax:
		return acc.max
	case FuncDurationHours:
		return acc.hours
	default:
		return acc.sum / float64(acc.count)
	}
}

// DateOf returns the calendar date of t in loc, or in t's own zone when loc is nil.
func DateOf(t time.Time, loc *time.Location) civil.Date {
	if loc != nil {
		t = t.In(loc)
	}
	return civil.DateOf(t)
}

func sortByDate(series []Summary) {
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
}
