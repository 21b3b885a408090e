package daily

import (
	"time"

	"cloud.google.com/go/civil"
)

const (
	// DefaultMaxGap is the longest run of missing days Interpolate fills.
	DefaultMaxGap = 14

	// DefaultWindow is the trailing moving-average length in days.
	DefaultWindow = 7
)

// Interpolate fills runs of at most maxGap missing days between two entries
// linearly. Longer runs stay absent. Filled entries have Count 0.
func Interpolate(series []Summary, maxGap int) []Summary {
	if len(series) < 2 {
		return series
	}
	out := make([]Summary, 0, len(series))
	for i, cur := range series {
		if i > 0 {
			prev := series[i-1]
			span := cur.Date.DaysSince(prev.Date)
			missing := span - 1
			if missing > 0 && missing <= maxGap {
				step := (cur.Value - prev.Value) / float64(span)
				for k := 1; k < span; k++ {
					out = append(out, Summary{
						Date:   prev.Date.AddDays(k),
						Metric: cur.Metric,
						Value:  prev.Value + step*float64(k),
					})
				}
			}
		}
		out = append(out, cur)
	}
	return out
}

// MovingAverage replaces each value with the mean of the entries dated within
// the trailing window of calendar days ending on that entry's date.
func MovingAverage(series []Summary, window int) []Summary {
	if window <= 1 {
		return series
	}
	out := make([]Summary, len(series))
	lo := 0
	sum := 0.0
	for i, cur := range series {
		sum += cur.Value
		for cur.Date.DaysSince(series[lo].Date) >= window {
			sum -= series[lo].Value
			lo++
		}
		out[i] = cur
		out[i].Value = sum / float64(i-lo+1)
	}
	return out
}

// Period is a rollup bucket.
type Period int

const (
	PeriodWeek Period = iota
	PeriodMonth
)

// PeriodStart returns the first day of the bucket holding d. Weeks start on Monday.
func (p Period) PeriodStart(d civil.Date) civil.Date {
	if p == PeriodMonth {
		return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	}
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Rollup averages a daily series per period. Count sums the underlying counts.
func Rollup(series []Summary, p Period) []Summary {
	var out []Summary
	n := 0
	for _, cur := range series {
		start := p.PeriodStart(cur.Date)
		if len(out) == 0 || out[len(out)-1].Date != start {
			if len(out) > 0 {
				out[len(out)-1].Value /= float64(n)
			}
			out = append(out, Summary{Date: start, Metric: cur.Metric})
			n = 0
		}
		last := &out[len(out)-1]
		last.Value += cur.Value
		last.Count += cur.Count
		n++
	}
	if len(out) > 0 {
		out[len(out)-1].Value /= float64(n)
	}
	return out
}
