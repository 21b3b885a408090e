package daily

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Range is a trailing window of calendar days.
type Range int

const (
	RangeAll Range = iota
	RangeLastWeek
	RangeLastMonth
	RangeLast3Months
	RangeLast6Months
	RangeLastYear
)

var rangeDays = map[Range]int{
	RangeLastWeek:    7,
	RangeLastMonth:   30,
	RangeLast3Months: 90,
	RangeLast6Months: 180,
	RangeLastYear:    365,
}

var rangeNames = map[Range]string{
	RangeAll:         "all",
	RangeLastWeek:    "last_week",
	RangeLastMonth:   "last_month",
	RangeLast3Months: "last_3_months",
	RangeLast6Months: "last_6_months",
	RangeLastYear:    "last_year",
}

func (r Range) String() string {
	if s, ok := rangeNames[r]; ok {
		return s
	}
	return fmt.Sprintf("range(%d)", int(r))
}

// Days is the window length; zero means unbounded.
func (r Range) Days() int { return rangeDays[r] }

// ParseRange accepts the names produced by Range.String and the short forms 7d, 30d, 90d, 180d and 365d.
func ParseRange(s string) (Range, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RangeAll, nil
	}
	for r, name := range rangeNames {
		if name == s {
			return r, nil
		}
	}
	for r, days := range rangeDays {
		if s == fmt.Sprintf("%dd", days) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown range %q", s)
}

// Bounds returns the first and last date the window keeps when it ends at anchor.
func (r Range) Bounds(anchor civil.Date) (civil.Date, civil.Date) {
	return anchor.AddDays(1 - r.Days()), anchor
}

// WithinRange keeps the entries of a date-sorted series that fall in the
// window of r ending at anchor. A nil anchor uses the last entry's date.
func WithinRange(series []Summary, r Range, anchor *civil.Date) []Summary {
	if r.Days() == 0 || len(series) == 0 {
		return series
	}
	end := series[len(series)-1].Date
	if anchor != nil {
		end = *anchor
	}
	from, to := r.Bounds(end)
	out := make([]Summary, 0, len(series))
	for _, s := range series {
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out
}
