package daily

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"health-analyzer/healthexport"
)

// SleepNight is the time spent per stage for the night ending on Date.
type SleepNight struct {
	Date        civil.Date `json:"date"`
	InBedHours  float64    `json:"in_bed_hours"`
	AsleepHours float64    `json:"asleep_hours"`
	AwakeHours  float64    `json:"awake_hours"`
	CoreHours   float64    `json:"core_hours"`
	DeepHours   float64    `json:"deep_hours"`
	REMHours    float64    `json:"rem_hours"`
}

// TotalSleepHours counts every asleep stage; in-bed and awake time are excluded.
func (n SleepNight) TotalSleepHours() float64 {
	return n.AsleepHours + n.CoreHours + n.DeepHours + n.REMHours
}

// NightGap is the longest break between sleep stages of the same night.
const NightGap = 4 * time.Hour

// SleepStages totals sleep analysis samples per night. Stages are grouped
// into one night while each starts within NightGap of the latest end seen so
// far, and the night is dated by the local date of that latest end, so a
// night spanning midnight lands on the morning it finished. Nights ending on
// the same date are merged.
func SleepStages(samples []healthexport.Sample, loc *time.Location) []SleepNight {
	var stages []healthexport.Sample
	for _, s := range samples {
		if s.Type == healthexport.MetricSleepAnalysis {
			stages = append(stages, s)
		}
	}
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Start.Before(stages[j].Start) })

	nights := make(map[civil.Date]*SleepNight)
	flush := func(group []healthexport.Sample, end time.Time) {
		if len(group) == 0 {
			return
		}
		d := DateOf(end, loc)
		n, ok := nights[d]
		if !ok {
			n = &SleepNight{Date: d}
			nights[d] = n
		}
		for _, s := range group {
			n.add(s)
		}
	}

	var group []healthexport.Sample
	var end time.Time
	for _, s := range stages {
		if len(group) > 0 && s.Start.Sub(end) > NightGap {
			flush(group, end)
			group = nil
		}
		if len(group) == 0 || s.End.After(end) {
			end = s.End
		}
		group = append(group, s)
	}
	flush(group, end)

	out := make([]SleepNight, 0, len(nights))
	for _, n := range nights {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (n *SleepNight) add(s healthexport.Sample) {
	hours := s.End.Sub(s.Start).Hours()
	switch int(s.Value) {
	case healthexport.SleepInBed:
		n.InBedHours += hours
	case healthexport.SleepAsleep:
		n.AsleepHours += hours
	case healthexport.SleepAwake:
		n.AwakeHours += hours
	case healthexport.SleepCore:
		n.CoreHours += hours
	case healthexport.SleepDeep:
		n.DeepHours += hours
	case healthexport.SleepREM:
		n.REMHours += hours
	}
}

// TotalSleepSeries turns nights into a daily series of total sleep hours.
func TotalSleepSeries(nights []SleepNight) []Summary {
	out := make([]Summary, 0, len(nights))
	for _, n := range nights {
		out = append(out, Summary{
			Date:   n.Date,
			Metric: "total_sleep_hours",
			Value:  n.TotalSleepHours(),
			Count:  1,
		})
	}
	return out
}
