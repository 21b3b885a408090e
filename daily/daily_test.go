package daily

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-analyzer/healthexport"
)

var plusOne = time.FixedZone("+0100", 3600)

func hr(at time.Time, v float64) healthexport.Sample {
	return healthexport.Sample{Type: healthexport.MetricHeartRate, Value: v, Start: at, End: at, Unit: healthexport.UnitBPM}
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func series(metric string, values map[string]float64) []Summary {
	var out []Summary
	for d, v := range values {
		out = append(out, Summary{Date: date(d), Metric: metric, Value: v, Count: 1})
	}
	sortByDate(out)
	return out
}

func TestAggregateMeanSingleDay(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, plusOne)
	got := Aggregate([]healthexport.Sample{hr(day, 120), hr(day.Add(time.Hour), 140)}, healthexport.MetricHeartRate, AggregateOptions{})

	require.Len(t, got, 1)
	assert.Equal(t, date("2024-03-01"), got[0].Date)
	assert.Equal(t, 130.0, got[0].Value)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "heart_rate", got[0].Metric)
}

func TestAggregateUsesLocalCalendarDate(t *testing.T) {
	// 00:30 at +0100 is still the previous day in UTC.
	early := time.Date(2024, 3, 2, 0, 30, 0, 0, plusOne)
	samples := []healthexport.Sample{hr(early, 100)}

	own := Aggregate(samples, healthexport.MetricHeartRate, AggregateOptions{})
	require.Len(t, own, 1)
	assert.Equal(t, date("2024-03-02"), own[0].Date)

	utc := Aggregate(samples, healthexport.MetricHeartRate, AggregateOptions{Location: time.UTC})
	require.Len(t, utc, 1)
	assert.Equal(t, date("2024-03-01"), utc[0].Date)
}

func TestAggregateFuncs(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	samples := []healthexport.Sample{
		{Type: healthexport.MetricStepCount, Value: 1000, Start: day, End: day.Add(30 * time.Minute)},
		{Type: healthexport.MetricStepCount, Value: 500, Start: day.Add(2 * time.Hour), End: day.Add(3 * time.Hour)},
		{Type: healthexport.MetricStepCount, Value: 700, Start: day.Add(24 * time.Hour), End: day.Add(25 * time.Hour)},
		hr(day, 60),
	}
	cases := map[Func][]float64{
		FuncSum:           {1500, 700},
		FuncCount:         {2, 1},
		FuncMax:           {1000, 700},
		FuncMean:          {750, 700},
		FuncDurationHours: {1.5, 1},
	}
	for f, want := range cases {
		t.Run(f.String(), func(t *testing.T) {
			got := Aggregate(samples, healthexport.MetricStepCount, AggregateOptions{Func: f})
			require.Len(t, got, 2)
			assert.InDelta(t, want[0], got[0].Value, 1e-9)
			assert.InDelta(t, want[1], got[1].Value, 1e-9)
			assert.True(t, got[0].Date.Before(got[1].Date))
		})
	}
}

func TestAggregateOmitsEmptyDays(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	got := Aggregate([]healthexport.Sample{hr(d1, 60), hr(d1.AddDate(0, 0, 3), 70)}, healthexport.MetricHeartRate, AggregateOptions{})
	require.Len(t, got, 2)
	assert.Equal(t, date("2024-03-04"), got[1].Date)
	assert.Empty(t, Aggregate(nil, healthexport.MetricHeartRate, AggregateOptions{}))
}

func TestDefaultFunc(t *testing.T) {
	assert.Equal(t, FuncSum, DefaultFunc(healthexport.MetricStepCount))
	assert.Equal(t, FuncSum, DefaultFunc(healthexport.MetricDistanceCycling))
	assert.Equal(t, FuncMean, DefaultFunc(healthexport.MetricHeartRate))
	assert.Equal(t, FuncDurationHours, DefaultFunc(healthexport.MetricSleepAnalysis))
}

func TestParseFuncAndRange(t *testing.T) {
	f, err := ParseFunc("Max")
	require.NoError(t, err)
	assert.Equal(t, FuncMax, f)
	_, err = ParseFunc("median")
	assert.Error(t, err)

	r, err := ParseRange("last_3_months")
	require.NoError(t, err)
	assert.Equal(t, RangeLast3Months, r)
	r, err = ParseRange("365d")
	require.NoError(t, err)
	assert.Equal(t, RangeLastYear, r)
	r, err = ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeAll, r)
	_, err = ParseRange("fortnight")
	assert.Error(t, err)
}

func TestWithinRangeAnchorsAtLatest(t *testing.T) {
	s := series("m", map[string]float64{
		"2024-02-20": 1,
		"2024-02-23": 2,
		"2024-02-24": 3,
		"2024-03-01": 4,
	})
	got := WithinRange(s, RangeLastWeek, nil)
	require.Len(t, got, 2, "seven days ending 2024-03-01 start on 2024-02-24")
	assert.Equal(t, date("2024-02-24"), got[0].Date)

	anchor := date("2024-02-23")
	got = WithinRange(s, RangeLastWeek, &anchor)
	require.Len(t, got, 2)
	assert.Equal(t, date("2024-02-20"), got[0].Date)

	assert.Len(t, WithinRange(s, RangeAll, nil), 4)
}

func TestInterpolateFillsShortGapsOnly(t *testing.T) {
	s := series("vo2max", map[string]float64{
		"2024-01-01": 40,
		"2024-01-05": 44,
		"2024-02-01": 50,
	})
	got := Interpolate(s, DefaultMaxGap)
	require.Len(t, got, 6)
	assert.Equal(t, date("2024-01-02"), got[1].Date)
	assert.InDelta(t, 41.0, got[1].Value, 1e-9)
	assert.Zero(t, got[1].Count)
	assert.InDelta(t, 43.0, got[3].Value, 1e-9)
	assert.Equal(t, date("2024-02-01"), got[5].Date, "a 26 day gap stays open")
}

func TestInterpolateBoundary(t *testing.T) {
	s := series("m", map[string]float64{"2024-01-01": 0, "2024-01-16": 15})
	assert.Len(t, Interpolate(s, 14), 16, "exactly 14 missing days are filled")
	s = series("m", map[string]float64{"2024-01-01": 0, "2024-01-17": 16})
	assert.Len(t, Interpolate(s, 14), 2)
}

func TestMovingAverageIsTrailingCalendarWindow(t *testing.T) {
	s := series("m", map[string]float64{
		"2024-01-01": 1,
		"2024-01-02": 2,
		"2024-01-03": 3,
		"2024-01-08": 8,
		"2024-01-09": 9,
	})
	got := MovingAverage(s, 7)
	require.Len(t, got, 5)
	assert.InDelta(t, 1.0, got[0].Value, 1e-9)
	assert.InDelta(t, 2.0, got[2].Value, 1e-9)
	// 2024-01-08 covers 01-02..01-08.
	assert.InDelta(t, (2.0+3+8)/3, got[3].Value, 1e-9)
	assert.InDelta(t, (3.0+8+9)/3, got[4].Value, 1e-9)
	assert.Equal(t, 1.0, s[0].Value, "input is untouched")
}

func TestRollup(t *testing.T) {
	s := series("m", map[string]float64{
		"2024-01-01": 2, // Monday
		"2024-01-07": 4, // Sunday
		"2024-01-08": 10,
		"2024-02-02": 6,
	})
	weeks := Rollup(s, PeriodWeek)
	require.Len(t, weeks, 3)
	assert.Equal(t, date("2024-01-01"), weeks[0].Date)
	assert.Equal(t, 3.0, weeks[0].Value)
	assert.Equal(t, 2, weeks[0].Count)
	assert.Equal(t, date("2024-01-29"), weeks[2].Date)

	months := Rollup(s, PeriodMonth)
	require.Len(t, months, 2)
	assert.InDelta(t, 16.0/3, months[0].Value, 1e-9)
	assert.Equal(t, date("2024-02-01"), months[1].Date)
}

func TestSleepStages(t *testing.T) {
	night := time.Date(2024, 3, 1, 23, 0, 0, 0, plusOne)
	stage := func(code int, from, to time.Duration) healthexport.Sample {
		return healthexport.Sample{
			Type:  healthexport.MetricSleepAnalysis,
			Value: float64(code),
			Start: night.Add(from),
			End:   night.Add(to),
		}
	}
	samples := []healthexport.Sample{
		stage(healthexport.SleepInBed, 0, 8*time.Hour),
		stage(healthexport.SleepCore, 30*time.Minute, 3*time.Hour),
		stage(healthexport.SleepDeep, 3*time.Hour, 4*time.Hour),
		stage(healthexport.SleepAwake, 4*time.Hour, 4*time.Hour+15*time.Minute),
		stage(healthexport.SleepREM, 4*time.Hour+15*time.Minute, 5*time.Hour+45*time.Minute),
		stage(healthexport.SleepAsleep, 5*time.Hour+45*time.Minute, 7*time.Hour+45*time.Minute),
	}

	nights := SleepStages(samples, nil)
	require.Len(t, nights, 1)
	n := nights[0]
	assert.Equal(t, date("2024-03-02"), n.Date)
	assert.InDelta(t, 8.0, n.InBedHours, 1e-9)
	assert.InDelta(t, 0.25, n.AwakeHours, 1e-9)
	assert.InDelta(t, 2.5+1+1.5+2, n.TotalSleepHours(), 1e-9)

	total := TotalSleepSeries(nights)
	require.Len(t, total, 1)
	assert.InDelta(t, 7.0, total[0].Value, 1e-9)
}

func TestSleepStagesKeepNightTogetherAcrossMidnight(t *testing.T) {
	evening := time.Date(2024, 3, 1, 23, 0, 0, 0, plusOne)
	stage := func(code int, from, to time.Duration) healthexport.Sample {
		return healthexport.Sample{
			Type:  healthexport.MetricSleepAnalysis,
			Value: float64(code),
			Start: evening.Add(from),
			End:   evening.Add(to),
		}
	}
	samples := []healthexport.Sample{
		// Next night, listed first to check ordering.
		stage(healthexport.SleepCore, 24*time.Hour, 31*time.Hour),
		stage(healthexport.SleepCore, 0, 50*time.Minute),
		stage(healthexport.SleepDeep, 70*time.Minute, 7*time.Hour),
	}

	nights := SleepStages(samples, nil)
	require.Len(t, nights, 2)
	assert.Equal(t, date("2024-03-02"), nights[0].Date)
	assert.InDelta(t, 50.0/60, nights[0].CoreHours, 1e-9)
	assert.InDelta(t, 5+50.0/60, nights[0].DeepHours, 1e-9)
	assert.Equal(t, date("2024-03-03"), nights[1].Date)
	assert.InDelta(t, 7.0, nights[1].CoreHours, 1e-9)
}

func TestWorkloadFromWorkouts(t *testing.T) {
	km := func(v float64) *float64 { return &v }
	day := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	workouts := []healthexport.Workout{
		{Start: day.AddDate(0, 0, 2), Duration: 20 * time.Minute, TotalDistanceKM: km(3)},
		{Start: day, Duration: 30 * time.Minute, TotalDistanceKM: km(5)},
		{Start: day.Add(10 * time.Hour), Duration: 45 * time.Minute},
	}

	distance := WorkloadFromWorkouts(workouts, WorkloadDistance, nil)
	require.Len(t, distance, 2)
	assert.Equal(t, date("2024-03-01"), distance[0].Date)
	assert.Equal(t, 5.0, distance[0].Value)
	assert.Equal(t, 1, distance[0].Count, "a workout without distance adds no load")

	duration := WorkloadFromWorkouts(workouts, WorkloadDuration, nil)
	require.Len(t, duration, 2)
	assert.Equal(t, 75.0, duration[0].Value)
	assert.Equal(t, "workload_minutes", duration[0].Metric)
}
