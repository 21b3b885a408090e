package trend

import (
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-analyzer/daily"
	"health-analyzer/healthexport"
)

var day0 = civil.Date{Year: 2024, Month: time.January, Day: 1}

func constantLoad(days int, v float64) []daily.Summary {
	out := make([]daily.Summary, days)
	for i := range out {
		out[i] = daily.Summary{Date: day0.AddDays(i), Value: v, Count: 1}
	}
	return out
}

func TestACWRConstantLoadIsOne(t *testing.T) {
	points := ACWR(constantLoad(60, 5))
	require.Len(t, points, 60)
	for i, p := range points {
		assert.Equal(t, day0.AddDays(i), p.Date)
		if i < ChronicDays-1 {
			assert.Equal(t, StatusInsufficientHistory, p.Status, "day %d", i)
			assert.Nil(t, p.Value)
			continue
		}
		require.Equal(t, StatusOK, p.Status, "day %d", i)
		assert.InDelta(t, 1.0, *p.Value, 1e-12)
	}
}

func TestACWRRestDaysAndZeroChronic(t *testing.T) {
	series := []daily.Summary{
		{Date: day0, Value: 10},
		{Date: day0.AddDays(40), Value: 10},
	}
	points := ACWR(series)
	require.Len(t, points, 41)

	require.Equal(t, StatusOK, points[27].Status)
	assert.Equal(t, 0.0, *points[27].Value)
	for i := 28; i < 40; i++ {
		assert.Equal(t, StatusUnavailable, points[i].Status, "day %d", i)
		assert.Nil(t, points[i].Value)
	}
	require.Equal(t, StatusOK, points[40].Status)
	assert.InDelta(t, 4.0, *points[40].Value, 1e-12)
}

func TestACWRSpikeAfterSteadyBlock(t *testing.T) {
	series := constantLoad(35, 5)
	// Double the last week.
	for i := 28; i < 35; i++ {
		series[i].Value = 10
	}
	points := ACWR(series)
	last := points[len(points)-1]
	require.Equal(t, StatusOK, last.Status)
	// acute 70, chronic (21*5 + 70) / 4
	assert.InDelta(t, 70/(175.0/4), *last.Value, 1e-12)
	assert.Equal(t, BandHighRisk, BandFor(*last.Value))
}

func TestACWRUntilExtendsWithRestDays(t *testing.T) {
	points := ACWRUntil(constantLoad(28, 5), day0.AddDays(34))
	require.Len(t, points, 35)
	last := points[34]
	require.Equal(t, StatusOK, last.Status)
	assert.Equal(t, 0.0, *last.Value)
}

func TestACWRUnavailableOnceChronicWindowEmpties(t *testing.T) {
	loads := []float64{5.123, 3.71, 8.049, 10.333, 4.27, 6.61, 12.07}
	var series []daily.Summary
	for i := 0; i*3 <= 30; i++ {
		series = append(series, daily.Summary{Date: day0.AddDays(i * 3), Value: loads[i%len(loads)], Count: 1})
	}
	points := ACWRUntil(series, day0.AddDays(120))
	require.Len(t, points, 121)

	require.Equal(t, StatusOK, points[30].Status)
	for i := 60; i <= 120; i++ {
		assert.Equal(t, StatusUnavailable, points[i].Status, "day %d", i)
		assert.Nil(t, points[i].Value, "day %d", i)
	}
}

func TestACWREmpty(t *testing.T) {
	assert.Empty(t, ACWR(nil))
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		ratio float64
		want  Band
	}{
		{0.5, BandUnderTrained},
		{0.8, BandUnderTrained},
		{0.81, BandOptimal},
		{1.29, BandOptimal},
		{1.3, BandElevated},
		{1.49, BandElevated},
		{1.5, BandHighRisk},
		{3, BandHighRisk},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BandFor(tc.ratio), "ratio %v", tc.ratio)
	}
}

func TestTrainingStressSingleImpulse(t *testing.T) {
	series := []daily.Summary{{Date: day0, Value: 100}}
	cfg := DefaultTSBConfig()
	until := day0.AddDays(19)
	cfg.Until = &until

	points := TrainingStress(series, cfg)
	require.Len(t, points, 20)

	kFit, kFat := math.Exp(-1.0/42), math.Exp(-1.0/7)
	assert.InDelta(t, 100*(1-kFit), points[0].Fitness, 1e-9)
	assert.InDelta(t, 100*(1-kFat), points[0].Fatigue, 1e-9)
	assert.InDelta(t, points[0].Fitness-points[0].Fatigue, points[0].TSB, 1e-12)
	assert.Less(t, points[0].TSB, 0.0)

	assert.Equal(t, 0.0, points[19].Load)
	assert.InDelta(t, 100*(1-kFit)*math.Pow(kFit, 19), points[19].Fitness, 1e-9)
	assert.Less(t, points[9].TSB, 0.0)
	assert.Greater(t, points[19].TSB, 0.0, "fatigue decays faster than fitness")
}

func TestTrainingStressConverges(t *testing.T) {
	points := TrainingStress(constantLoad(500, 50), TSBConfig{})
	last := points[len(points)-1]
	assert.InDelta(t, 50, last.Fitness, 0.01)
	assert.InDelta(t, 50, last.Fatigue, 1e-6)
	assert.InDelta(t, 0, last.TSB, 0.01)
}

func TestTrainingStressTimeConstants(t *testing.T) {
	series := constantLoad(10, 30)
	fast := TrainingStress(series, TSBConfig{FitnessDays: 10, FatigueDays: 2})
	slow := TrainingStress(series, DefaultTSBConfig())
	assert.Greater(t, fast[9].Fitness, slow[9].Fitness)
}

func TestFormDescription(t *testing.T) {
	assert.Equal(t, "Fresh and ready to race", FormDescription(12))
	assert.Equal(t, "Neutral - good for training", FormDescription(0.5))
	assert.Equal(t, "Very fatigued - rest needed", FormDescription(-30))
}

func TestEfficiencyFactor(t *testing.T) {
	start := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	w := healthexport.Workout{ID: "w1", Start: start, End: start.Add(30 * time.Minute), Source: "Watch"}
	sample := func(m healthexport.MetricType, minute int, v float64, source string) healthexport.Sample {
		at := start.Add(time.Duration(minute) * time.Minute)
		return healthexport.Sample{Type: m, Value: v, Start: at, End: at, Source: source}
	}

	t.Run("power", func(t *testing.T) {
		samples := []healthexport.Sample{
			sample(healthexport.MetricHeartRate, 1, 140, "Watch"),
			sample(healthexport.MetricHeartRate, 2, 160, "Watch"),
			sample(healthexport.MetricHeartRate, 3, 60, "Strap"),
			sample(healthexport.MetricRunningPower, 2, 300, "Watch"),
			sample(healthexport.MetricRunningSpeed, 2, 3, "Watch"),
			// Outside the window.
			sample(healthexport.MetricRunningPower, 40, 900, "Watch"),
		}
		ef := EfficiencyFactor(w, samples)
		require.Equal(t, StatusOK, ef.Status)
		assert.Equal(t, BasisPower, ef.Basis)
		assert.Equal(t, "Watch", ef.Source)
		assert.InDelta(t, 2.0, *ef.Value, 1e-12)
	})

	t.Run("speed fallback", func(t *testing.T) {
		samples := []healthexport.Sample{
			sample(healthexport.MetricHeartRate, 1, 150, "Watch"),
			sample(healthexport.MetricRunningSpeed, 1, 3, "Watch"),
		}
		ef := EfficiencyFactor(w, samples)
		require.Equal(t, StatusOK, ef.Status)
		assert.Equal(t, BasisSpeed, ef.Basis)
		assert.InDelta(t, 1.2, *ef.Value, 1e-12)
	})

	t.Run("other sources when own has none", func(t *testing.T) {
		samples := []healthexport.Sample{
			sample(healthexport.MetricHeartRate, 1, 150, "Strap"),
			sample(healthexport.MetricRunningSpeed, 1, 2.5, "Phone"),
		}
		ef := EfficiencyFactor(w, samples)
		require.Equal(t, StatusOK, ef.Status)
		assert.Empty(t, ef.Source)
		assert.InDelta(t, 1.0, *ef.Value, 1e-12)
	})

	t.Run("no heart rate", func(t *testing.T) {
		ef := EfficiencyFactor(w, []healthexport.Sample{sample(healthexport.MetricRunningPower, 1, 250, "Watch")})
		assert.Equal(t, StatusUnavailable, ef.Status)
		assert.Nil(t, ef.Value)
	})

	t.Run("no output series", func(t *testing.T) {
		ef := EfficiencyFactor(w, []healthexport.Sample{sample(healthexport.MetricHeartRate, 1, 150, "Watch")})
		assert.Equal(t, StatusUnavailable, ef.Status)
	})
}
