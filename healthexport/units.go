package healthexport

import (
	"fmt"
	"strings"
)

type metricSpec struct {
	identifier string
	name       string
	unit       Unit
	// factors converts a recorded unit string to the canonical unit by multiplication.
	factors map[string]float64
	min     float64
	max     float64
}

var metricSpecs = map[MetricType]metricSpec{
	MetricHeartRate: {
		identifier: "HKQuantityTypeIdentifierHeartRate",
		name:       "heart_rate",
		unit:       UnitBPM,
		factors:    map[string]float64{"count/min": 1, "count/s": 60, "bpm": 1},
		min:        20,
		max:        250,
	},
	MetricRestingHeartRate: {
		identifier: "HKQuantityTypeIdentifierRestingHeartRate",
		name:       "resting_heart_rate",
		unit:       UnitBPM,
		factors:    map[string]float64{"count/min": 1, "bpm": 1},
		min:        20,
		max:        150,
	},
	MetricHRVSDNN: {
		identifier: "HKQuantityTypeIdentifierHeartRateVariabilitySDNN",
		name:       "hrv_sdnn",
		unit:       UnitMillis,
		factors:    map[string]float64{"ms": 1, "s": 1000},
		min:        1,
		max:        400,
	},
	MetricVO2Max: {
		identifier: "HKQuantityTypeIdentifierVO2Max",
		name:       "vo2max",
		unit:       UnitVO2Max,
		factors:    map[string]float64{"mL/min·kg": 1, "ml/(kg*min)": 1, "mL/(kg*min)": 1},
		min:        10,
		max:        100,
	},
	MetricActiveEnergy: {
		identifier: "HKQuantityTypeIdentifierActiveEnergyBurned",
		name:       "active_energy",
		unit:       UnitKcal,
		factors:    map[string]float64{"kcal": 1, "Cal": 1, "kJ": 1 / 4.184},
		min:        0,
		max:        10000,
	},
	MetricBasalEnergy: {
		identifier: "HKQuantityTypeIdentifierBasalEnergyBurned",
		name:       "basal_energy",
		unit:       UnitKcal,
		factors:    map[string]float64{"kcal": 1, "Cal": 1, "kJ": 1 / 4.184},
		min:        0,
		max:        10000,
	},
	MetricExerciseTime: {
		identifier: "HKQuantityTypeIdentifierAppleExerciseTime",
		name:       "exercise_time",
		unit:       UnitMinutes,
		factors:    map[string]float64{"min": 1, "s": 1.0 / 60, "hr": 60},
		min:        0,
		max:        1440,
	},
	MetricStandTime: {
		identifier: "HKQuantityTypeIdentifierAppleStandTime",
		name:       "stand_time",
		unit:       UnitMinutes,
		factors:    map[string]float64{"min": 1, "s": 1.0 / 60, "hr": 60},
		min:        0,
		max:        1440,
	},
	MetricDistanceWalkingRunning: {
		identifier: "HKQuantityTypeIdentifierDistanceWalkingRunning",
		name:       "distance_walking_running",
		unit:       UnitKilometers,
		factors:    distanceFactors,
		min:        0,
		max:        500,
	},
	MetricDistanceCycling: {
		identifier: "HKQuantityTypeIdentifierDistanceCycling",
		name:       "distance_cycling",
		unit:       UnitKilometers,
		factors:    distanceFactors,
		min:        0,
		max:        1000,
	},
	MetricDistanceSwimming: {
		identifier: "HKQuantityTypeIdentifierDistanceSwimming",
		name:       "distance_swimming",
		unit:       UnitKilometers,
		factors:    distanceFactors,
		min:        0,
		max:        100,
	},
	MetricRunningPower: {
		identifier: "HKQuantityTypeIdentifierRunningPower",
		name:       "running_power",
		unit:       UnitWatts,
		factors:    map[string]float64{"W": 1, "kW": 1000},
		min:        0,
		max:        1500,
	},
	MetricRunningSpeed: {
		identifier: "HKQuantityTypeIdentifierRunningSpeed",
		name:       "running_speed",
		unit:       UnitMPS,
		factors:    map[string]float64{"m/s": 1, "km/hr": 1 / 3.6, "mi/hr": 0.44704},
		min:        0,
		max:        12,
	},
	MetricVerticalOscillation: {
		identifier: "HKQuantityTypeIdentifierRunningVerticalOscillation",
		name:       "vertical_oscillation",
		unit:       UnitCentimeter,
		factors:    map[string]float64{"cm": 1, "mm": 0.1, "m": 100, "in": 2.54},
		min:        2,
		max:        20,
	},
	MetricGroundContactTime: {
		identifier: "HKQuantityTypeIdentifierRunningGroundContactTime",
		name:       "ground_contact_time",
		unit:       UnitMillis,
		factors:    map[string]float64{"ms": 1, "s": 1000},
		min:        150,
		max:        500,
	},
	MetricStrideLength: {
		identifier: "HKQuantityTypeIdentifierRunningStrideLength",
		name:       "stride_length",
		unit:       UnitMeters,
		factors:    map[string]float64{"m": 1, "cm": 0.01, "ft": 0.3048, "in": 0.0254},
		min:        0.3,
		max:        3,
	},
	MetricStepCount: {
		identifier: "HKQuantityTypeIdentifierStepCount",
		name:       "step_count",
		unit:       UnitCount,
		factors:    map[string]float64{"count": 1},
		min:        0,
		max:        100000,
	},
	MetricSleepAnalysis: {
		identifier: "HKCategoryTypeIdentifierSleepAnalysis",
		name:       "sleep_analysis",
		unit:       UnitSleepStage,
		min:        SleepInBed,
		max:        SleepREM,
	},
}

var distanceFactors = map[string]float64{
	"km": 1,
	"m":  0.001,
	"mi": 1.60934,
	"yd": 0.0009144,
	"ft": 0.0003048,
}

var sleepStages = map[string]float64{
	"HKCategoryValueSleepAnalysisInBed":             SleepInBed,
	"HKCategoryValueSleepAnalysisAsleep":            SleepAsleep,
	"HKCategoryValueSleepAnalysisAsleepUnspecified": SleepAsleep,
	"HKCategoryValueSleepAnalysisAwake":             SleepAwake,
	"HKCategoryValueSleepAnalysisAsleepCore":        SleepCore,
	"HKCategoryValueSleepAnalysisAsleepDeep":        SleepDeep,
	"HKCategoryValueSleepAnalysisAsleepREM":         SleepREM,
	"InBed":                                         SleepInBed,
	"Asleep":                                        SleepAsleep,
	"Awake":                                         SleepAwake,
	"Core":                                          SleepCore,
	"Deep":                                          SleepDeep,
	"REM":                                           SleepREM,
}

var metricByIdentifier = func() map[string]MetricType {
	out := make(map[string]MetricType, len(metricSpecs))
	for t, spec := range metricSpecs {
		out[spec.identifier] = t
	}
	return out
}()

var metricByName = func() map[string]MetricType {
	out := make(map[string]MetricType, len(metricSpecs))
	for t, spec := range metricSpecs {
		out[spec.name] = t
	}
	return out
}()

// LookupMetric maps an export type identifier to the closed vocabulary.
// Unknown identifiers map to MetricUnrecognized.
func LookupMetric(identifier string) MetricType {
	if t, ok := metricByIdentifier[strings.TrimSpace(identifier)]; ok {
		return t
	}
	return MetricUnrecognized
}

// ParseMetric resolves a short metric name such as "heart_rate".
func ParseMetric(name string) (MetricType, error) {
	if t, ok := metricByName[strings.TrimSpace(name)]; ok {
		return t, nil
	}
	return MetricUnrecognized, fmt.Errorf("unknown metric %q", name)
}

// String returns the short metric name.
func (t MetricType) String() string {
	if spec, ok := metricSpecs[t]; ok {
		return spec.name
	}
	return "unrecognized"
}

// MarshalText renders the short metric name.
func (t MetricType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses the short metric name.
func (t *MetricType) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Identifier returns the export type identifier for t.
func (t MetricType) Identifier() string {
	return metricSpecs[t].identifier
}

// CanonicalUnit returns the unit samples of t are normalized to.
func (t MetricType) CanonicalUnit() Unit {
	return metricSpecs[t].unit
}

// PlausibleRange returns the inclusive bounds a normalized value of t must fall in.
func (t MetricType) PlausibleRange() (lo, hi float64) {
	spec := metricSpecs[t]
	return spec.min, spec.max
}

// IsDistance reports whether t is one of the distance types.
func (t MetricType) IsDistance() bool {
	switch t {
	case MetricDistanceWalkingRunning, MetricDistanceCycling, MetricDistanceSwimming:
		return true
	}
	return false
}

// Normalize converts a recorded value to the canonical unit of t.
func Normalize(t MetricType, value float64, unit string) (float64, SkipReason, bool) {
	spec, ok := metricSpecs[t]
	if !ok {
		return 0, SkipUnrecognizedType, false
	}
	factor, ok := spec.factors[strings.TrimSpace(unit)]
	if !ok {
		return 0, SkipUnknownUnit, false
	}
	v := value * factor
	if v < spec.min || v > spec.max {
		return 0, SkipImplausible, false
	}
	return v, "", true
}

// NormalizeDistance converts a recorded distance to kilometers.
func NormalizeDistance(value float64, unit string) (float64, bool) {
	factor, ok := distanceFactors[strings.TrimSpace(unit)]
	if !ok {
		return 0, false
	}
	return value * factor, true
}

func sleepStage(value string) (float64, bool) {
	v, ok := sleepStages[strings.TrimSpace(value)]
	return v, ok
}

var activityTypes = map[string]ActivityType{
	"HKWorkoutActivityTypeRunning":  ActivityRunning,
	"HKWorkoutActivityTypeWalking":  ActivityWalking,
	"HKWorkoutActivityTypeCycling":  ActivityCycling,
	"HKWorkoutActivityTypeSwimming": ActivitySwimming,
	"HKWorkoutActivityTypeHiking":   ActivityHiking,
}

func lookupActivity(raw string) ActivityType {
	if a, ok := activityTypes[strings.TrimSpace(raw)]; ok {
		return a
	}
	return ActivityOther
}
