// Package domain defines the normalized telemetry records and the
// storage contract they are persisted through. Every record is keyed by
// a natural key: (email, date) for daily families, (email, activity_id)
// for activities. Nullable fields are pointers so an absent upstream
// value is distinguishable from a measured zero.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayFormat is the wire format for calendar days.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD day string.
func ParseDay(value string) (time.Time, error) {
	day, err := time.Parse(DayFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", value)
	}
	return day, nil
}

// Family identifies one metric family resolved and persisted independently.
type Family string

const (
	FamilySteps         Family = "steps"
	FamilyHeartRate     Family = "heart_rate"
	FamilySleep         Family = "sleep"
	FamilyStress        Family = "stress"
	FamilyBodyBattery   Family = "body_battery"
	FamilyActivities    Family = "activities"
	FamilyHealthMetrics Family = "health_metrics"
)

// Families lists every metric family in sync order.
var Families = []Family{
	FamilySteps,
	FamilyHeartRate,
	FamilySleep,
	FamilyStress,
	FamilyBodyBattery,
	FamilyActivities,
	FamilyHealthMetrics,
}

// ParseFamily maps an API path segment to a Family. Legacy aliases
// without underscores are accepted for compatibility with older clients.
func ParseFamily(value string) (Family, error) {
	switch value {
	case "steps":
		return FamilySteps, nil
	case "heartrate", "heart_rate":
		return FamilyHeartRate, nil
	case "sleep":
		return FamilySleep, nil
	case "stress":
		return FamilyStress, nil
	case "bodybattery", "body_battery":
		return FamilyBodyBattery, nil
	case "activities":
		return FamilyActivities, nil
	case "healthmetrics", "health_metrics":
		return FamilyHealthMetrics, nil
	default:
		return "", fmt.Errorf("unknown data type: %s", value)
	}
}

// StepsRecord is the normalized daily step count.
type StepsRecord struct {
	Email        string          `json:"email"`
	Date         time.Time       `json:"date"`
	TotalSteps   *int            `json:"total_steps"`
	HourlySeries json.RawMessage `json:"hourly_data,omitempty"`
	RawSummary   json.RawMessage `json:"full_data,omitempty"`
}

// HeartRateRecord is the normalized daily heart-rate summary.
type HeartRateRecord struct {
	Email     string          `json:"email"`
	Date      time.Time       `json:"date"`
	RestingHR *int            `json:"resting_hr"`
	AverageHR *int            `json:"average_hr"`
	MaxHR     *int            `json:"max_hr"`
	MinHR     *int            `json:"min_hr"`
	Raw       json.RawMessage `json:"full_data,omitempty"`
}

// SleepRecord is the normalized nightly sleep summary. Stage values may
// be independently absent.
type SleepRecord struct {
	Email              string          `json:"email"`
	Date               time.Time       `json:"date"`
	Score              *int            `json:"sleep_score"`
	DurationSeconds    *int            `json:"sleep_duration_seconds"`
	DurationMinutes    *int            `json:"sleep_duration_minutes"`
	DeepSeconds        *int            `json:"deep_sleep_seconds"`
	LightSeconds       *int            `json:"light_sleep_seconds"`
	REMSeconds         *int            `json:"rem_sleep_seconds"`
	AwakeSeconds       *int            `json:"awake_seconds"`
	AverageSpO2        *float64        `json:"average_spo2"`
	LowestSpO2         *float64        `json:"lowest_spo2"`
	AverageRespiration *float64        `json:"average_respiration"`
	LowestRespiration  *float64        `json:"lowest_respiration"`
	Raw                json.RawMessage `json:"full_data,omitempty"`
}

// StressRecord is the normalized daily stress histogram.
type StressRecord struct {
	Email            string          `json:"email"`
	Date             time.Time       `json:"date"`
	RestMinutes      int             `json:"rest_minutes"`
	LowMinutes       int             `json:"low_stress_minutes"`
	MediumMinutes    int             `json:"medium_stress_minutes"`
	HighMinutes      int             `json:"high_stress_minutes"`
	AverageStress    float64         `json:"average_stress"`
	MaxStress        int             `json:"max_stress"`
	MonitoredMinutes int             `json:"total_stress_minutes"`
	Raw              json.RawMessage `json:"full_data,omitempty"`
}

// BodyBatteryRecord is the normalized daily body-battery delta.
type BodyBatteryRecord struct {
	Email   string          `json:"email"`
	Date    time.Time       `json:"date"`
	Charged *int            `json:"charged"`
	Drained *int            `json:"drained"`
	Raw     json.RawMessage `json:"full_data,omitempty"`
}

// ActivityRecord is one workout, keyed by (email, activity_id).
// Re-syncing the same activity overwrites it in place.
type ActivityRecord struct {
	Email          string          `json:"email"`
	ActivityID     string          `json:"activity_id"`
	Date           time.Time       `json:"date"`
	Name           *string         `json:"activity_name"`
	Type           *string         `json:"activity_type"`
	StartTime      *time.Time      `json:"start_time"`
	DurationSec    *float64        `json:"duration_seconds"`
	DistanceMeters *float64        `json:"distance_meters"`
	Calories       *int            `json:"calories"`
	AverageHR      *int            `json:"average_hr"`
	MaxHR          *int            `json:"max_hr"`
	AverageSpeed   *float64        `json:"average_speed"`
	MaxSpeed       *float64        `json:"max_speed"`
	ElevationGain  *float64        `json:"elevation_gain"`
	AverageCadence *int            `json:"average_cadence"`
	Raw            json.RawMessage `json:"full_data,omitempty"`
}

// HealthMetricsRecord is the normalized daily health snapshot. Each
// field is independently nullable; one upstream source failing must not
// block resolution of the others.
type HealthMetricsRecord struct {
	Email                  string          `json:"email"`
	Date                   time.Time       `json:"date"`
	VO2Max                 *float64        `json:"vo2_max"`
	FitnessAge             *int            `json:"fitness_age"`
	HRV                    *float64        `json:"hrv_value"`
	TrainingReadiness      *int            `json:"training_readiness"`
	TrainingReadinessLevel *string         `json:"training_readiness_level"`
	TrainingStatus         *string         `json:"training_status"`
	IntensityCardio        *int            `json:"intensity_minutes_cardio"`
	IntensityAnaerobic     *int            `json:"intensity_minutes_anaerobic"`
	HydrationML            *int            `json:"hydration_ml"`
	HydrationGoalML        *int            `json:"hydration_goal_ml"`
	FloorsClimbed          *int            `json:"floors_climbed"`
	AverageSpO2            *float64        `json:"average_spo2"`
	LowestSpO2             *float64        `json:"lowest_spo2"`
	AverageRespiration     *float64        `json:"average_respiration"`
	LowestRespiration      *float64        `json:"lowest_respiration"`
	Raw                    json.RawMessage `json:"full_data,omitempty"`
}
