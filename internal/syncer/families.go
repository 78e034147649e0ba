package syncer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"example.com/fitsync/internal/derive"
	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/resolve"
)

var (
	totalStepsField = resolve.NewField("total_steps",
		resolve.At(resolve.Number, "totalSteps"),
	)

	restingHRField = resolve.NewField("resting_hr",
		resolve.At(resolve.Number, "restingHeartRate"),
	)
	averageHRField = resolve.NewField("average_hr",
		resolve.At(resolve.Number, "averageHeartRate"),
	)
	maxHRField = resolve.NewField("max_hr",
		resolve.At(resolve.Number, "maxHeartRate"),
	)
	minHRField = resolve.NewField("min_hr",
		resolve.At(resolve.Number, "minHeartRate"),
	)
	hrSeriesField = resolve.NewField("heart_rate_values",
		resolve.At(resolve.Slice, "heartRateValues"),
	)

	sleepScoreField = resolve.NewField("sleep_score",
		resolve.At(resolve.Number, "dailySleepDTO", "sleepScores", "overall", "value"),
		resolve.At(resolve.Number, "sleepScore"),
		resolve.At(resolve.Number, "dailySleepDTO", "sleepScore"),
		resolve.At(resolve.Number, "sleepQualityScore"),
		resolve.At(resolve.Number, "dailySleepDTO", "sleepQualityScore"),
	)
	sleepSecondsField = resolve.NewField("sleep_duration_seconds",
		resolve.At(resolve.Number, "dailySleepDTO", "sleepTimeSeconds"),
		resolve.At(resolve.Number, "sleepTimeSeconds"),
	)
	deepSleepField = resolve.NewField("deep_sleep_seconds",
		resolve.At(resolve.Number, "dailySleepDTO", "deepSleepSeconds"),
		resolve.At(resolve.Number, "deepSleepSeconds"),
	)
	lightSleepField = resolve.NewField("light_sleep_seconds",
		resolve.At(resolve.Number, "dailySleepDTO", "lightSleepSeconds"),
		resolve.At(resolve.Number, "lightSleepSeconds"),
	)
	remSleepField = resolve.NewField("rem_sleep_seconds",
		resolve.At(resolve.Number, "dailySleepDTO", "remSleepSeconds"),
		resolve.At(resolve.Number, "remSleepSeconds"),
	)
	awakeSleepField = resolve.NewField("awake_seconds",
		resolve.At(resolve.Number, "dailySleepDTO", "awakeSleepSeconds"),
		resolve.At(resolve.Number, "awakeSleepSeconds"),
	)
	sleepAvgSpO2Field = resolve.NewField("average_spo2",
		resolve.At(resolve.Number, "dailySleepDTO", "averageSpO2Value"),
		resolve.At(resolve.Number, "averageSpO2"),
	)
	sleepLowSpO2Field = resolve.NewField("lowest_spo2",
		resolve.At(resolve.Number, "dailySleepDTO", "lowestSpO2Value"),
		resolve.At(resolve.Number, "lowestSpO2"),
	)
	sleepAvgRespField = resolve.NewField("average_respiration",
		resolve.At(resolve.Number, "dailySleepDTO", "averageRespirationValue"),
		resolve.At(resolve.Number, "averageRespirationValue"),
	)
	sleepLowRespField = resolve.NewField("lowest_respiration",
		resolve.At(resolve.Number, "dailySleepDTO", "lowestRespirationValue"),
		resolve.At(resolve.Number, "lowestRespirationValue"),
	)

	stressSeriesField = resolve.NewField("stress_values",
		resolve.At(resolve.Slice, "stressValuesArray"),
	)
	stressAvgField = resolve.NewField("avg_stress_level",
		resolve.At(resolve.Number, "avgStressLevel"),
	)
	stressMaxField = resolve.NewField("max_stress_level",
		resolve.At(resolve.Number, "maxStressLevel"),
	)

	chargedField = resolve.NewField("charged",
		resolve.At(resolve.Number, "charged"),
	)
	drainedField = resolve.NewField("drained",
		resolve.At(resolve.Number, "drained"),
	)

	activityNameField = resolve.NewField("activity_name",
		resolve.At(resolve.String, "activityName"),
	)
	activityTypeField = resolve.NewField("activity_type",
		resolve.At(resolve.String, "activityTypeDTO", "typeKey"),
		resolve.At(resolve.String, "activityType", "typeKey"),
	)
	activityStartField = resolve.NewField("start_time",
		resolve.At(resolve.String, "summaryDTO", "startTimeLocal"),
		resolve.At(resolve.String, "startTimeLocal"),
	)
	activityDurationField = resolve.NewField("duration_seconds",
		resolve.At(resolve.Number, "summaryDTO", "elapsedDuration"),
		resolve.At(resolve.Number, "elapsedDuration"),
		resolve.At(resolve.Number, "duration"),
	)
	activityDistanceField = resolve.NewField("distance_meters",
		resolve.At(resolve.Number, "summaryDTO", "distance"),
		resolve.At(resolve.Number, "distance"),
	)
	activityCaloriesField = resolve.NewField("calories",
		resolve.At(resolve.Number, "summaryDTO", "calories"),
		resolve.At(resolve.Number, "calories"),
		resolve.At(resolve.Number, "activeCalories"),
	)
	activityAvgHRField = resolve.NewField("average_hr",
		resolve.At(resolve.Number, "summaryDTO", "averageHR"),
		resolve.At(resolve.Number, "averageHR"),
	)
	activityMaxHRField = resolve.NewField("max_hr",
		resolve.At(resolve.Number, "summaryDTO", "maxHR"),
		resolve.At(resolve.Number, "maxHR"),
	)
	activityAvgSpeedField = resolve.NewField("average_speed",
		resolve.At(resolve.Number, "summaryDTO", "averageSpeed"),
		resolve.At(resolve.Number, "averageSpeed"),
	)
	activityMaxSpeedField = resolve.NewField("max_speed",
		resolve.At(resolve.Number, "summaryDTO", "maxSpeed"),
		resolve.At(resolve.Number, "maxSpeed"),
	)
	activityElevationField = resolve.NewField("elevation_gain",
		resolve.At(resolve.Number, "summaryDTO", "elevationGain"),
		resolve.At(resolve.Number, "elevationGain"),
	)
	activityCadenceField = resolve.NewField("average_cadence",
		resolve.At(resolve.Number, "summaryDTO", "averageRunCadence"),
		resolve.At(resolve.Number, "averageRunCadence"),
	)
	activityIDField = resolve.NewField("activity_id",
		resolve.At(resolve.Number, "activityId"),
		resolve.At(resolve.String, "activityId"),
	)

	hydrationValueField = resolve.NewField("hydration_ml",
		resolve.At(resolve.Number, "valueInML"),
	)
	hydrationGoalField = resolve.NewField("hydration_goal_ml",
		resolve.At(resolve.Number, "goalInML"),
	)
	moderateMinutesField = resolve.NewField("intensity_minutes_cardio",
		resolve.At(resolve.Number, "moderateMinutes"),
		resolve.At(resolve.Number, "moderateIntensityMinutes"),
	)
	vigorousMinutesField = resolve.NewField("intensity_minutes_anaerobic",
		resolve.At(resolve.Number, "vigorousMinutes"),
		resolve.At(resolve.Number, "vigorousIntensityMinutes"),
	)
	floorsSeriesField = resolve.NewField("floor_values",
		resolve.At(resolve.Slice, "floorValuesArray"),
	)
	avgSpO2Field = resolve.NewField("average_spo2",
		resolve.At(resolve.Number, "averageSpO2"),
	)
	lowSpO2Field = resolve.NewField("lowest_spo2",
		resolve.At(resolve.Number, "lowestSpO2"),
	)
	avgRespField = resolve.NewField("average_respiration",
		resolve.At(resolve.Number, "avgWakingRespirationValue"),
		resolve.At(resolve.Number, "avgRespirationValue"),
	)
	lowRespField = resolve.NewField("lowest_respiration",
		resolve.At(resolve.Number, "lowestRespirationValue"),
	)
)

func intPtr(field resolve.Field, doc any) *int {
	if v, ok := field.Int(doc); ok {
		return &v
	}
	return nil
}

func floatPtr(field resolve.Field, doc any) *float64 {
	if v, ok := field.Number(doc); ok {
		return &v
	}
	return nil
}

func rawJSON(doc any) json.RawMessage {
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return raw
}

// resolveSteps builds a StepsRecord from the daily summary document and
// the separately fetched hourly chart.
func resolveSteps(email string, day time.Time, summary, chart any) *domain.StepsRecord {
	doc := resolve.Normalize(summary)
	rec := &domain.StepsRecord{
		Email:      email,
		Date:       day,
		TotalSteps: intPtr(totalStepsField, doc),
		RawSummary: rawJSON(summary),
	}
	if series, ok := chart.([]any); ok {
		rec.HourlySeries = rawJSON(series)
	}
	return rec
}

// resolveHeartRate builds a HeartRateRecord. The average prefers a mean
// of the intraday series over the document's direct aggregate.
func resolveHeartRate(email string, day time.Time, payload any) *domain.HeartRateRecord {
	doc := resolve.Normalize(payload)
	rec := &domain.HeartRateRecord{
		Email:     email,
		Date:      day,
		RestingHR: intPtr(restingHRField, doc),
		MaxHR:     intPtr(maxHRField, doc),
		MinHR:     intPtr(minHRField, doc),
		Raw:       rawJSON(payload),
	}
	if series, ok := hrSeriesField.Slice(doc); ok {
		if avg, ok := derive.AverageHeartRate(series); ok {
			rec.AverageHR = &avg
		}
	}
	if rec.AverageHR == nil {
		rec.AverageHR = intPtr(averageHRField, doc)
	}
	return rec
}

// resolveSleep builds a SleepRecord. Duration minutes derive from the
// resolved seconds by integer division.
func resolveSleep(email string, day time.Time, payload any) *domain.SleepRecord {
	doc := resolve.Normalize(payload)
	rec := &domain.SleepRecord{
		Email:              email,
		Date:               day,
		Score:              intPtr(sleepScoreField, doc),
		DurationSeconds:    intPtr(sleepSecondsField, doc),
		DeepSeconds:        intPtr(deepSleepField, doc),
		LightSeconds:       intPtr(lightSleepField, doc),
		REMSeconds:         intPtr(remSleepField, doc),
		AwakeSeconds:       intPtr(awakeSleepField, doc),
		AverageSpO2:        floatPtr(sleepAvgSpO2Field, doc),
		LowestSpO2:         floatPtr(sleepLowSpO2Field, doc),
		AverageRespiration: floatPtr(sleepAvgRespField, doc),
		LowestRespiration:  floatPtr(sleepLowRespField, doc),
		Raw:                rawJSON(payload),
	}
	if rec.DurationSeconds != nil {
		minutes := *rec.DurationSeconds / 60
		rec.DurationMinutes = &minutes
	}
	return rec
}

// resolveStress builds a StressRecord from the sample series plus the
// upstream's own aggregates.
func resolveStress(email string, day time.Time, payload any) *domain.StressRecord {
	doc := resolve.Normalize(payload)
	series, _ := stressSeriesField.Slice(doc)
	summary := derive.StressFromSamples(series)
	summary.ApplyUpstreamAggregates(floatPtr(stressAvgField, doc), floatPtr(stressMaxField, doc))
	return &domain.StressRecord{
		Email:            email,
		Date:             day,
		RestMinutes:      summary.RestMinutes,
		LowMinutes:       summary.LowMinutes,
		MediumMinutes:    summary.MediumMinutes,
		HighMinutes:      summary.HighMinutes,
		AverageStress:    summary.AverageStress,
		MaxStress:        summary.MaxStress,
		MonitoredMinutes: summary.MonitoredMinutes,
		Raw:              rawJSON(payload),
	}
}

// resolveBodyBattery builds a BodyBatteryRecord from the per-day report
// list; the first element carries the daily charge totals.
func resolveBodyBattery(email string, day time.Time, payload any) *domain.BodyBatteryRecord {
	doc := resolve.Normalize(payload)
	return &domain.BodyBatteryRecord{
		Email:   email,
		Date:    day,
		Charged: intPtr(chargedField, doc),
		Drained: intPtr(drainedField, doc),
		Raw:     rawJSON(payload),
	}
}

// resolveActivity builds one ActivityRecord from a search result
// element. Returns nil when the element carries no activity identifier.
func resolveActivity(email string, day time.Time, raw any) *domain.ActivityRecord {
	doc, ok := resolve.AsMap(raw)
	if !ok {
		return nil
	}
	id, ok := activityID(doc)
	if !ok {
		return nil
	}
	rec := &domain.ActivityRecord{
		Email:          email,
		ActivityID:     id,
		Date:           day,
		Name:           stringPtr(activityNameField, doc),
		Type:           stringPtr(activityTypeField, doc),
		DurationSec:    floatPtr(activityDurationField, doc),
		DistanceMeters: floatPtr(activityDistanceField, doc),
		Calories:       intPtr(activityCaloriesField, doc),
		AverageHR:      intPtr(activityAvgHRField, doc),
		MaxHR:          intPtr(activityMaxHRField, doc),
		AverageSpeed:   floatPtr(activityAvgSpeedField, doc),
		MaxSpeed:       floatPtr(activityMaxSpeedField, doc),
		ElevationGain:  floatPtr(activityElevationField, doc),
		AverageCadence: intPtr(activityCadenceField, doc),
		Raw:            rawJSON(raw),
	}
	if start, ok := activityStartField.String(doc); ok {
		if ts, err := parseActivityStart(start); err == nil {
			rec.StartTime = &ts
			rec.Date = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		}
	}
	return rec
}

func activityID(doc map[string]any) (string, bool) {
	value, ok := activityIDField.Resolve(doc)
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// parseActivityStart accepts the handful of timestamp layouts the
// upstream emits for local start times.
func parseActivityStart(value string) (time.Time, error) {
	value = strings.TrimSuffix(value, "Z")
	value = strings.TrimSuffix(value, "+00:00")
	value = strings.Replace(value, "T", " ", 1)
	if i := strings.IndexByte(value, '.'); i >= 0 {
		value = value[:i]
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func stringPtr(field resolve.Field, doc any) *string {
	if v, ok := field.String(doc); ok {
		return &v
	}
	return nil
}

// healthInputs carries the raw payloads for the health snapshot; any
// entry may be nil when its fetch failed.
type healthInputs struct {
	maxMetrics        any
	fitnessAge        any
	hrv               any
	trainingReadiness any
	trainingStatus    any
	hydration         any
	intensity         any
	floors            any
	spo2              any
	respiration       any
}

func (in healthInputs) empty() bool {
	return in.maxMetrics == nil && in.fitnessAge == nil && in.hrv == nil &&
		in.trainingReadiness == nil && in.trainingStatus == nil &&
		in.hydration == nil && in.intensity == nil && in.floors == nil &&
		in.spo2 == nil && in.respiration == nil
}

// resolveHealthMetrics builds the aggregate HealthMetricsRecord from
// whichever sub-metric payloads arrived.
func resolveHealthMetrics(email string, day time.Time, in healthInputs) *domain.HealthMetricsRecord {
	training := derive.ResolveTraining(derive.TrainingInputs{
		MaxMetrics:        in.maxMetrics,
		FitnessAge:        in.fitnessAge,
		HRV:               in.hrv,
		TrainingReadiness: in.trainingReadiness,
		TrainingStatus:    in.trainingStatus,
	})

	rec := &domain.HealthMetricsRecord{
		Email:                  email,
		Date:                   day,
		VO2Max:                 training.VO2Max,
		FitnessAge:             training.FitnessAge,
		HRV:                    training.HRV,
		TrainingReadiness:      training.ReadinessScore,
		TrainingReadinessLevel: training.ReadinessLevel,
		TrainingStatus:         training.TrainingStatus,
	}

	hydration := resolve.Normalize(in.hydration)
	rec.HydrationML = intPtr(hydrationValueField, hydration)
	rec.HydrationGoalML = intPtr(hydrationGoalField, hydration)

	intensity := resolve.Normalize(in.intensity)
	rec.IntensityCardio = intPtr(moderateMinutesField, intensity)
	rec.IntensityAnaerobic = intPtr(vigorousMinutesField, intensity)

	if series, ok := floorsSeriesField.Slice(resolve.Normalize(in.floors)); ok {
		if total, ok := derive.FloorsClimbed(series); ok {
			rec.FloorsClimbed = &total
		}
	} else if total, ok := derive.FloorsClimbed(in.floors); ok {
		rec.FloorsClimbed = &total
	}

	spo2 := resolve.Normalize(in.spo2)
	rec.AverageSpO2 = floatPtr(avgSpO2Field, spo2)
	rec.LowestSpO2 = floatPtr(lowSpO2Field, spo2)

	respiration := resolve.Normalize(in.respiration)
	rec.AverageRespiration = floatPtr(avgRespField, respiration)
	rec.LowestRespiration = floatPtr(lowRespField, respiration)

	rec.Raw = rawJSON(map[string]any{
		"max_metrics":        in.maxMetrics,
		"hrv":                in.hrv,
		"training_readiness": in.trainingReadiness,
		"training_status":    in.trainingStatus,
		"hydration":          in.hydration,
		"intensity_minutes":  in.intensity,
		"floors":             in.floors,
		"spo2":               in.spo2,
		"respiration":        in.respiration,
	})
	return rec
}
