// Package postgres implements the storage contract over pgx. Every
// upsert is keyed on the record's natural key and merges column-wise:
// an incoming NULL never replaces a previously stored value. The
// create-vs-update outcome is read back from the row's xmax (zero only
// on a freshly inserted tuple).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/fitsync/internal/domain"
)

// Repository provides Postgres-backed persistence for telemetry
// records and the sync event outbox.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func outcomeOf(inserted bool) domain.Outcome {
	if inserted {
		return domain.OutcomeCreated
	}
	return domain.OutcomeUpdated
}

// UpsertSteps merges a steps record on (email, date).
func (r *Repository) UpsertSteps(ctx context.Context, rec *domain.StepsRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO steps_records (email, date, total_steps, hourly_data, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            total_steps = COALESCE(EXCLUDED.total_steps, steps_records.total_steps),
            hourly_data = COALESCE(EXCLUDED.hourly_data, steps_records.hourly_data),
            full_data   = COALESCE(EXCLUDED.full_data, steps_records.full_data),
            updated_at  = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.TotalSteps, rec.HourlySeries, rec.RawSummary,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting steps: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertHeartRate merges a heart-rate record on (email, date).
func (r *Repository) UpsertHeartRate(ctx context.Context, rec *domain.HeartRateRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO heart_rate_records (email, date, resting_hr, average_hr, max_hr, min_hr, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            resting_hr = COALESCE(EXCLUDED.resting_hr, heart_rate_records.resting_hr),
            average_hr = COALESCE(EXCLUDED.average_hr, heart_rate_records.average_hr),
            max_hr     = COALESCE(EXCLUDED.max_hr, heart_rate_records.max_hr),
            min_hr     = COALESCE(EXCLUDED.min_hr, heart_rate_records.min_hr),
            full_data  = COALESCE(EXCLUDED.full_data, heart_rate_records.full_data),
            updated_at = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.RestingHR, rec.AverageHR, rec.MaxHR, rec.MinHR, rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting heart rate: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertSleep merges a sleep record on (email, date).
func (r *Repository) UpsertSleep(ctx context.Context, rec *domain.SleepRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO sleep_records (email, date, sleep_score, sleep_duration_seconds, sleep_duration_minutes,
            deep_sleep_seconds, light_sleep_seconds, rem_sleep_seconds, awake_seconds,
            average_spo2, lowest_spo2, average_respiration, lowest_respiration, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            sleep_score            = COALESCE(EXCLUDED.sleep_score, sleep_records.sleep_score),
            sleep_duration_seconds = COALESCE(EXCLUDED.sleep_duration_seconds, sleep_records.sleep_duration_seconds),
            sleep_duration_minutes = COALESCE(EXCLUDED.sleep_duration_minutes, sleep_records.sleep_duration_minutes),
            deep_sleep_seconds     = COALESCE(EXCLUDED.deep_sleep_seconds, sleep_records.deep_sleep_seconds),
            light_sleep_seconds    = COALESCE(EXCLUDED.light_sleep_seconds, sleep_records.light_sleep_seconds),
            rem_sleep_seconds      = COALESCE(EXCLUDED.rem_sleep_seconds, sleep_records.rem_sleep_seconds),
            awake_seconds          = COALESCE(EXCLUDED.awake_seconds, sleep_records.awake_seconds),
            average_spo2           = COALESCE(EXCLUDED.average_spo2, sleep_records.average_spo2),
            lowest_spo2            = COALESCE(EXCLUDED.lowest_spo2, sleep_records.lowest_spo2),
            average_respiration    = COALESCE(EXCLUDED.average_respiration, sleep_records.average_respiration),
            lowest_respiration     = COALESCE(EXCLUDED.lowest_respiration, sleep_records.lowest_respiration),
            full_data              = COALESCE(EXCLUDED.full_data, sleep_records.full_data),
            updated_at             = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.Score, rec.DurationSeconds, rec.DurationMinutes,
		rec.DeepSeconds, rec.LightSeconds, rec.REMSeconds, rec.AwakeSeconds,
		rec.AverageSpO2, rec.LowestSpO2, rec.AverageRespiration, rec.LowestRespiration, rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting sleep: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertStress merges a stress record on (email, date). The histogram
// columns are always recomputed from the freshest series, so they
// overwrite unconditionally.
func (r *Repository) UpsertStress(ctx context.Context, rec *domain.StressRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO stress_records (email, date, rest_minutes, low_stress_minutes, medium_stress_minutes,
            high_stress_minutes, average_stress, max_stress, total_stress_minutes, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            rest_minutes          = EXCLUDED.rest_minutes,
            low_stress_minutes    = EXCLUDED.low_stress_minutes,
            medium_stress_minutes = EXCLUDED.medium_stress_minutes,
            high_stress_minutes   = EXCLUDED.high_stress_minutes,
            average_stress        = EXCLUDED.average_stress,
            max_stress            = EXCLUDED.max_stress,
            total_stress_minutes  = EXCLUDED.total_stress_minutes,
            full_data             = COALESCE(EXCLUDED.full_data, stress_records.full_data),
            updated_at            = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.RestMinutes, rec.LowMinutes, rec.MediumMinutes,
		rec.HighMinutes, rec.AverageStress, rec.MaxStress, rec.MonitoredMinutes, rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting stress: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertBodyBattery merges a body-battery record on (email, date).
func (r *Repository) UpsertBodyBattery(ctx context.Context, rec *domain.BodyBatteryRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO body_battery_records (email, date, charged, drained, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            charged    = COALESCE(EXCLUDED.charged, body_battery_records.charged),
            drained    = COALESCE(EXCLUDED.drained, body_battery_records.drained),
            full_data  = COALESCE(EXCLUDED.full_data, body_battery_records.full_data),
            updated_at = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.Charged, rec.Drained, rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting body battery: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertActivity merges an activity on (email, activity_id).
func (r *Repository) UpsertActivity(ctx context.Context, rec *domain.ActivityRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO activity_records (email, activity_id, date, activity_name, activity_type, start_time,
            duration_seconds, distance_meters, calories, average_hr, max_hr,
            average_speed, max_speed, elevation_gain, average_cadence, full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
        ON CONFLICT (email, activity_id) DO UPDATE SET
            date             = EXCLUDED.date,
            activity_name    = COALESCE(EXCLUDED.activity_name, activity_records.activity_name),
            activity_type    = COALESCE(EXCLUDED.activity_type, activity_records.activity_type),
            start_time       = COALESCE(EXCLUDED.start_time, activity_records.start_time),
            duration_seconds = COALESCE(EXCLUDED.duration_seconds, activity_records.duration_seconds),
            distance_meters  = COALESCE(EXCLUDED.distance_meters, activity_records.distance_meters),
            calories         = COALESCE(EXCLUDED.calories, activity_records.calories),
            average_hr       = COALESCE(EXCLUDED.average_hr, activity_records.average_hr),
            max_hr           = COALESCE(EXCLUDED.max_hr, activity_records.max_hr),
            average_speed    = COALESCE(EXCLUDED.average_speed, activity_records.average_speed),
            max_speed        = COALESCE(EXCLUDED.max_speed, activity_records.max_speed),
            elevation_gain   = COALESCE(EXCLUDED.elevation_gain, activity_records.elevation_gain),
            average_cadence  = COALESCE(EXCLUDED.average_cadence, activity_records.average_cadence),
            full_data        = COALESCE(EXCLUDED.full_data, activity_records.full_data),
            updated_at       = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.ActivityID, rec.Date, rec.Name, rec.Type, rec.StartTime,
		rec.DurationSec, rec.DistanceMeters, rec.Calories, rec.AverageHR, rec.MaxHR,
		rec.AverageSpeed, rec.MaxSpeed, rec.ElevationGain, rec.AverageCadence, rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting activity: %w", err)
	}
	return outcomeOf(inserted), nil
}

// UpsertHealthMetrics merges a health snapshot on (email, date).
func (r *Repository) UpsertHealthMetrics(ctx context.Context, rec *domain.HealthMetricsRecord) (domain.Outcome, error) {
	const stmt = `INSERT INTO health_metrics_records (email, date, vo2_max, fitness_age, hrv_value,
            training_readiness, training_readiness_level, training_status,
            intensity_minutes_cardio, intensity_minutes_anaerobic, hydration_ml, hydration_goal_ml,
            floors_climbed, average_spo2, lowest_spo2, average_respiration, lowest_respiration,
            full_data, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW())
        ON CONFLICT (email, date) DO UPDATE SET
            vo2_max                     = COALESCE(EXCLUDED.vo2_max, health_metrics_records.vo2_max),
            fitness_age                 = COALESCE(EXCLUDED.fitness_age, health_metrics_records.fitness_age),
            hrv_value                   = COALESCE(EXCLUDED.hrv_value, health_metrics_records.hrv_value),
            training_readiness          = COALESCE(EXCLUDED.training_readiness, health_metrics_records.training_readiness),
            training_readiness_level    = COALESCE(EXCLUDED.training_readiness_level, health_metrics_records.training_readiness_level),
            training_status             = COALESCE(EXCLUDED.training_status, health_metrics_records.training_status),
            intensity_minutes_cardio    = COALESCE(EXCLUDED.intensity_minutes_cardio, health_metrics_records.intensity_minutes_cardio),
            intensity_minutes_anaerobic = COALESCE(EXCLUDED.intensity_minutes_anaerobic, health_metrics_records.intensity_minutes_anaerobic),
            hydration_ml                = COALESCE(EXCLUDED.hydration_ml, health_metrics_records.hydration_ml),
            hydration_goal_ml           = COALESCE(EXCLUDED.hydration_goal_ml, health_metrics_records.hydration_goal_ml),
            floors_climbed              = COALESCE(EXCLUDED.floors_climbed, health_metrics_records.floors_climbed),
            average_spo2                = COALESCE(EXCLUDED.average_spo2, health_metrics_records.average_spo2),
            lowest_spo2                 = COALESCE(EXCLUDED.lowest_spo2, health_metrics_records.lowest_spo2),
            average_respiration         = COALESCE(EXCLUDED.average_respiration, health_metrics_records.average_respiration),
            lowest_respiration          = COALESCE(EXCLUDED.lowest_respiration, health_metrics_records.lowest_respiration),
            full_data                   = COALESCE(EXCLUDED.full_data, health_metrics_records.full_data),
            updated_at                  = NOW()
        RETURNING (xmax = 0)`

	var inserted bool
	err := r.pool.QueryRow(ctx, stmt,
		rec.Email, rec.Date, rec.VO2Max, rec.FitnessAge, rec.HRV,
		rec.TrainingReadiness, rec.TrainingReadinessLevel, rec.TrainingStatus,
		rec.IntensityCardio, rec.IntensityAnaerobic, rec.HydrationML, rec.HydrationGoalML,
		rec.FloorsClimbed, rec.AverageSpO2, rec.LowestSpO2, rec.AverageRespiration, rec.LowestRespiration,
		rec.Raw,
	).Scan(&inserted)
	if err != nil {
		return "", fmt.Errorf("upserting health metrics: %w", err)
	}
	return outcomeOf(inserted), nil
}

// FindForDay loads one family's record for a single day.
func (r *Repository) FindForDay(ctx context.Context, family domain.Family, email string, day time.Time) (any, error) {
	records, err := r.findRange(ctx, family, email, day, day)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound
	}
	return records[0], nil
}

// FindRange loads one family's records over an inclusive date range,
// ordered by date ascending.
func (r *Repository) FindRange(ctx context.Context, family domain.Family, email string, from, to time.Time) ([]any, error) {
	return r.findRange(ctx, family, email, from, to)
}

func (r *Repository) findRange(ctx context.Context, family domain.Family, email string, from, to time.Time) ([]any, error) {
	switch family {
	case domain.FamilySteps:
		return scanRange(ctx, r.pool,
			`SELECT email, date, total_steps, hourly_data, full_data FROM steps_records
                WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.StepsRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.TotalSteps, &rec.HourlySeries, &rec.RawSummary)
				return &rec, err
			})
	case domain.FamilyHeartRate:
		return scanRange(ctx, r.pool,
			`SELECT email, date, resting_hr, average_hr, max_hr, min_hr, full_data FROM heart_rate_records
                WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.HeartRateRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.RestingHR, &rec.AverageHR, &rec.MaxHR, &rec.MinHR, &rec.Raw)
				return &rec, err
			})
	case domain.FamilySleep:
		return scanRange(ctx, r.pool,
			`SELECT email, date, sleep_score, sleep_duration_seconds, sleep_duration_minutes,
                    deep_sleep_seconds, light_sleep_seconds, rem_sleep_seconds, awake_seconds,
                    average_spo2, lowest_spo2, average_respiration, lowest_respiration, full_data
                FROM sleep_records WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.SleepRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.Score, &rec.DurationSeconds, &rec.DurationMinutes,
					&rec.DeepSeconds, &rec.LightSeconds, &rec.REMSeconds, &rec.AwakeSeconds,
					&rec.AverageSpO2, &rec.LowestSpO2, &rec.AverageRespiration, &rec.LowestRespiration, &rec.Raw)
				return &rec, err
			})
	case domain.FamilyStress:
		return scanRange(ctx, r.pool,
			`SELECT email, date, rest_minutes, low_stress_minutes, medium_stress_minutes, high_stress_minutes,
                    average_stress, max_stress, total_stress_minutes, full_data
                FROM stress_records WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.StressRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.RestMinutes, &rec.LowMinutes, &rec.MediumMinutes,
					&rec.HighMinutes, &rec.AverageStress, &rec.MaxStress, &rec.MonitoredMinutes, &rec.Raw)
				return &rec, err
			})
	case domain.FamilyBodyBattery:
		return scanRange(ctx, r.pool,
			`SELECT email, date, charged, drained, full_data FROM body_battery_records
                WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.BodyBatteryRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.Charged, &rec.Drained, &rec.Raw)
				return &rec, err
			})
	case domain.FamilyActivities:
		records, err := r.ActivitiesInRange(ctx, email, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(records))
		for i := range records {
			out = append(out, &records[i])
		}
		return out, nil
	case domain.FamilyHealthMetrics:
		return scanRange(ctx, r.pool,
			`SELECT email, date, vo2_max, fitness_age, hrv_value, training_readiness, training_readiness_level,
                    training_status, intensity_minutes_cardio, intensity_minutes_anaerobic, hydration_ml,
                    hydration_goal_ml, floors_climbed, average_spo2, lowest_spo2, average_respiration,
                    lowest_respiration, full_data
                FROM health_metrics_records WHERE email=$1 AND date BETWEEN $2 AND $3 ORDER BY date`,
			email, from, to,
			func(row pgx.Rows) (any, error) {
				var rec domain.HealthMetricsRecord
				err := row.Scan(&rec.Email, &rec.Date, &rec.VO2Max, &rec.FitnessAge, &rec.HRV,
					&rec.TrainingReadiness, &rec.TrainingReadinessLevel, &rec.TrainingStatus,
					&rec.IntensityCardio, &rec.IntensityAnaerobic, &rec.HydrationML, &rec.HydrationGoalML,
					&rec.FloorsClimbed, &rec.AverageSpO2, &rec.LowestSpO2, &rec.AverageRespiration,
					&rec.LowestRespiration, &rec.Raw)
				return &rec, err
			})
	default:
		return nil, fmt.Errorf("unknown family: %s", family)
	}
}

func scanRange(ctx context.Context, pool *pgxpool.Pool, query, email string, from, to time.Time, scan func(pgx.Rows) (any, error)) ([]any, error) {
	rows, err := pool.Query(ctx, query, email, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]any, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// ActivitiesInRange returns activities whose date falls in [from, to],
// ordered by date then start time.
func (r *Repository) ActivitiesInRange(ctx context.Context, email string, from, to time.Time) ([]domain.ActivityRecord, error) {
	const query = `SELECT email, activity_id, date, activity_name, activity_type, start_time,
            duration_seconds, distance_meters, calories, average_hr, max_hr,
            average_speed, max_speed, elevation_gain, average_cadence, full_data
        FROM activity_records
        WHERE email=$1 AND date BETWEEN $2 AND $3
        ORDER BY date, start_time`

	rows, err := r.pool.Query(ctx, query, email, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.Email, &rec.ActivityID, &rec.Date, &rec.Name, &rec.Type, &rec.StartTime,
			&rec.DurationSec, &rec.DistanceMeters, &rec.Calories, &rec.AverageHR, &rec.MaxHR,
			&rec.AverageSpeed, &rec.MaxSpeed, &rec.ElevationGain, &rec.AverageCadence, &rec.Raw); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// SyncCompleted records a telemetry.synced event in the outbox for
// asynchronous delivery.
func (r *Repository) SyncCompleted(ctx context.Context, email string, day time.Time, report *domain.SyncReport) error {
	payload, err := json.Marshal(struct {
		Email   string            `json:"email"`
		Date    string            `json:"date"`
		Results map[string]string `json:"results"`
	}{Email: email, Date: report.Date, Results: report.Statuses})
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (dedupe_key) DO NOTHING`

	dedupeKey := fmt.Sprintf("%s:%s:%d", email, report.Date, time.Now().UnixNano())
	_, err = r.pool.Exec(ctx, stmt,
		"sync", email, "telemetry.synced", "telemetry_sync_events", email, payload, dedupeKey)
	if err != nil {
		return fmt.Errorf("recording sync event: %w", err)
	}
	return nil
}

// Healthy pings the database.
func (r *Repository) Healthy(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return errors.New("database unreachable")
	}
	return nil
}
