package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by reads when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// Outcome reports whether an upsert inserted a new row or updated an
// existing one.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// Store persists normalized records. Upserts are idempotent on the
// record's natural key; fields that are nil in the incoming record
// never overwrite previously stored values.
type Store interface {
	UpsertSteps(ctx context.Context, rec *StepsRecord) (Outcome, error)
	UpsertHeartRate(ctx context.Context, rec *HeartRateRecord) (Outcome, error)
	UpsertSleep(ctx context.Context, rec *SleepRecord) (Outcome, error)
	UpsertStress(ctx context.Context, rec *StressRecord) (Outcome, error)
	UpsertBodyBattery(ctx context.Context, rec *BodyBatteryRecord) (Outcome, error)
	UpsertActivity(ctx context.Context, rec *ActivityRecord) (Outcome, error)
	UpsertHealthMetrics(ctx context.Context, rec *HealthMetricsRecord) (Outcome, error)

	// Day reads return ErrNotFound when nothing is stored for the key.
	FindForDay(ctx context.Context, family Family, email string, day time.Time) (any, error)
	// Range reads return records ordered by date ascending; an empty
	// range yields an empty slice, not an error.
	FindRange(ctx context.Context, family Family, email string, from, to time.Time) ([]any, error)

	// ActivitiesInRange returns activities whose date falls in [from, to].
	ActivitiesInRange(ctx context.Context, email string, from, to time.Time) ([]ActivityRecord, error)
}
