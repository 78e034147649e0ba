//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/fitsync/internal/domain"
)

func setupRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitsync"),
		postgrescontainer.WithUsername("fitsync"),
		postgrescontainer.WithPassword("fitsync"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool)
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	steps := 9120
	rec := &domain.StepsRecord{Email: "user@example.com", Date: day, TotalSteps: &steps}

	outcome, err := repo.UpsertSteps(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeCreated, outcome)

	newSteps := 10250
	rec.TotalSteps = &newSteps
	outcome, err = repo.UpsertSteps(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeUpdated, outcome)

	stored, err := repo.FindForDay(ctx, domain.FamilySteps, "user@example.com", day)
	require.NoError(t, err)
	require.Equal(t, 10250, *stored.(*domain.StepsRecord).TotalSteps)
}

func TestUpsertNeverNullsStoredFields(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	resting, maxHR := 52, 148
	first := &domain.HeartRateRecord{Email: "user@example.com", Date: day, RestingHR: &resting, MaxHR: &maxHR}
	_, err := repo.UpsertHeartRate(ctx, first)
	require.NoError(t, err)

	// Second sync resolves only the average; resting and max are absent.
	avg := 71
	second := &domain.HeartRateRecord{Email: "user@example.com", Date: day, AverageHR: &avg}
	_, err = repo.UpsertHeartRate(ctx, second)
	require.NoError(t, err)

	stored, err := repo.FindForDay(ctx, domain.FamilyHeartRate, "user@example.com", day)
	require.NoError(t, err)
	hr := stored.(*domain.HeartRateRecord)
	require.Equal(t, 52, *hr.RestingHR, "absent fields must not null stored values")
	require.Equal(t, 148, *hr.MaxHR)
	require.Equal(t, 71, *hr.AverageHR)
}

func TestFindForDayNotFound(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	_, err := repo.FindForDay(ctx, domain.FamilySleep, "nobody@example.com", day)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestActivityUpsertKeyedByActivityID(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	name := "Morning Run"
	typeKey := "running"
	distance := 10240.0
	rec := &domain.ActivityRecord{
		Email: "user@example.com", ActivityID: "act-1", Date: day,
		Name: &name, Type: &typeKey, DistanceMeters: &distance,
	}

	outcome, err := repo.UpsertActivity(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeCreated, outcome)

	outcome, err = repo.UpsertActivity(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeUpdated, outcome)

	activities, err := repo.ActivitiesInRange(ctx, "user@example.com", day, day)
	require.NoError(t, err)
	require.Len(t, activities, 1, "re-sync must converge, not duplicate")
}

func TestFindRangeOrdersByDate(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	for _, day := range []string{"2025-06-16", "2025-06-14", "2025-06-15"} {
		date, err := domain.ParseDay(day)
		require.NoError(t, err)
		steps := 1000
		_, err = repo.UpsertSteps(ctx, &domain.StepsRecord{Email: "user@example.com", Date: date, TotalSteps: &steps})
		require.NoError(t, err)
	}

	from, _ := domain.ParseDay("2025-06-14")
	to, _ := domain.ParseDay("2025-06-16")
	records, err := repo.FindRange(ctx, domain.FamilySteps, "user@example.com", from, to)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, from, records[0].(*domain.StepsRecord).Date.UTC())
}

func TestSyncCompletedWritesOutboxEvent(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	report := domain.NewSyncReport("2025-06-14")
	report.Success(domain.FamilySteps)
	report.NoData(domain.FamilySleep)

	require.NoError(t, repo.SyncCompleted(ctx, "user@example.com", day, report))

	var count int
	err := repo.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE event_type='telemetry.synced' AND aggregate_id='user@example.com'`,
	).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
