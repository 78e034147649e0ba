package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
)

func runActivity(day string, typeKey string, distanceM, durationS float64) domain.ActivityRecord {
	date, _ := domain.ParseDay(day)
	return domain.ActivityRecord{
		Email:          "user@example.com",
		Date:           date,
		Type:           &typeKey,
		DistanceMeters: &distanceM,
		DurationSec:    &durationS,
	}
}

func TestProjectRunningGoalBehindPace(t *testing.T) {
	today := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	activities := []domain.ActivityRecord{
		runActivity("2025-06-03", "running", 20000, 6000),
		runActivity("2025-06-10", "trail_running", 20000, 7200),
	}

	p := ProjectRunningGoal(activities, 100, today)
	require.Equal(t, 40.0, p.TotalDistanceKm)
	require.Equal(t, 15, p.DaysElapsed)
	require.Equal(t, 15, p.DaysRemaining)
	require.Equal(t, 60.0, p.RemainingKm)
	require.Equal(t, 4.0, p.PaceNeededPerDay)
	require.False(t, p.OnTrack, "40km at mid-month is behind a 100km linear pace")
}

func TestProjectRunningGoalOnTrack(t *testing.T) {
	today := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	activities := []domain.ActivityRecord{
		runActivity("2025-06-05", "running", 30000, 9000),
		runActivity("2025-06-12", "treadmill_running", 25000, 8000),
	}

	p := ProjectRunningGoal(activities, 100, today)
	require.Equal(t, 55.0, p.TotalDistanceKm)
	require.True(t, p.OnTrack)
}

func TestProjectRunningGoalIgnoresNonRunning(t *testing.T) {
	today := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	activities := []domain.ActivityRecord{
		runActivity("2025-06-02", "cycling", 50000, 7000),
		runActivity("2025-06-04", "running", 10000, 3000),
	}

	p := ProjectRunningGoal(activities, 100, today)
	require.Equal(t, 1, p.RunCount)
	require.Equal(t, 10.0, p.TotalDistanceKm)
}

func TestProjectRunningGoalGoalReached(t *testing.T) {
	today := time.Date(2025, time.June, 28, 0, 0, 0, 0, time.UTC)
	activities := []domain.ActivityRecord{
		runActivity("2025-06-07", "running", 110000, 36000),
	}

	p := ProjectRunningGoal(activities, 100, today)
	require.Equal(t, 0.0, p.RemainingKm)
	require.Equal(t, 0.0, p.PaceNeededPerDay)
	require.True(t, p.OnTrack)
}

func TestProjectRunningGoalRunDetailPace(t *testing.T) {
	today := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	p := ProjectRunningGoal([]domain.ActivityRecord{
		runActivity("2025-06-09", "running", 10000, 3000),
	}, 100, today)

	require.Len(t, p.Runs, 1)
	require.NotNil(t, p.Runs[0].PaceMinKm)
	require.Equal(t, 5.0, *p.Runs[0].PaceMinKm)
}

func TestAverageHeartRateSkipsGaps(t *testing.T) {
	avg, ok := AverageHeartRate([]any{
		[]any{0.0, 60.0},
		[]any{120.0, nil},
		[]any{240.0, 80.0},
		[]any{360.0, -1.0},
	})
	require.True(t, ok)
	require.Equal(t, 70, avg)
}

func TestAverageHeartRateEmptySeries(t *testing.T) {
	_, ok := AverageHeartRate(nil)
	require.False(t, ok)
}
