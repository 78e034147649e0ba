package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/provider"
)

type stubClient struct {
	daily      map[provider.Endpoint]any
	dailyErr   map[provider.Endpoint]error
	activities []any
	actErr     error
}

func (c *stubClient) Daily(_ context.Context, endpoint provider.Endpoint, _ time.Time) (any, error) {
	if err, ok := c.dailyErr[endpoint]; ok {
		return nil, err
	}
	if payload, ok := c.daily[endpoint]; ok {
		return payload, nil
	}
	return nil, provider.ErrNoData
}

func (c *stubClient) Activities(_ context.Context, _, _ time.Time) ([]any, error) {
	return c.activities, c.actErr
}

type stubConnector struct {
	client provider.Client
	err    error
}

func (c *stubConnector) Connect(_ context.Context, _, _ string) (provider.Client, error) {
	return c.client, c.err
}

type memStore struct {
	mu         sync.Mutex
	steps      []*domain.StepsRecord
	heartRates []*domain.HeartRateRecord
	sleeps     []*domain.SleepRecord
	stresses   []*domain.StressRecord
	batteries  []*domain.BodyBatteryRecord
	activities []*domain.ActivityRecord
	health     []*domain.HealthMetricsRecord
	failOn     map[domain.Family]error
}

func (s *memStore) failure(family domain.Family) error {
	if s.failOn == nil {
		return nil
	}
	return s.failOn[family]
}

func (s *memStore) UpsertSteps(_ context.Context, rec *domain.StepsRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilySteps); err != nil {
		return "", err
	}
	s.steps = append(s.steps, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertHeartRate(_ context.Context, rec *domain.HeartRateRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilyHeartRate); err != nil {
		return "", err
	}
	s.heartRates = append(s.heartRates, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertSleep(_ context.Context, rec *domain.SleepRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilySleep); err != nil {
		return "", err
	}
	s.sleeps = append(s.sleeps, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertStress(_ context.Context, rec *domain.StressRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilyStress); err != nil {
		return "", err
	}
	s.stresses = append(s.stresses, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertBodyBattery(_ context.Context, rec *domain.BodyBatteryRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilyBodyBattery); err != nil {
		return "", err
	}
	s.batteries = append(s.batteries, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertActivity(_ context.Context, rec *domain.ActivityRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilyActivities); err != nil {
		return "", err
	}
	s.activities = append(s.activities, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) UpsertHealthMetrics(_ context.Context, rec *domain.HealthMetricsRecord) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(domain.FamilyHealthMetrics); err != nil {
		return "", err
	}
	s.health = append(s.health, rec)
	return domain.OutcomeCreated, nil
}

func (s *memStore) FindForDay(context.Context, domain.Family, string, time.Time) (any, error) {
	return nil, domain.ErrNotFound
}

func (s *memStore) FindRange(context.Context, domain.Family, string, time.Time, time.Time) ([]any, error) {
	return nil, nil
}

func (s *memStore) ActivitiesInRange(context.Context, string, time.Time, time.Time) ([]domain.ActivityRecord, error) {
	return nil, nil
}

type stubSink struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSink) SyncCompleted(context.Context, string, time.Time, *domain.SyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func fullPayloads() map[provider.Endpoint]any {
	return map[provider.Endpoint]any{
		provider.EndpointSteps:      map[string]any{"totalSteps": 9120.0},
		provider.EndpointStepsChart: []any{map[string]any{"steps": 300.0}},
		provider.EndpointHeartRate: map[string]any{
			"restingHeartRate": 52.0,
			"maxHeartRate":     148.0,
			"minHeartRate":     48.0,
			"heartRateValues": []any{
				[]any{0.0, 60.0},
				[]any{120.0, 80.0},
			},
		},
		provider.EndpointSleep: map[string]any{
			"dailySleepDTO": map[string]any{
				"sleepScores":      map[string]any{"overall": map[string]any{"value": 82.0}},
				"sleepTimeSeconds": 27000.0,
				"deepSleepSeconds": 5400.0,
			},
		},
		provider.EndpointStress: map[string]any{
			"stressValuesArray": []any{
				[]any{0.0, 20.0},
				[]any{180000.0, 60.0},
			},
		},
		provider.EndpointBodyBattery: []any{
			map[string]any{"charged": 65.0, "drained": 40.0},
		},
		provider.EndpointHRV: map[string]any{
			"hrvSummary": map[string]any{"weeklyAvg": 48.0},
		},
	}
}

func testDay() time.Time {
	return time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)
}

func TestSyncDayReportsEveryFamily(t *testing.T) {
	store := &memStore{}
	client := &stubClient{
		daily: fullPayloads(),
		activities: []any{
			map[string]any{
				"activityId":   101.0,
				"activityName": "Morning Run",
				"activityType": map[string]any{"typeKey": "running"},
				"distance":     10240.0,
				"duration":     3304.0,
			},
		},
	}
	sink := &stubSink{}
	orch := NewOrchestrator(&stubConnector{client: client}, store, sink, nil)

	report, err := orch.SyncDay(context.Background(), "user@example.com", "secret", testDay())
	require.NoError(t, err)
	require.Len(t, report.Statuses, len(domain.Families), "every family must appear in the report")
	for _, family := range domain.Families {
		require.Equal(t, domain.StatusSuccess, report.Status(family), string(family))
	}

	require.Len(t, store.steps, 1)
	require.NotNil(t, store.steps[0].TotalSteps)
	require.Equal(t, 9120, *store.steps[0].TotalSteps)

	require.Len(t, store.heartRates, 1)
	require.NotNil(t, store.heartRates[0].AverageHR)
	require.Equal(t, 70, *store.heartRates[0].AverageHR, "average derives from the series")

	require.Len(t, store.sleeps, 1)
	require.Equal(t, 82, *store.sleeps[0].Score)
	require.Equal(t, 450, *store.sleeps[0].DurationMinutes)

	require.Len(t, store.stresses, 1)
	require.Equal(t, 3, store.stresses[0].RestMinutes)
	require.Equal(t, 3, store.stresses[0].MediumMinutes)

	require.Len(t, store.activities, 1)
	require.Equal(t, "101", store.activities[0].ActivityID)
	require.Equal(t, "running", *store.activities[0].Type)

	require.Len(t, store.health, 1)
	require.Equal(t, 48.0, *store.health[0].HRV)

	require.Equal(t, 9120, report.Summary["total_steps"])
	require.Equal(t, 82, *report.Summary["sleep_score"].(*int))
	require.Equal(t, 1, report.Summary["activity_count"])

	require.Equal(t, 1, sink.calls)
}

func TestSyncDayAuthFailureAborts(t *testing.T) {
	orch := NewOrchestrator(&stubConnector{err: provider.ErrAuth}, &memStore{}, nil, nil)

	report, err := orch.SyncDay(context.Background(), "user@example.com", "wrong", testDay())
	require.ErrorIs(t, err, provider.ErrAuth)
	require.Nil(t, report)
}

func TestSyncDayFamilyFailuresAreIsolated(t *testing.T) {
	store := &memStore{failOn: map[domain.Family]error{
		domain.FamilySleep: errors.New("connection reset"),
	}}
	client := &stubClient{
		daily: fullPayloads(),
		dailyErr: map[provider.Endpoint]error{
			provider.EndpointStress: provider.ErrUnavailable,
		},
		actErr: provider.ErrNoData,
	}
	orch := NewOrchestrator(&stubConnector{client: client}, store, nil, nil)

	report, err := orch.SyncDay(context.Background(), "user@example.com", "secret", testDay())
	require.NoError(t, err)

	require.Equal(t, domain.StatusSuccess, report.Status(domain.FamilySteps))
	require.Equal(t, domain.StatusSuccess, report.Status(domain.FamilyHeartRate))
	require.Equal(t, "error: connection reset", report.Status(domain.FamilySleep))
	require.Contains(t, report.Status(domain.FamilyStress), "error:")
	require.Equal(t, domain.StatusNoData, report.Status(domain.FamilyActivities))
	require.Equal(t, domain.StatusSuccess, report.Status(domain.FamilyBodyBattery))
	require.Equal(t, domain.StatusSuccess, report.Status(domain.FamilyHealthMetrics))
}

func TestSyncDayNoDataFamilies(t *testing.T) {
	client := &stubClient{
		daily: map[provider.Endpoint]any{
			provider.EndpointSteps: map[string]any{"totalSteps": 1200.0},
		},
	}
	orch := NewOrchestrator(&stubConnector{client: client}, &memStore{}, nil, nil)

	report, err := orch.SyncDay(context.Background(), "user@example.com", "secret", testDay())
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, report.Status(domain.FamilySteps))
	require.Equal(t, domain.StatusNoData, report.Status(domain.FamilySleep))
	require.Equal(t, domain.StatusNoData, report.Status(domain.FamilyHealthMetrics))
}

func TestSyncDaySinkFailureDoesNotFailRun(t *testing.T) {
	client := &stubClient{daily: fullPayloads()}
	sink := &stubSink{err: errors.New("broker down")}
	orch := NewOrchestrator(&stubConnector{client: client}, &memStore{}, sink, nil)

	report, err := orch.SyncDay(context.Background(), "user@example.com", "secret", testDay())
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Equal(t, 1, sink.calls)
}
