// Package syncer coordinates one full synchronization run: fetch every
// metric family from the provider, resolve each raw payload into a
// normalized record, and persist it. Families are independent; one
// family's failure never aborts the others, and the final report
// enumerates every attempted family explicitly.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/observability"
	"example.com/fitsync/internal/provider"
)

// EventSink receives a notification after each completed sync run.
type EventSink interface {
	SyncCompleted(ctx context.Context, email string, day time.Time, report *domain.SyncReport) error
}

// Orchestrator runs per-day sync requests against the provider and the
// store. It holds no per-run state; concurrent runs for different keys
// are independent.
type Orchestrator struct {
	connector provider.Connector
	store     domain.Store
	events    EventSink
	logger    *slog.Logger
}

// NewOrchestrator wires an Orchestrator. events may be nil when no
// downstream consumer needs completion notifications.
func NewOrchestrator(connector provider.Connector, store domain.Store, events EventSink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{connector: connector, store: store, events: events, logger: logger}
}

// SyncDay synchronizes every metric family for one (user, day). Only a
// failed provider login aborts the run; family-level failures are
// recorded in the report and the remaining families proceed.
func (o *Orchestrator) SyncDay(ctx context.Context, email, password string, day time.Time) (*domain.SyncReport, error) {
	client, err := o.connector.Connect(ctx, email, password)
	if err != nil {
		return nil, err
	}

	report := domain.NewSyncReport(day.Format(domain.DayFormat))
	workers := o.workers()

	var wg sync.WaitGroup
	for _, family := range domain.Families {
		run := workers[family]
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx, client, email, day, report)
		}()
	}
	wg.Wait()

	for _, family := range domain.Families {
		observability.RecordFamilyResult(string(family), report.Status(family))
	}
	observability.RecordSyncCompleted(time.Now())

	if o.events != nil {
		if err := o.events.SyncCompleted(ctx, email, day, report); err != nil {
			o.logger.Warn("recording sync event failed", "email", email, "date", report.Date, "error", err)
		}
	}
	return report, nil
}

// SyncFamily synchronizes a single metric family for one (user, day).
// The result is reported the same way SyncDay reports it, with only the
// requested family present.
func (o *Orchestrator) SyncFamily(ctx context.Context, email, password string, family domain.Family, day time.Time) (*domain.SyncReport, error) {
	run, ok := o.workers()[family]
	if !ok {
		return nil, fmt.Errorf("unknown family %q", family)
	}

	client, err := o.connector.Connect(ctx, email, password)
	if err != nil {
		return nil, err
	}

	report := domain.NewSyncReport(day.Format(domain.DayFormat))
	run(ctx, client, email, day, report)
	observability.RecordFamilyResult(string(family), report.Status(family))
	return report, nil
}

func (o *Orchestrator) workers() map[domain.Family]func(context.Context, provider.Client, string, time.Time, *domain.SyncReport) {
	return map[domain.Family]func(context.Context, provider.Client, string, time.Time, *domain.SyncReport){
		domain.FamilySteps:         o.syncSteps,
		domain.FamilyHeartRate:     o.syncHeartRate,
		domain.FamilySleep:         o.syncSleep,
		domain.FamilyStress:        o.syncStress,
		domain.FamilyBodyBattery:   o.syncBodyBattery,
		domain.FamilyActivities:    o.syncActivities,
		domain.FamilyHealthMetrics: o.syncHealthMetrics,
	}
}

func (o *Orchestrator) syncSteps(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	summary, err := client.Daily(ctx, provider.EndpointSteps, day)
	if err != nil {
		o.fail(report, domain.FamilySteps, email, err)
		return
	}
	// The hourly chart is supplementary; its absence never fails steps.
	chart, err := client.Daily(ctx, provider.EndpointStepsChart, day)
	if err != nil {
		chart = nil
	}

	rec := resolveSteps(email, day, summary, chart)
	if rec.TotalSteps == nil {
		o.shapeMismatch(domain.FamilySteps, email, day)
	}
	if o.persist(ctx, report, domain.FamilySteps, email, func() (domain.Outcome, error) {
		return o.store.UpsertSteps(ctx, rec)
	}) {
		total := 0
		if rec.TotalSteps != nil {
			total = *rec.TotalSteps
		}
		report.Note("total_steps", total)
	}
}

func (o *Orchestrator) syncHeartRate(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	payload, err := client.Daily(ctx, provider.EndpointHeartRate, day)
	if err != nil {
		o.fail(report, domain.FamilyHeartRate, email, err)
		return
	}
	rec := resolveHeartRate(email, day, payload)
	if rec.RestingHR == nil && rec.AverageHR == nil && rec.MaxHR == nil && rec.MinHR == nil {
		o.shapeMismatch(domain.FamilyHeartRate, email, day)
	}
	if o.persist(ctx, report, domain.FamilyHeartRate, email, func() (domain.Outcome, error) {
		return o.store.UpsertHeartRate(ctx, rec)
	}) {
		report.Note("resting_hr", rec.RestingHR)
	}
}

func (o *Orchestrator) syncSleep(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	payload, err := client.Daily(ctx, provider.EndpointSleep, day)
	if err != nil {
		o.fail(report, domain.FamilySleep, email, err)
		return
	}
	rec := resolveSleep(email, day, payload)
	if rec.Score == nil && rec.DurationSeconds == nil {
		o.shapeMismatch(domain.FamilySleep, email, day)
	}
	if o.persist(ctx, report, domain.FamilySleep, email, func() (domain.Outcome, error) {
		return o.store.UpsertSleep(ctx, rec)
	}) {
		report.Note("sleep_score", rec.Score)
		report.Note("sleep_duration_minutes", rec.DurationMinutes)
	}
}

func (o *Orchestrator) syncStress(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	payload, err := client.Daily(ctx, provider.EndpointStress, day)
	if err != nil {
		o.fail(report, domain.FamilyStress, email, err)
		return
	}
	rec := resolveStress(email, day, payload)
	if o.persist(ctx, report, domain.FamilyStress, email, func() (domain.Outcome, error) {
		return o.store.UpsertStress(ctx, rec)
	}) {
		report.Note("average_stress", rec.AverageStress)
	}
}

func (o *Orchestrator) syncBodyBattery(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	payload, err := client.Daily(ctx, provider.EndpointBodyBattery, day)
	if err != nil {
		o.fail(report, domain.FamilyBodyBattery, email, err)
		return
	}
	rec := resolveBodyBattery(email, day, payload)
	if o.persist(ctx, report, domain.FamilyBodyBattery, email, func() (domain.Outcome, error) {
		return o.store.UpsertBodyBattery(ctx, rec)
	}) {
		report.Note("body_battery_charged", rec.Charged)
	}
}

func (o *Orchestrator) syncActivities(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	list, err := client.Activities(ctx, day, day)
	if err != nil {
		o.fail(report, domain.FamilyActivities, email, err)
		return
	}
	if len(list) == 0 {
		report.NoData(domain.FamilyActivities)
		return
	}
	var count, calories int
	for _, raw := range list {
		rec := resolveActivity(email, day, raw)
		if rec == nil {
			o.shapeMismatch(domain.FamilyActivities, email, day)
			continue
		}
		outcome, err := o.store.UpsertActivity(ctx, rec)
		if err != nil {
			report.Fail(domain.FamilyActivities, err)
			o.logger.Error("persisting activity failed",
				"email", email, "activity_id", rec.ActivityID, "error", err)
			return
		}
		observability.RecordUpsert(string(domain.FamilyActivities), string(outcome))
		count++
		if rec.Calories != nil {
			calories += *rec.Calories
		}
	}
	report.Success(domain.FamilyActivities)
	report.Note("activity_count", count)
	report.Note("total_calories", calories)
}

func (o *Orchestrator) syncHealthMetrics(ctx context.Context, client provider.Client, email string, day time.Time, report *domain.SyncReport) {
	fetch := func(endpoint provider.Endpoint) any {
		payload, err := client.Daily(ctx, endpoint, day)
		if err != nil {
			if !errors.Is(err, provider.ErrNoData) {
				o.logger.Warn("health sub-metric fetch failed",
					"email", email, "endpoint", string(endpoint), "error", err)
			}
			return nil
		}
		return payload
	}

	in := healthInputs{
		maxMetrics:        fetch(provider.EndpointMaxMetrics),
		fitnessAge:        fetch(provider.EndpointFitnessAge),
		hrv:               fetch(provider.EndpointHRV),
		trainingReadiness: fetch(provider.EndpointTrainingReadiness),
		trainingStatus:    fetch(provider.EndpointTrainingStatus),
		hydration:         fetch(provider.EndpointHydration),
		intensity:         fetch(provider.EndpointIntensityMinutes),
		floors:            fetch(provider.EndpointFloors),
		spo2:              fetch(provider.EndpointSpO2),
		respiration:       fetch(provider.EndpointRespiration),
	}
	if in.empty() {
		report.NoData(domain.FamilyHealthMetrics)
		return
	}

	rec := resolveHealthMetrics(email, day, in)
	if o.persist(ctx, report, domain.FamilyHealthMetrics, email, func() (domain.Outcome, error) {
		return o.store.UpsertHealthMetrics(ctx, rec)
	}) {
		report.Note("vo2_max", rec.VO2Max)
		report.Note("training_readiness", rec.TrainingReadiness)
	}
}

// fail classifies a family fetch error into the report.
func (o *Orchestrator) fail(report *domain.SyncReport, family domain.Family, email string, err error) {
	if errors.Is(err, provider.ErrNoData) {
		report.NoData(family)
		return
	}
	report.Fail(family, err)
	o.logger.Error("family sync failed", "email", email, "family", string(family), "error", err)
}

func (o *Orchestrator) persist(ctx context.Context, report *domain.SyncReport, family domain.Family, email string, upsert func() (domain.Outcome, error)) bool {
	outcome, err := upsert()
	if err != nil {
		report.Fail(family, err)
		o.logger.Error("persisting record failed", "email", email, "family", string(family), "error", err)
		return false
	}
	observability.RecordUpsert(string(family), string(outcome))
	report.Success(family)
	return true
}

func (o *Orchestrator) shapeMismatch(family domain.Family, email string, day time.Time) {
	observability.RecordShapeMismatch(string(family))
	o.logger.Warn("payload present but no fields resolved",
		"email", email, "family", string(family), "date", day.Format(domain.DayFormat))
}
