// Package provider abstracts the upstream wearable platform. The
// orchestrator speaks to it through Client; concrete adapters live in
// subpackages. Errors are classified into the sentinel values below so
// callers can distinguish fatal authentication failures from transient
// upstream trouble.
package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth means the upstream rejected the credentials or session.
	// It is fatal for the whole sync attempt.
	ErrAuth = errors.New("provider: authentication failed")
	// ErrRateLimited means the upstream throttled us.
	ErrRateLimited = errors.New("provider: rate limited")
	// ErrUnavailable means the upstream is down or unreachable.
	ErrUnavailable = errors.New("provider: service unavailable")
	// ErrNoData means the endpoint answered but had nothing for the day.
	ErrNoData = errors.New("provider: no data")
)

// Endpoint names one upstream daily-metrics endpoint.
type Endpoint string

const (
	EndpointSteps             Endpoint = "steps"
	EndpointStepsChart        Endpoint = "steps_chart"
	EndpointHeartRate         Endpoint = "heart_rate"
	EndpointSleep             Endpoint = "sleep"
	EndpointStress            Endpoint = "stress"
	EndpointBodyBattery       Endpoint = "body_battery"
	EndpointMaxMetrics        Endpoint = "max_metrics"
	EndpointFitnessAge        Endpoint = "fitness_age"
	EndpointHRV               Endpoint = "hrv"
	EndpointTrainingReadiness Endpoint = "training_readiness"
	EndpointTrainingStatus    Endpoint = "training_status"
	EndpointHydration         Endpoint = "hydration"
	EndpointIntensityMinutes  Endpoint = "intensity_minutes"
	EndpointFloors            Endpoint = "floors"
	EndpointSpO2              Endpoint = "spo2"
	EndpointRespiration       Endpoint = "respiration"
)

// Client fetches raw provider documents. Daily returns the decoded JSON
// body for one endpoint and day; Activities returns the raw activity
// list for an inclusive date range. Implementations classify transport
// and status failures into the package sentinel errors.
type Client interface {
	Daily(ctx context.Context, endpoint Endpoint, day time.Time) (any, error)
	Activities(ctx context.Context, from, to time.Time) ([]any, error)
}

// Connector establishes provider sessions from stored credentials.
type Connector interface {
	Connect(ctx context.Context, email, password string) (Client, error)
}
