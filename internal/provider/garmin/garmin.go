// Package garmin is the Garmin Connect adapter for the provider
// boundary. It exchanges stored credentials for a bearer token at the
// connect gateway and issues plain REST reads against the wellness
// endpoints, classifying HTTP failures into the provider error set.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"example.com/fitsync/internal/provider"
)

const defaultTimeout = 30 * time.Second

// endpointPaths maps logical endpoints to wellness API path templates.
// Every template takes the target day as its single argument.
var endpointPaths = map[provider.Endpoint]string{
	provider.EndpointSteps:             "/usersummary-service/usersummary/daily/%s",
	provider.EndpointStepsChart:        "/wellness-service/wellness/dailySummaryChart/%s",
	provider.EndpointHeartRate:         "/wellness-service/wellness/dailyHeartRate/%s",
	provider.EndpointSleep:             "/sleep-service/sleep/dailySleepData/%s",
	provider.EndpointStress:            "/wellness-service/wellness/dailyStress/%s",
	provider.EndpointBodyBattery:       "/wellness-service/wellness/bodyBattery/reports/daily/%s",
	provider.EndpointMaxMetrics:        "/metrics-service/metrics/maxmet/daily/%s",
	provider.EndpointFitnessAge:        "/fitnessage-service/fitnessage/%s",
	provider.EndpointHRV:               "/hrv-service/hrv/%s",
	provider.EndpointTrainingReadiness: "/metrics-service/metrics/trainingreadiness/%s",
	provider.EndpointTrainingStatus:    "/metrics-service/metrics/trainingstatus/aggregated/%s",
	provider.EndpointHydration:         "/usersummary-service/usersummary/hydration/daily/%s",
	provider.EndpointIntensityMinutes:  "/wellness-service/wellness/daily/im/%s",
	provider.EndpointFloors:            "/wellness-service/wellness/floorsChartData/daily/%s",
	provider.EndpointSpO2:              "/wellness-service/wellness/daily/spo2/%s",
	provider.EndpointRespiration:       "/wellness-service/wellness/daily/respiration/%s",
}

const activitiesPath = "/activitylist-service/activities/search/activities"

// Config holds the adapter's connection settings.
type Config struct {
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// Connector logs in against the token endpoint and yields a session
// bound Client. It implements provider.Connector.
type Connector struct {
	cfg  Config
	http *http.Client
}

// NewConnector builds a Connector for the given gateway settings.
func NewConnector(cfg Config) *Connector {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Connector{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Connect exchanges credentials for a bearer token. A rejected login
// maps to provider.ErrAuth; gateway trouble maps to the transient
// sentinels.
func (c *Connector) Connect(ctx context.Context, email, password string) (provider.Client, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", provider.ErrUnavailable, err)
	}
	if token.AccessToken == "" {
		return nil, provider.ErrAuth
	}
	return &Client{cfg: c.cfg, http: c.http, token: token.AccessToken}, nil
}

// Client is one authenticated Garmin session.
type Client struct {
	cfg   Config
	http  *http.Client
	token string
}

// Daily fetches and decodes one endpoint for one day.
func (c *Client) Daily(ctx context.Context, endpoint provider.Endpoint, day time.Time) (any, error) {
	path, ok := endpointPaths[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", endpoint)
	}
	url := c.cfg.BaseURL + fmt.Sprintf(path, day.Format("2006-01-02"))
	return c.get(ctx, url)
}

// Activities fetches the raw activity list for an inclusive date range.
func (c *Client) Activities(ctx context.Context, from, to time.Time) ([]any, error) {
	url := fmt.Sprintf("%s%s?startDate=%s&endDate=%s",
		c.cfg.BaseURL, activitiesPath,
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	doc, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, provider.ErrNoData
	}
	return list, nil
}

func (c *Client) get(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, provider.ErrNoData
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	if len(raw) == 0 {
		return nil, provider.ErrNoData
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if doc == nil {
		return nil, provider.ErrNoData
	}
	return doc, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return provider.ErrAuth
	case code == http.StatusTooManyRequests:
		return provider.ErrRateLimited
	case code >= 500:
		return provider.ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
