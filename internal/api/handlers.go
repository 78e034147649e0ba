// Package api exposes HTTP handlers for the telemetry sync service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/fitsync/internal/auth"
	"example.com/fitsync/internal/derive"
	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/provider"
)

// Syncer runs provider synchronization for a whole day or a single
// metric family.
type Syncer interface {
	SyncDay(ctx context.Context, email, password string, day time.Time) (*domain.SyncReport, error)
	SyncFamily(ctx context.Context, email, password string, family domain.Family, day time.Time) (*domain.SyncReport, error)
}

// Pinger reports backing-store health for the liveness endpoint.
type Pinger interface {
	Healthy(ctx context.Context) error
}

// Config carries the handler's non-service settings.
type Config struct {
	Auth                  auth.Config
	DashboardEmail        string
	DashboardPasswordHash string
	RunningGoalKm         float64

	// Server-stored provider credentials backing the dashboard's live
	// polling endpoint.
	ProviderEmail    string
	ProviderPassword string
}

// Handler coordinates HTTP requests with the sync and storage layers.
type Handler struct {
	syncer Syncer
	store  domain.Store
	health Pinger
	cfg    Config
	now    func() time.Time
}

// NewHandler builds a Handler. health may be nil when no backing store
// check is wanted.
func NewHandler(syncer Syncer, store domain.Store, health Pinger, cfg Config) *Handler {
	return &Handler{
		syncer: syncer,
		store:  store,
		health: health,
		cfg:    cfg,
		now:    time.Now,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	for _, family := range domain.Families {
		mux.HandleFunc("/api/"+routeSegment(family), h.familyToday(family))
	}
	mux.HandleFunc("/api/sync/", h.sync)
	mux.HandleFunc("/api/db/", h.dbRead)
	mux.HandleFunc("/api/goal/running", h.runningGoal)
	mux.HandleFunc("/api/auth/login", h.login)
	mux.HandleFunc("/api/auth/verify", h.verify)
	mux.HandleFunc("/api/live", h.live)
	mux.HandleFunc("/api/health", h.healthStatus)
	mux.HandleFunc("/healthz", healthz)
}

// routeSegment is the URL spelling of a family: underscores dropped, so
// heart_rate is served at /api/heartrate.
func routeSegment(family domain.Family) string {
	return strings.ReplaceAll(string(family), "_", "")
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// familyToday fetches yesterday's data for one family, persists it and
// returns the stored record.
func (h *Handler) familyToday(family domain.Family) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		creds, ok := auth.CredentialsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing provider credentials")
			return
		}

		day := h.yesterday()
		report, err := h.syncer.SyncFamily(r.Context(), creds.Email, creds.Password, family, day)
		if err != nil {
			status, code := providerStatus(err)
			writeError(w, status, code, err.Error())
			return
		}

		switch status := report.Status(family); {
		case status == domain.StatusNoData:
			writeError(w, http.StatusNotFound, "not_found", "no data for "+report.Date)
			return
		case status != domain.StatusSuccess:
			writeError(w, http.StatusBadGateway, "sync_failed", status)
			return
		}

		if family == domain.FamilyActivities {
			records, err := h.store.FindRange(r.Context(), family, creds.Email, day, day)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "server_error", err.Error())
				return
			}
			writeJSON(w, http.StatusOK, records)
			return
		}

		record, err := h.store.FindForDay(r.Context(), family, creds.Email, day)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "no data for "+report.Date)
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

// sync runs a full sync for the date in the path and returns the
// per-family report.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	creds, ok := auth.CredentialsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing provider credentials")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/sync/")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing date in path")
		return
	}
	day, err := domain.ParseDay(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	report, err := h.syncer.SyncDay(r.Context(), creds.Email, creds.Password, day)
	if err != nil {
		status, code := providerStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// dbRead serves stored records: /api/db/{family}?email=&date= for one
// day, /api/db/{family}/range?email=&start_date=&end_date= for a span.
func (h *Handler) dbRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/db/")
	segment, wantRange := strings.CutSuffix(rest, "/range")
	family, err := domain.ParseFamily(segment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing email parameter")
		return
	}

	if wantRange {
		h.dbRange(w, r, family, email)
		return
	}

	rawDate := r.URL.Query().Get("date")
	if rawDate == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing date parameter")
		return
	}
	day, err := domain.ParseDay(rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	record, err := h.store.FindForDay(r.Context(), family, email, day)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no data for "+rawDate)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) dbRange(w http.ResponseWriter, r *http.Request, family domain.Family, email string) {
	start, err := domain.ParseDay(r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	end, err := domain.ParseDay(r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "validation_failed", "end_date before start_date")
		return
	}

	records, err := h.store.FindRange(r.Context(), family, email, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RangeResponse{
		Items: records,
		Count: len(records),
	})
}

// runningGoal projects month-to-date running distance against the
// configured monthly goal.
func (h *Handler) runningGoal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing email parameter")
		return
	}

	today := h.now().UTC()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	activities, err := h.store.ActivitiesInRange(r.Context(), email, monthStart, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	projection := derive.ProjectRunningGoal(activities, h.cfg.RunningGoalKm, today)
	writeJSON(w, http.StatusOK, projection)
}

// login verifies the configured dashboard user and issues a session token.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.Email != h.cfg.DashboardEmail || !auth.CheckPassword(h.cfg.DashboardPasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token, err := auth.IssueToken(req.Email, h.cfg.Auth)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.cfg.Auth.TTL.Seconds()),
	})
}

// verify confirms a session token is still valid.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt,
	})
}

// live fetches today's data across every family with the server-stored
// provider credentials, for dashboard polling. The fetched records are
// persisted opportunistically and read back for the response.
func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if h.cfg.ProviderEmail == "" || h.cfg.ProviderPassword == "" {
		writeError(w, http.StatusInternalServerError, "server_error", "provider credentials not configured on server")
		return
	}

	today := h.today()
	report, err := h.syncer.SyncDay(r.Context(), h.cfg.ProviderEmail, h.cfg.ProviderPassword, today)
	if err != nil {
		status, code := providerStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	data := make(map[string]any, len(domain.Families))
	for _, family := range domain.Families {
		if report.Status(family) != domain.StatusSuccess {
			continue
		}
		if family == domain.FamilyActivities {
			if records, err := h.store.FindRange(r.Context(), family, h.cfg.ProviderEmail, today, today); err == nil {
				data[string(family)] = records
			}
			continue
		}
		record, err := h.store.FindForDay(r.Context(), family, h.cfg.ProviderEmail, today)
		if err != nil {
			continue
		}
		data[string(family)] = record
	}

	writeJSON(w, http.StatusOK, LiveResponse{
		Date:    report.Date,
		Email:   h.cfg.ProviderEmail,
		Results: report.Statuses,
		Data:    data,
	})
}

// health reports process and backing-store status.
func (h *Handler) healthStatus(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Healthy(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "detail": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// yesterday is the target day for the opportunistic family endpoints.
// The provider finalizes daily summaries overnight, so the previous day
// is the newest complete one.
func (h *Handler) yesterday() time.Time {
	return h.today().AddDate(0, 0, -1)
}

func (h *Handler) today() time.Time {
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// providerStatus maps provider error taxonomy onto HTTP status codes.
func providerStatus(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrAuth):
		return http.StatusUnauthorized, "provider_auth_failed"
	case errors.Is(err, provider.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries a freshly issued session token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// VerifyResponse echoes the validated session identity.
type VerifyResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LiveResponse aggregates today's fetched data for dashboard polling.
type LiveResponse struct {
	Date    string            `json:"date"`
	Email   string            `json:"email"`
	Results map[string]string `json:"results"`
	Data    map[string]any    `json:"data"`
}

// RangeResponse packages range read results.
type RangeResponse struct {
	Items []any `json:"items"`
	Count int   `json:"count"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
