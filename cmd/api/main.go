package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/fitsync/internal/api"
	"example.com/fitsync/internal/auth"
	"example.com/fitsync/internal/config"
	"example.com/fitsync/internal/outbox"
	persistence "example.com/fitsync/internal/persistence/postgres"
	"example.com/fitsync/internal/provider/garmin"
	"example.com/fitsync/internal/syncer"
	httptransport "example.com/fitsync/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	connector := garmin.NewConnector(garmin.Config{
		BaseURL:  cfg.ProviderBaseURL,
		TokenURL: cfg.ProviderTokenURL,
		Timeout:  cfg.ProviderTimeout,
	})
	orchestrator := syncer.NewOrchestrator(connector, repo, repo, logger)

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.SessionTTL}
	handler := api.NewHandler(orchestrator, repo, repo, api.Config{
		Auth:                  authCfg,
		DashboardEmail:        cfg.DashboardEmail,
		DashboardPasswordHash: cfg.DashboardPasswordHash,
		RunningGoalKm:         cfg.RunningGoalKm,
		ProviderEmail:         cfg.ProviderEmail,
		ProviderPassword:      cfg.ProviderPassword,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Provider credentials are required only on the fetch/sync routes;
	// dashboard session tokens only on the read routes.
	credentials := auth.CredentialsMiddleware{Skipper: func(r *http.Request) bool {
		return !needsCredentials(r.URL.Path)
	}}
	bearer := auth.BearerMiddleware{Config: authCfg, Skipper: func(r *http.Request) bool {
		return !needsSession(r.URL.Path)
	}}

	chain := httptransport.RequestLogger(logger)(
		httptransport.CORS(cfg.DashboardOrigin)(
			credentials.Wrap(bearer.Wrap(mux))))

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, chain)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("fitsync listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}

// needsCredentials marks routes that call the provider on the user's
// behalf.
func needsCredentials(path string) bool {
	if strings.HasPrefix(path, "/api/sync/") {
		return true
	}
	switch path {
	case "/api/steps", "/api/heartrate", "/api/sleep", "/api/stress",
		"/api/bodybattery", "/api/activities", "/api/healthmetrics":
		return true
	}
	return false
}

// needsSession marks dashboard routes protected by a session token.
func needsSession(path string) bool {
	return strings.HasPrefix(path, "/api/db/") ||
		strings.HasPrefix(path, "/api/goal/") ||
		path == "/api/auth/verify" ||
		path == "/api/live"
}
