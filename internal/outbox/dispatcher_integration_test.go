//go:build integration

package outbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type captureWriter struct {
	mu       sync.Mutex
	messages map[string][]kafka.Message
	err      error
}

func (w *captureWriter) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.messages == nil {
		w.messages = make(map[string][]kafka.Message)
	}
	w.messages[topic] = append(w.messages[topic], msgs...)
	return nil
}

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
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

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	migration := filepath.Join(filepath.Dir(file), "../../db/postgres/migrations/0001_init.up.sql")
	contents, err := os.ReadFile(migration)
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	deadline := time.Now().Add(30 * time.Second)
	for {
		if err := pool.Ping(ctx); err == nil {
			break
		}
		require.True(t, time.Now().Before(deadline), "database did not come up")
		time.Sleep(time.Second)
	}

	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
	return pool
}

func insertEvent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, dedupe string) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
             VALUES ('sync','user@example.com','telemetry.synced','telemetry_sync_events','user@example.com','{"results":{}}',$1)`,
		dedupe)
	require.NoError(t, err)
}

func TestDispatcherDeliversAndMarksPublished(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	insertEvent(t, ctx, pool, "evt-1")

	writer := &captureWriter{}
	d := NewDispatcher(pool, writer, time.Second, 10)

	require.NoError(t, d.processBatch(ctx))
	require.Len(t, writer.messages["telemetry_sync_events"], 1)
	require.Equal(t, "user@example.com", string(writer.messages["telemetry_sync_events"][0].Key))

	var pending int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)

	// Second pass finds nothing to deliver.
	require.NoError(t, d.processBatch(ctx))
	require.Len(t, writer.messages["telemetry_sync_events"], 1)
}

func TestDispatcherRoutesFailuresToDLQ(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	insertEvent(t, ctx, pool, "evt-2")

	writer := &captureWriter{err: errors.New("broker unreachable")}
	d := NewDispatcher(pool, writer, time.Second, 10)

	require.NoError(t, d.processBatch(ctx))

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_dlq WHERE reason LIKE '%broker unreachable%'`).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	var pending int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending, "dead-lettered events are not retried from the outbox")
}
