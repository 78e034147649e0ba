package garmin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitsync/internal/provider"
)

func newGateway(t *testing.T, daily http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-1"}`))
	})
	mux.HandleFunc("/", daily)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, Config{BaseURL: srv.URL, TokenURL: srv.URL + "/token"}
}

func TestConnectAndDaily(t *testing.T) {
	srv, cfg := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"totalSteps": 8200}`))
	})
	defer srv.Close()

	client, err := NewConnector(cfg).Connect(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	day := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	doc, err := client.Daily(context.Background(), provider.EndpointSteps, day)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"totalSteps": 8200.0}, doc)
}

func TestConnectRejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := NewConnector(Config{BaseURL: srv.URL, TokenURL: srv.URL + "/token"}).
		Connect(context.Background(), "user@example.com", "wrong")
	require.ErrorIs(t, err, provider.ErrAuth)
}

func TestDailyClassifiesStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, provider.ErrAuth},
		{"throttled", http.StatusTooManyRequests, provider.ErrRateLimited},
		{"upstream down", http.StatusBadGateway, provider.ErrUnavailable},
		{"missing day", http.StatusNotFound, provider.ErrNoData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, cfg := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			defer srv.Close()

			client, err := NewConnector(cfg).Connect(context.Background(), "user@example.com", "secret")
			require.NoError(t, err)

			_, err = client.Daily(context.Background(), provider.EndpointSleep, time.Now())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDailyEmptyBodyIsNoData(t *testing.T) {
	srv, cfg := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	client, err := NewConnector(cfg).Connect(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	_, err = client.Daily(context.Background(), provider.EndpointStress, time.Now())
	require.ErrorIs(t, err, provider.ErrNoData)
}
