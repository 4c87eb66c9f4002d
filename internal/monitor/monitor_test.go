package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "api=http://localhost:8080/health", want: Target{Name: "api", URL: "http://localhost:8080/health"}},
		{in: "https://example.com", want: Target{Name: "https://example.com", URL: "https://example.com"}},
		{in: " web = http://web:3000 ", want: Target{Name: "web", URL: "http://web:3000"}},
		{in: "=http://x", want: Target{Name: "http://x", URL: "http://x"}},
		{in: "db=postgres://x", wantErr: true},
		{in: "broken=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	client := &http.Client{}
	defer client.CloseIdleConnections()
	m := New([]Target{
		{Name: "api", URL: up.URL},
		{Name: "db", URL: down.URL},
		{Name: "gone", URL: "http://127.0.0.1:1"},
	}, WithHTTPClient(client))

	results, err := m.Once(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "api", results[0].Target.Name)
	assert.True(t, results[0].Up)
	assert.Equal(t, http.StatusOK, results[0].StatusCode)
	assert.NoError(t, results[0].Err)

	assert.False(t, results[1].Up)
	assert.Equal(t, http.StatusServiceUnavailable, results[1].StatusCode)
	assert.Error(t, results[1].Err)

	assert.False(t, results[2].Up)
	assert.Zero(t, results[2].StatusCode)
	assert.Error(t, results[2].Err)
}

func TestRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := &http.Client{}
	defer client.CloseIdleConnections()
	m := New([]Target{{Name: "api", URL: srv.URL}}, WithInterval(10*time.Millisecond), WithHTTPClient(client))
	assert.Equal(t, 10*time.Millisecond, m.Interval())

	ctx, cancel := context.WithCancel(context.Background())
	var rounds atomic.Int32
	err := m.Run(ctx, func(results []Result) {
		require.Len(t, results, 1)
		if rounds.Add(1) == 3 {
			cancel()
		}
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.EqualValues(t, 3, rounds.Load())
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestDefaults(t *testing.T) {
	m := New(nil, WithInterval(0))
	assert.Equal(t, DefaultInterval, m.Interval())

	results, err := m.Once(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}
