package gateway

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

func (f *fakeUpstream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func TestRetry_ReadRecoversAfterServerError(t *testing.T) {
	var hits atomic.Int32
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, []map[string]any{{"id": 7, "name": "Café Lumière"}})
	})
	api := NewAPI(Options{BaseURL: srv.URL, Retry: fastRetry(3)})

	clients, err := api.ListClients(context.Background(), adminSession)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, domain.FlexID("7"), clients[0].ID)
	assert.Equal(t, 2, up.count())
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	api := NewAPI(Options{BaseURL: srv.URL, Retry: fastRetry(3)})

	_, err := api.ListProducts(context.Background(), adminSession)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 3, up.count())
}

func TestRetry_SkipsMutationsAndClientErrors(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		http.Error(w, "down", http.StatusInternalServerError)
	})
	api := NewAPI(Options{BaseURL: srv.URL, Retry: fastRetry(3)})

	err := api.DeleteClient(context.Background(), adminSession, "c-1")
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 1, up.count())

	_, err = api.ListOrdersByClient(context.Background(), adminSession, "c-1")
	require.Error(t, err)
	assert.Equal(t, 2, up.count())
}

func TestRetry_SkipsMalformedSuccessBody(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	api := NewAPI(Options{BaseURL: srv.URL, Retry: fastRetry(3)})

	_, err := api.ListProducts(context.Background(), adminSession)
	require.ErrorIs(t, err, domain.ErrUpstreamMalformed)
	assert.NotErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.True(t, domain.IsUpstream(err))
	assert.Equal(t, 1, up.count())
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	up, srv := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	policy := RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	api := NewAPI(Options{BaseURL: srv.URL, Retry: policy})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := api.ListProducts(ctx, adminSession)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, 1, up.count())
}

func TestRetryPolicy_Normalized(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 0, InitialDelay: -time.Second, MaxDelay: -time.Second, BackoffFactor: 0.5}.normalized()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Zero(t, p.InitialDelay)
	assert.Zero(t, p.MaxDelay)
	assert.Equal(t, 1.0, p.BackoffFactor)

	assert.Equal(t, 3, DefaultRetryPolicy().MaxAttempts)
}
