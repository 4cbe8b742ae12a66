package searchclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebastian25gb/nubla-siem/logging"
	"github.com/Sebastian25gb/nubla-siem/metrics"
)

func TestIndex_RetriesThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			json.NewEncoder(w).Encode(map[string]interface{}{"version": map[string]interface{}{"number": "2.0.0"}})
			return
		}
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"_id": "abc", "_version": 1, "result": "created"})
	}))
	defer srv.Close()

	client, err := New(Options{Host: srv.URL, Log: logging.NewDiscard(), Base: 0, Retries: 5})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.IndexRetriesTotal)
	result, err := client.Index(context.Background(), "logs-acme", map[string]interface{}{"tenant_id": "acme"}, "", false)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ID)

	after := testutil.ToFloat64(metrics.IndexRetriesTotal)
	assert.Equal(t, float64(2), after-before, "exactly 2 retries before the 3rd, successful, attempt")
}

func TestIndex_FailsAfterExhaustingRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" {
			json.NewEncoder(w).Encode(map[string]interface{}{"version": map[string]interface{}{"number": "2.0.0"}})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := New(Options{Host: srv.URL, Log: logging.NewDiscard(), Retries: 2})
	require.NoError(t, err)

	_, err = client.Index(context.Background(), "logs-acme", map[string]interface{}{"tenant_id": "acme"}, "", false)
	assert.Error(t, err)
}
