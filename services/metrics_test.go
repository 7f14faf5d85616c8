package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/pkg/crypto"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	// Arrange
	ctx := context.Background()
	metrics := NewMetrics(prometheus.NewRegistry())
	store := newFaultyStore()
	sessions := newTestSessionManager(store, nil, newFixedClock())
	auth := NewAuthService(store, crypto.NewBcrypt(4), sessions, metrics, discardLogger())
	events := NewEventRecorder(store, metrics)

	// Act
	_, err := auth.SignUp(ctx, core.SignUpInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	_, _ = auth.SignUp(ctx, core.SignUpInput{Username: "alice", Password: "pw1"})
	_, _ = auth.Login(ctx, core.LoginInput{Identifier: "alice", Password: "bad"}, "", "")
	_, _ = auth.Authenticate(ctx, "nope")
	_, _ = events.Record(ctx, &core.PublicIdentity{Username: "alice"}, core.EventInput{EventType: "x", TargetType: "y", TargetID: json.RawMessage(`1`)})
	_, _ = events.Record(ctx, &core.PublicIdentity{Username: "alice"}, core.EventInput{})
	metrics.ObservePrune(3)
	metrics.ObservePrune(0)

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authOps.WithLabelValues("signup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authOps.WithLabelValues("signup", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authOps.WithLabelValues("login", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.authOps.WithLabelValues("authenticate", "unauthenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.events.WithLabelValues("invalid_input")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.sessionsPruned))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var metrics *Metrics

	assert.NotPanics(t, func() {
		metrics.observeAuth("login", nil)
		metrics.observeEvent(errStoreDown)
		metrics.ObservePrune(5)
		metrics.WatchCache(&statsCache{mapCache: newMapCache()})
	})
}

type statsCache struct {
	*mapCache
	stats core.CacheStats
}

func (c *statsCache) Stats() core.CacheStats { return c.stats }

func TestMetrics_WatchCache(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := &statsCache{mapCache: newMapCache()}
	metrics.WatchCache(c)

	// Act
	c.stats = core.CacheStats{Hits: 4, Misses: 2, Evictions: 1, Size: 3}

	// Assert
	families, err := reg.Gather()
	require.NoError(t, err)
	got := make(map[string]float64)
	for _, f := range families {
		m := f.GetMetric()[0]
		if m.GetCounter() != nil {
			got[f.GetName()] = m.GetCounter().GetValue()
		} else if m.GetGauge() != nil {
			got[f.GetName()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, 4.0, got["tala_session_cache_hits_total"])
	assert.Equal(t, 2.0, got["tala_session_cache_misses_total"])
	assert.Equal(t, 1.0, got["tala_session_cache_evictions_total"])
	assert.Equal(t, 3.0, got["tala_session_cache_entries"])
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "success"},
		{err: core.ErrMissingFields, want: "invalid_input"},
		{err: core.ErrEmailTaken, want: "conflict"},
		{err: core.ErrInvalidCredentials, want: "invalid_credentials"},
		{err: core.ErrUnauthenticated, want: "unauthenticated"},
		{err: core.ErrUserNotFound, want: "not_found"},
		{err: errStoreDown, want: "error"},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, outcome(test.err), "outcome(%v)", test.err)
	}
}
