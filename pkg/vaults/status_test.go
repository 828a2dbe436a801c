package vaults

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestStatusReaderReturnsFeedData(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaults/status", r.URL.Path)
		_, _ = w.Write([]byte(`[{"chain":"Base","vault":"0xabc","sharePrice":1.02,"supplyAPY":0.061,"borrowAPY":0.08}]`))
	}))
	defer upstream.Close()

	result := NewStatusReader(upstream.URL, testLogger()).Read(context.Background())

	assert.False(t, result.Degraded)
	require.Len(t, result.Vaults, 1)
	assert.Equal(t, "Base", result.Vaults[0].Chain)
	assert.InDelta(t, 0.061, result.Vaults[0].SupplyAPY, 1e-9)
}

func TestStatusReaderRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	result := NewStatusReader(upstream.URL, testLogger()).Read(context.Background())

	assert.False(t, result.Degraded)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestStatusReaderDegradesInsteadOfFailing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	result := NewStatusReader(upstream.URL, testLogger()).Read(context.Background())

	assert.True(t, result.Degraded)
	assert.Error(t, result.Err)
	assert.Empty(t, result.Vaults)
}

func TestPositionReaderReturnsPositions(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"positions":[{"vault":"0xabc","chain":"Base","shares":"100","assets":"102"}]}}`))
	}))
	defer upstream.Close()

	result := NewPositionReader(upstream.URL, testLogger()).Positions(context.Background(), "0xowner")

	assert.False(t, result.Degraded)
	require.Len(t, result.Positions, 1)
	assert.Equal(t, "102", result.Positions[0].Assets)
}

func TestPositionReaderDegradesOnUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	result := NewPositionReader(upstream.URL, testLogger()).Positions(context.Background(), "0xowner")

	assert.True(t, result.Degraded)
	assert.Error(t, result.Err)
	assert.Empty(t, result.Positions)
}
