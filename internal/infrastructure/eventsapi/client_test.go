package eventsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-reservation-service/internal/config"
	"github.com/sanosuguru/go-reservation-service/internal/domain/event"
	"github.com/sanosuguru/go-reservation-service/internal/pkg/metrics"
)

// newTestClient はテスト用の短い遅延設定でClientを作成する
func newTestClient(baseURL string) *Client {
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL: baseURL,
			Timeout: time.Second,
		},
		Breaker: config.BreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     100 * time.Millisecond,
		},
		Retry: config.RetryConfig{
			MaxAttempts:   2,
			InitialDelay:  time.Millisecond,
			BackoffFactor: 2,
		},
	}
	return NewClient(cfg, metrics.NewWithRegistry(prometheus.NewRegistry()))
}

func TestClient_GetAllEvents_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/events", r.URL.Path)
		json.NewEncoder(w).Encode([]*event.Event{
			{ID: 1, Name: "コンサートA", TotalCapacity: 100, BookedSeats: 40},
			{ID: 2, Name: "コンサートB", TotalCapacity: 50, BookedSeats: 50},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	events, err := c.GetAllEvents(context.Background())

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, 60, events[0].AvailableSeats())
	assert.False(t, events[1].HasAvailableSeats(1))
}

func TestClient_GetEventByID_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/events/42", r.URL.Path)
		json.NewEncoder(w).Encode(&event.Event{ID: 42, Name: "演劇", TotalCapacity: 10, BookedSeats: 5})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	ev, err := c.GetEventByID(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.ID)
	assert.Equal(t, 5, ev.AvailableSeats())
}

func TestClient_GetEventByID_NotFound_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Event not found with ID: 99"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	_, err := c.GetEventByID(context.Background(), 99)

	assert.ErrorIs(t, err, event.ErrEventNotFound)
	assert.Equal(t, int32(1), attempts.Load(), "404は再試行しない")
}

func TestClient_GetAllEvents_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	_, err := c.GetAllEvents(context.Background())

	assert.ErrorIs(t, err, event.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "500")
	// 初回 + 2回の再試行
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_BookSeats_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/events/7/book", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2, body["seats"])

		json.NewEncoder(w).Encode(&event.BookingResult{
			Message: "Seats booked successfully",
			Event:   &event.Event{ID: 7, TotalCapacity: 5, BookedSeats: 2},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	result, err := c.BookSeats(context.Background(), 7, 2)

	require.NoError(t, err)
	assert.Equal(t, "Seats booked successfully", result.Message)
	require.NotNil(t, result.Event)
	assert.Equal(t, 3, result.Event.AvailableSeats())
}

func TestClient_BookSeats_Rejected_NoRetry(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not enough available seats"})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	_, err := c.BookSeats(context.Background(), 7, 100)

	assert.ErrorIs(t, err, event.ErrBookingRejected)
	assert.Contains(t, err.Error(), "Not enough available seats")
	assert.Equal(t, int32(1), attempts.Load(), "4xxは再試行しない")
}

func TestClient_BreakerCountsRetriedSequenceAsOneFailure(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	ctx := context.Background()

	// 閾値3なので、リトライ込みの論理呼び出し3回でブレーカーが開く
	for i := 0; i < 3; i++ {
		_, err := c.GetAllEvents(ctx)
		assert.ErrorIs(t, err, event.ErrUpstreamFailure)
	}
	assert.Equal(t, int32(9), attempts.Load(), "論理呼び出しごとに3回のHTTP試行")

	// ブレーカー開放中はネットワークに到達しない
	_, err := c.GetAllEvents(ctx)
	assert.ErrorIs(t, err, event.ErrServiceUnavailable)
	assert.Equal(t, int32(9), attempts.Load())
}

func TestClient_BreakerRecoversAfterResetTimeout(t *testing.T) {
	var healthy atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]*event.Event{{ID: 1}})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = c.GetAllEvents(ctx)
	}
	_, err := c.GetAllEvents(ctx)
	require.ErrorIs(t, err, event.ErrServiceUnavailable)

	// 上流が回復し、resetTimeout経過後の試行リクエストで閉じる
	healthy.Store(true)
	time.Sleep(150 * time.Millisecond)

	events, err := c.GetAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestClient_BreakersAreIndependentPerOperation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/events" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(&event.Event{ID: 1, TotalCapacity: 10})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL + "/api/events")
	ctx := context.Background()

	// get_events のブレーカーだけを開かせる
	for i := 0; i < 3; i++ {
		_, _ = c.GetAllEvents(ctx)
	}
	_, err := c.GetAllEvents(ctx)
	require.ErrorIs(t, err, event.ErrServiceUnavailable)

	// get_event は影響を受けない
	ev, err := c.GetEventByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.ID)
}

func TestClient_PerAttemptTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode([]*event.Event{})
	}))
	defer ts.Close()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{BaseURL: ts.URL + "/api/events", Timeout: 20 * time.Millisecond},
		Breaker:  config.BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Second},
		Retry:    config.RetryConfig{MaxAttempts: 0, InitialDelay: time.Millisecond, BackoffFactor: 2},
	}
	c := NewClient(cfg, metrics.NewWithRegistry(prometheus.NewRegistry()))

	_, err := c.GetAllEvents(context.Background())
	assert.ErrorIs(t, err, event.ErrUpstreamFailure)
}
