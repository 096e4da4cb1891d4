package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_AvailableSeats(t *testing.T) {
	ev := &Event{TotalCapacity: 100, BookedSeats: 40}
	assert.Equal(t, 60, ev.AvailableSeats())
}

func TestEvent_HasAvailableSeats(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		seats int
		want  bool
	}{
		{"十分な空席がある", Event{TotalCapacity: 100, BookedSeats: 40}, 10, true},
		{"ちょうど残席数と同じ", Event{TotalCapacity: 100, BookedSeats: 98}, 2, true},
		{"残席が足りない", Event{TotalCapacity: 100, BookedSeats: 99}, 2, false},
		{"満席", Event{TotalCapacity: 100, BookedSeats: 100}, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.HasAvailableSeats(tt.seats))
		})
	}
}

func TestEvent_UnmarshalUpstreamPayload(t *testing.T) {
	// 上流イベントサービスのレスポンス形式
	payload := `{
		"id": 1,
		"name": "夏フェス2026",
		"description": "野外音楽フェスティバル",
		"date": "2026-08-01T18:00:00",
		"location": "東京",
		"totalCapacity": 100,
		"bookedSeats": 40
	}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	assert.Equal(t, int64(1), ev.ID)
	assert.Equal(t, "夏フェス2026", ev.Name)
	assert.Equal(t, 100, ev.TotalCapacity)
	assert.Equal(t, 40, ev.BookedSeats)
}

func TestBookingResult_Unmarshal(t *testing.T) {
	payload := `{"message": "Seats booked successfully", "event": {"id": 1, "bookedSeats": 42}}`

	var result BookingResult
	require.NoError(t, json.Unmarshal([]byte(payload), &result))
	assert.Equal(t, "Seats booked successfully", result.Message)
	require.NotNil(t, result.Event)
	assert.Equal(t, 42, result.Event.BookedSeats)
}
