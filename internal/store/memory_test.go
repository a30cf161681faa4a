package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartroom-analytics/internal/models"
)

func TestMemoryStore_TelemetrySortedByDevice(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertTelemetry(ctx, []models.Record{
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:10", "occupied": 1},
		{"device_id": "room_02", "timestamp": "2025-03-10T08:00:00", "occupied": 1},
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:00+00:00", "occupied": 0},
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:05Z"},
	}))

	records, err := s.Telemetry(ctx, "room_01")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2025-03-10T08:00:00+00:00", records[0]["timestamp"])
	assert.Equal(t, "2025-03-10T08:00:05Z", records[1]["timestamp"])
	assert.Equal(t, "2025-03-10T08:00:10", records[2]["timestamp"])
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	original := models.Record{"device_id": "room_01", "timestamp": "2025-03-10T08:00:00Z", "fan": 1}
	require.NoError(t, s.InsertTelemetry(ctx, []models.Record{original}))
	original["fan"] = 0

	records, err := s.Telemetry(ctx, "room_01")
	require.NoError(t, err)
	records[0]["fan"] = 5

	again, err := s.Telemetry(ctx, "room_01")
	require.NoError(t, err)
	assert.Equal(t, 1, again[0]["fan"])
}

func TestMemoryStore_Devices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.InsertTelemetry(ctx, []models.Record{
		{"device_id": "room_02", "timestamp": "2025-03-10T08:00:00Z"},
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:00Z"},
		{"device_id": "room_02", "timestamp": "2025-03-10T08:00:01Z"},
		{"timestamp": "2025-03-10T08:00:01Z"},
	}))

	devices, err := s.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"room_01", "room_02"}, devices)
}

func TestInsert_RoutesByEventKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	result, err := Insert(ctx, s, []models.Record{
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:00Z", "occupied": 1},
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:01Z", "event": "AUTO_ON"},
		{"device_id": "room_01", "timestamp": "2025-03-10T08:00:02Z", "event": "MANUAL_FAN"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.IngestResult{Telemetry: 1, Events: 2}, result)

	events, err := s.Events(ctx, "room_01")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AUTO_ON", events[0]["event"])
}

func TestOpen(t *testing.T) {
	repo, closeFn, err := Open(KindMemory, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)
	assert.NoError(t, closeFn(context.Background()))

	_, _, err = Open("sqlite", "", "")
	assert.Error(t, err)
}
