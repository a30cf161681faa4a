package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartroom-analytics/internal/models"
)

// MemoryStore - хранилище в памяти для тестов и локального запуска
type MemoryStore struct {
	mu        sync.RWMutex
	telemetry []models.Record
	events    []models.Record
}

// NewMemoryStore создает пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Telemetry(_ context.Context, deviceID string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectSorted(s.telemetry, deviceID), nil
}

func (s *MemoryStore) Events(_ context.Context, deviceID string) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectSorted(s.events, deviceID), nil
}

func (s *MemoryStore) InsertTelemetry(_ context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetry = append(s.telemetry, copyRecords(records)...)
	return nil
}

func (s *MemoryStore) InsertEvents(_ context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, copyRecords(records)...)
	return nil
}

func (s *MemoryStore) Devices(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	devices := []string{}
	for _, r := range s.telemetry {
		id := models.DeviceID(r)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			devices = append(devices, id)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// selectSorted отбирает записи устройства и упорядочивает их по времени.
// Записи с неразбираемым timestamp идут первыми, их отклонит парсер.
func selectSorted(records []models.Record, deviceID string) []models.Record {
	type keyed struct {
		ts time.Time
		r  models.Record
	}

	selected := []keyed{}
	for _, r := range records {
		if models.DeviceID(r) != deviceID {
			continue
		}
		ts, _ := models.ParseTimestamp(r[models.KeyTimestamp])
		selected = append(selected, keyed{ts: ts, r: r})
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ts.Before(selected[j].ts)
	})

	out := make([]models.Record, 0, len(selected))
	for _, k := range selected {
		out = append(out, copyRecord(k.r))
	}
	return out
}

func copyRecords(records []models.Record) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		out = append(out, copyRecord(r))
	}
	return out
}

func copyRecord(r models.Record) models.Record {
	c := make(models.Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
