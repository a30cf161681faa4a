// Package service связывает хранилище, кэш и аналитику комнат
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smartroom-analytics/internal/analytics"
	"smartroom-analytics/internal/cache"
	"smartroom-analytics/internal/metrics"
	"smartroom-analytics/internal/models"
	"smartroom-analytics/internal/report"
	"smartroom-analytics/internal/store"
)

var (
	// ErrNoTelemetry возвращается, если по комнате нет ни одного снимка
	ErrNoTelemetry = errors.New("no telemetry for room")
	// ErrInvalidRecord возвращается при приеме записи, которую нельзя разобрать
	ErrInvalidRecord = errors.New("invalid record")
)

// SummaryCache - кэш сводок и счетчиков (реализация: cache.RedisCache)
type SummaryCache interface {
	GetSummary(ctx context.Context, deviceID string) (models.RoomSummary, bool, error)
	CacheSummary(ctx context.Context, s models.RoomSummary) error
	InvalidateSummary(ctx context.Context, deviceID string) error
	IncrementCounter(ctx context.Context, key string, n int64) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
	Ping(ctx context.Context) error
}

// Service рассчитывает и отдает метрики комнат
type Service struct {
	repo  store.Repository
	cache SummaryCache
	loc   *time.Location
	now   func() time.Time
}

// NewService создает сервис. cache может быть nil - тогда сервис работает без кэша.
func NewService(repo store.Repository, c SummaryCache, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:  repo,
		cache: c,
		loc:   loc,
		now:   time.Now,
	}
}

// Location зона отображения дат
func (s *Service) Location() *time.Location {
	return s.loc
}

// Rooms возвращает известные комнаты
func (s *Service) Rooms(ctx context.Context) ([]string, error) {
	return s.repo.Devices(ctx)
}

// Summary возвращает сводку комнаты из кэша или рассчитывает ее
func (s *Service) Summary(ctx context.Context, deviceID string) (models.RoomSummary, error) {
	if s.cache != nil {
		summary, ok, err := s.cache.GetSummary(ctx, deviceID)
		if err != nil {
			log.Printf("Summary cache read failed for %s: %v", deviceID, err)
		}
		if ok {
			metrics.CacheHits.Inc()
			return summary, nil
		}
		metrics.CacheMisses.Inc()
	}
	return s.Compute(ctx, deviceID)
}

// Compute рассчитывает сводку по текущим данным хранилища и кладет ее в кэш
func (s *Service) Compute(ctx context.Context, deviceID string) (models.RoomSummary, error) {
	start := time.Now()

	telemetry, events, err := s.load(ctx, deviceID)
	if err != nil {
		metrics.SummaryErrors.Inc()
		return models.RoomSummary{}, err
	}
	if len(telemetry) == 0 {
		return models.RoomSummary{}, fmt.Errorf("%w: %s", ErrNoTelemetry, deviceID)
	}

	summary, err := analytics.Summarize(deviceID, telemetry, events, s.now().UTC())
	if err != nil {
		metrics.SummaryErrors.Inc()
		return models.RoomSummary{}, fmt.Errorf("room %s: %w", deviceID, err)
	}

	metrics.SummaryLatency.Observe(time.Since(start).Seconds())
	metrics.SummariesComputed.Inc()
	metrics.UpdateRoomMetrics(summary)

	if s.cache != nil {
		if err := s.cache.CacheSummary(ctx, summary); err != nil {
			log.Printf("Failed to cache summary for %s: %v", deviceID, err)
		}
	}
	return summary, nil
}

func (s *Service) load(ctx context.Context, deviceID string) ([]models.TelemetrySnapshot, []models.Event, error) {
	telemetryRecords, err := s.repo.Telemetry(ctx, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load telemetry: %w", err)
	}
	telemetry, err := models.ParseTelemetryRecords(telemetryRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("room %s: %w", deviceID, err)
	}

	eventRecords, err := s.repo.Events(ctx, deviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load events: %w", err)
	}
	events, err := models.ParseEventRecords(eventRecords)
	if err != nil {
		return nil, nil, fmt.Errorf("room %s: %w", deviceID, err)
	}
	return telemetry, events, nil
}

// Status возвращает текущее состояние комнаты по последнему снимку в хранилище
func (s *Service) Status(ctx context.Context, deviceID string) (models.RoomStatus, error) {
	records, err := s.repo.Telemetry(ctx, deviceID)
	if err != nil {
		return models.RoomStatus{}, fmt.Errorf("failed to load telemetry: %w", err)
	}
	if len(records) == 0 {
		return models.RoomStatus{}, fmt.Errorf("%w: %s", ErrNoTelemetry, deviceID)
	}
	snap, err := models.ParseTelemetry(records[len(records)-1])
	if err != nil {
		return models.RoomStatus{}, fmt.Errorf("room %s: %w", deviceID, err)
	}
	return report.Status(snap, s.loc), nil
}

// EventLog возвращает последние limit событий комнаты, новые первыми
func (s *Service) EventLog(ctx context.Context, deviceID string, limit int) ([]models.EventLogEntry, error) {
	records, err := s.repo.Events(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	events, err := models.ParseEventRecords(records)
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", deviceID, err)
	}
	return report.EventLog(events, limit, s.loc), nil
}

// Ingest приводит записи к виду хранения, сохраняет их и сбрасывает сводки
// затронутых комнат. Одна некорректная запись отклоняет всю пачку.
func (s *Service) Ingest(ctx context.Context, records []models.Record, source string) (models.IngestResult, error) {
	normalized := make([]models.Record, 0, len(records))
	for i, r := range records {
		n, err := normalize(r)
		if err != nil {
			metrics.RecordsRejected.WithLabelValues(source).Inc()
			return models.IngestResult{}, fmt.Errorf("%w: record %d: %v", ErrInvalidRecord, i, err)
		}
		normalized = append(normalized, n)
	}

	result, err := store.Insert(ctx, s.repo, normalized)
	if err != nil {
		return result, err
	}
	metrics.RecordsIngested.WithLabelValues("telemetry", source).Add(float64(result.Telemetry))
	metrics.RecordsIngested.WithLabelValues("event", source).Add(float64(result.Events))

	if s.cache == nil {
		return result, nil
	}

	touched := make(map[string]struct{})
	for _, r := range normalized {
		touched[models.DeviceID(r)] = struct{}{}
	}
	for id := range touched {
		if err := s.cache.InvalidateSummary(ctx, id); err != nil {
			log.Printf("Failed to invalidate summary for %s: %v", id, err)
		}
	}
	s.count(ctx, cache.IngestedTelemetryKey, result.Telemetry)
	s.count(ctx, cache.IngestedEventsKey, result.Events)
	return result, nil
}

func (s *Service) count(ctx context.Context, key string, n int) {
	if n == 0 {
		return
	}
	if _, err := s.cache.IncrementCounter(ctx, key, int64(n)); err != nil {
		log.Printf("Failed to update counter %s: %v", key, err)
	}
}

// normalize проверяет, что аналитика разберет запись, и приводит ее к виду хранения
func normalize(r models.Record) (models.Record, error) {
	n, err := models.NormalizeRecord(r)
	if err != nil {
		return nil, err
	}
	if models.IsEvent(n) {
		_, err = models.ParseEvent(n)
	} else {
		_, err = models.ParseTelemetry(n)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Stats возвращает счетчики сервиса
func (s *Service) Stats(ctx context.Context) (models.StatsResponse, error) {
	var resp models.StatsResponse
	rooms, err := s.repo.Devices(ctx)
	if err != nil {
		return resp, err
	}
	resp.Rooms = len(rooms)

	if s.cache != nil {
		resp.IngestedTelemetry, _ = s.cache.GetCounter(ctx, cache.IngestedTelemetryKey)
		resp.IngestedEvents, _ = s.cache.GetCounter(ctx, cache.IngestedEventsKey)
		resp.SummariesComputed, _ = s.cache.GetCounter(ctx, cache.SummariesComputedKey)
	}
	return resp, nil
}

// Health проверяет зависимости сервиса
func (s *Service) Health(ctx context.Context) (storeStatus, redisStatus string) {
	storeStatus = "connected"
	if err := s.repo.Ping(ctx); err != nil {
		storeStatus = "disconnected"
	}
	redisStatus = "disabled"
	if s.cache != nil {
		redisStatus = "connected"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "disconnected"
		}
	}
	return storeStatus, redisStatus
}
