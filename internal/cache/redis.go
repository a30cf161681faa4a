// Package cache реализует кэширование сводок комнат в Redis
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"smartroom-analytics/internal/models"
)

const (
	// SummaryKeyPrefix префикс для ключей сводок по комнатам
	SummaryKeyPrefix = "summary:"
	// IngestedTelemetryKey счетчик принятых снимков
	IngestedTelemetryKey = "ingested:telemetry"
	// IngestedEventsKey счетчик принятых событий
	IngestedEventsKey = "ingested:events"
	// SummariesComputedKey счетчик рассчитанных сводок
	SummariesComputedKey = "summaries:computed"
	// DefaultTTL время жизни сводки по умолчанию
	DefaultTTL = 5 * time.Second
)

// RedisCache реализует кэширование в Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, ttl), nil
}

// NewFromClient оборачивает готовый клиент Redis
func NewFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// SummaryKey ключ сводки комнаты
func SummaryKey(deviceID string) string {
	return SummaryKeyPrefix + deviceID
}

// CacheSummary сохраняет сводку комнаты
func (r *RedisCache) CacheSummary(ctx context.Context, s models.RoomSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, SummaryKey(s.DeviceID), data, r.ttl)
	pipe.Incr(ctx, SummariesComputedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

// GetSummary возвращает сводку из кэша; ok=false при промахе
func (r *RedisCache) GetSummary(ctx context.Context, deviceID string) (models.RoomSummary, bool, error) {
	var s models.RoomSummary
	data, err := r.client.Get(ctx, SummaryKey(deviceID)).Bytes()
	if err == redis.Nil {
		return s, false, nil
	}
	if err != nil {
		return s, false, fmt.Errorf("failed to get summary: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, false, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return s, true, nil
}

// InvalidateSummary удаляет сводку комнаты после приема новых данных
func (r *RedisCache) InvalidateSummary(ctx context.Context, deviceID string) error {
	return r.client.Del(ctx, SummaryKey(deviceID)).Err()
}

// IncrementCounter увеличивает счетчик на n
func (r *RedisCache) IncrementCounter(ctx context.Context, key string, n int64) (int64, error) {
	return r.client.IncrBy(ctx, key, n).Result()
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}
