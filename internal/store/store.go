// Package store реализует документное хранилище телеметрии и событий комнат
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"smartroom-analytics/internal/models"
)

const (
	// TelemetryCollection коллекция снимков телеметрии
	TelemetryCollection = "room_telemetry"
	// EventsCollection коллекция событий управления
	EventsCollection = "room_events"
)

const (
	// KindMongo хранилище MongoDB
	KindMongo = "mongo"
	// KindMemory хранилище в памяти процесса
	KindMemory = "memory"
)

// ErrUnavailable возвращается, когда хранилище не отвечает
var ErrUnavailable = errors.New("store unavailable")

// Repository - хранилище записей комнат.
// Чтение возвращает записи одного устройства, отсортированные по timestamp.
type Repository interface {
	Telemetry(ctx context.Context, deviceID string) ([]models.Record, error)
	Events(ctx context.Context, deviceID string) ([]models.Record, error)
	InsertTelemetry(ctx context.Context, records []models.Record) error
	InsertEvents(ctx context.Context, records []models.Record) error
	Devices(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Insert распределяет записи по коллекциям: записи с ключом event - события,
// остальные - телеметрия
func Insert(ctx context.Context, repo Repository, records []models.Record) (models.IngestResult, error) {
	var telemetry, events []models.Record
	for _, r := range records {
		if models.IsEvent(r) {
			events = append(events, r)
		} else {
			telemetry = append(telemetry, r)
		}
	}

	var result models.IngestResult
	if len(telemetry) > 0 {
		if err := repo.InsertTelemetry(ctx, telemetry); err != nil {
			return result, err
		}
		result.Telemetry = len(telemetry)
	}
	if len(events) > 0 {
		if err := repo.InsertEvents(ctx, events); err != nil {
			return result, err
		}
		result.Events = len(events)
	}
	return result, nil
}

// Open создает хранилище по его типу. Вторым значением возвращается функция
// закрытия соединения.
func Open(kind, mongoURI, database string) (Repository, func(context.Context) error, error) {
	switch kind {
	case KindMemory:
		log.Println("Using in-memory store")
		return NewMemoryStore(), func(context.Context) error { return nil }, nil
	case KindMongo, "":
		s, err := NewMongoStore(mongoURI, database)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
