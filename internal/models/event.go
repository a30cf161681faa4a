package models

import (
	"fmt"
	"time"
)

// EventType - тип дискретного события управления
type EventType string

const (
	EventManualLED EventType = "MANUAL_LED"
	EventManualFan EventType = "MANUAL_FAN"
	EventAutoOn    EventType = "AUTO_ON"
	EventAutoOff   EventType = "AUTO_OFF"
)

// Event - событие управления устройством в комнате
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Type      EventType `json:"event"`
}

// ParseEvent переводит запись хранилища в событие.
// Отсутствующий timestamp дает нулевое время, некорректный - ошибку.
func ParseEvent(r Record) (Event, error) {
	e := Event{
		DeviceID: stringField(r, KeyDeviceID),
		Type:     EventType(stringField(r, KeyEvent)),
	}
	if v, ok := r[KeyTimestamp]; ok && v != nil {
		ts, err := ParseTimestamp(v)
		if err != nil {
			return Event{}, err
		}
		e.Timestamp = ts
	}
	return e, nil
}

// ParseEventRecords разбирает последовательность событий, сохраняя порядок
func ParseEventRecords(records []Record) ([]Event, error) {
	out := make([]Event, 0, len(records))
	for i, r := range records {
		e, err := ParseEvent(r)
		if err != nil {
			return nil, fmt.Errorf("event record %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// IsEvent сообщает, описывает ли запись событие (а не снимок телеметрии)
func IsEvent(r Record) bool {
	_, ok := r[KeyEvent]
	return ok
}
