// Package models содержит структуры данных телеметрии, событий и производных метрик
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Ключи полей записи в хранилище
const (
	KeyTimestamp   = "timestamp"
	KeyDeviceID    = "device_id"
	KeyOccupied    = "occupied"
	KeyFan         = "fan"
	KeyLED         = "led"
	KeyFanOverride = "fan_override"
	KeyLEDOverride = "led_override"
	KeyEvent       = "event"
)

// Record - слабо типизированная запись в том виде, в каком ее отдает хранилище или MQTT
type Record map[string]interface{}

// Field определяет булево поле снимка телеметрии
type Field string

const (
	FieldOccupied    Field = KeyOccupied
	FieldFan         Field = KeyFan
	FieldLED         Field = KeyLED
	FieldFanOverride Field = KeyFanOverride
	FieldLEDOverride Field = KeyLEDOverride
)

// TelemetrySnapshot - один снимок состояния комнаты.
// Отсутствующие булевы поля равны false (0).
type TelemetrySnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id,omitempty"`
	Occupied    bool      `json:"occupied"`
	Fan         bool      `json:"fan"`
	LED         bool      `json:"led"`
	FanOverride bool      `json:"fan_override"`
	LEDOverride bool      `json:"led_override"`
}

// Value возвращает значение булева поля; неизвестное поле читается как false
func (s TelemetrySnapshot) Value(f Field) bool {
	switch f {
	case FieldOccupied:
		return s.Occupied
	case FieldFan:
		return s.Fan
	case FieldLED:
		return s.LED
	case FieldFanOverride:
		return s.FanOverride
	case FieldLEDOverride:
		return s.LEDOverride
	}
	return false
}

// ManualMode сообщает, активно ли ручное управление хотя бы одним устройством
func (s TelemetrySnapshot) ManualMode() bool {
	return s.FanOverride || s.LEDOverride
}

// timestampLayouts форматы, которые принимаются для поля timestamp.
// Наивные значения (без смещения) трактуются как UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp разбирает ISO-8601 строку или time.Time
func ParseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", t)
	case nil:
		return time.Time{}, fmt.Errorf("missing timestamp")
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// parseFlag приводит значение 0|1 к bool. nil означает отсутствие поля.
func parseFlag(key string, v interface{}) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	case int8:
		return x != 0, nil
	case int16:
		return x != 0, nil
	case int32:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case uint:
		return x != 0, nil
	case uint8:
		return x != 0, nil
	case uint16:
		return x != 0, nil
	case uint32:
		return x != 0, nil
	case uint64:
		return x != 0, nil
	case float32:
		return x != 0, nil
	case float64:
		if math.IsNaN(x) {
			return false, fmt.Errorf("field %s: NaN", key)
		}
		return x != 0, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return false, fmt.Errorf("field %s: %w", key, err)
		}
		return f != 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return false, fmt.Errorf("field %s: invalid value %q", key, x)
		}
		return f != 0, nil
	default:
		return false, fmt.Errorf("field %s: unsupported type %T", key, v)
	}
}

func stringField(r Record, key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ParseTelemetry переводит запись хранилища в типизированный снимок
func ParseTelemetry(r Record) (TelemetrySnapshot, error) {
	ts, err := ParseTimestamp(r[KeyTimestamp])
	if err != nil {
		return TelemetrySnapshot{}, err
	}

	s := TelemetrySnapshot{
		Timestamp: ts,
		DeviceID:  stringField(r, KeyDeviceID),
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{KeyOccupied, &s.Occupied},
		{KeyFan, &s.Fan},
		{KeyLED, &s.LED},
		{KeyFanOverride, &s.FanOverride},
		{KeyLEDOverride, &s.LEDOverride},
	}
	for _, f := range flags {
		if *f.dst, err = parseFlag(f.key, r[f.key]); err != nil {
			return TelemetrySnapshot{}, err
		}
	}

	return s, nil
}

// ParseTelemetryRecords разбирает последовательность записей, сохраняя порядок
func ParseTelemetryRecords(records []Record) ([]TelemetrySnapshot, error) {
	out := make([]TelemetrySnapshot, 0, len(records))
	for i, r := range records {
		s, err := ParseTelemetry(r)
		if err != nil {
			return nil, fmt.Errorf("telemetry record %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
