package analytics

import (
	"errors"
	"fmt"
	"time"

	"smartroom-analytics/internal/models"
)

// ErrUnordered возвращается, если записи не упорядочены по времени
var ErrUnordered = errors.New("records are not sorted by timestamp")

// CheckOrder проверяет, что снимки идут по неубыванию timestamp
func CheckOrder(telemetry []models.TelemetrySnapshot) error {
	for i := 1; i < len(telemetry); i++ {
		if telemetry[i].Timestamp.Before(telemetry[i-1].Timestamp) {
			return fmt.Errorf("telemetry record %d: %w", i, ErrUnordered)
		}
	}
	return nil
}

// CheckEventOrder проверяет порядок событий; события без времени пропускаются
func CheckEventOrder(events []models.Event) error {
	var last time.Time
	for i, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		if e.Timestamp.Before(last) {
			return fmt.Errorf("event record %d: %w", i, ErrUnordered)
		}
		last = e.Timestamp
	}
	return nil
}

// Summarize рассчитывает все метрики комнаты за один вызов
func Summarize(deviceID string, telemetry []models.TelemetrySnapshot, events []models.Event, now time.Time) (models.RoomSummary, error) {
	if err := CheckOrder(telemetry); err != nil {
		return models.RoomSummary{}, err
	}
	if err := CheckEventOrder(events); err != nil {
		return models.RoomSummary{}, err
	}

	summary := models.RoomSummary{
		DeviceID:    deviceID,
		GeneratedAt: now,
		Snapshots:   len(telemetry),
		Events:      len(events),
		Visits:      OccupancyFrequency(telemetry),
		FanSeconds:  FanUsageTime(telemetry),
		LEDSeconds:  LEDUsageTime(telemetry),
		Occupancy:   OccupancyDurationStats(telemetry),
		Overrides:   ManualOverrideStats(events),
		Efficiency:  AutomationEfficiencyStats(telemetry),
		Response:    SystemResponseTime(telemetry),
		PeakHours:   PeakUsageHours(telemetry),
	}
	if n := len(telemetry); n > 0 {
		latest := telemetry[n-1]
		summary.Latest = &latest
	}
	return summary, nil
}
