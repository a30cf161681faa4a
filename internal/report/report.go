// Package report форматирует данные комнаты для отображения
package report

import (
	"fmt"
	"time"

	"smartroom-analytics/internal/models"
)

// NotAvailable выводится вместо отсутствующих значений
const NotAvailable = "N/A"

var eventDescriptions = map[models.EventType]string{
	models.EventManualLED: "Manual Override: Lamp",
	models.EventManualFan: "Manual Override: Fan",
	models.EventAutoOn:    "Fan & Lamp Auto ON",
	models.EventAutoOff:   "Fan & Lamp Auto OFF",
}

// DescribeEvent возвращает человекочитаемое описание события.
// Неизвестные типы выводятся как есть.
func DescribeEvent(t models.EventType) string {
	if t == "" {
		return NotAvailable
	}
	if d, ok := eventDescriptions[t]; ok {
		return d
	}
	return string(t)
}

// DisplayZone возвращает зону отображения со смещением в часах от UTC
func DisplayZone(offsetHours int) *time.Location {
	if offsetHours == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// LocalDateTime переводит метку времени в зону отображения
func LocalDateTime(ts time.Time, loc *time.Location) (string, string) {
	if ts.IsZero() {
		return NotAvailable, NotAvailable
	}
	local := ts.In(loc)
	return local.Format("2006-01-02"), local.Format("15:04:05")
}

// HoursMinutes форматирует секунды как "Xh Ym"
func HoursMinutes(seconds int64) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// ControlLabel режим управления устройством
func ControlLabel(override bool) string {
	if override {
		return "Manual"
	}
	return "Auto"
}

// Status формирует панель текущего состояния комнаты
func Status(s models.TelemetrySnapshot, loc *time.Location) models.RoomStatus {
	date, clock := LocalDateTime(s.Timestamp, loc)
	return models.RoomStatus{
		Snapshot:    s,
		FanControl:  ControlLabel(s.FanOverride),
		LampControl: ControlLabel(s.LEDOverride),
		LocalDate:   date,
		LocalTime:   clock,
	}
}

// EventLog формирует журнал последних limit событий, новые первыми.
// limit <= 0 означает все события.
func EventLog(events []models.Event, limit int, loc *time.Location) []models.EventLogEntry {
	start := 0
	if limit > 0 && len(events) > limit {
		start = len(events) - limit
	}

	entries := make([]models.EventLogEntry, 0, len(events)-start)
	for i := len(events) - 1; i >= start; i-- {
		e := events[i]
		date, clock := LocalDateTime(e.Timestamp, loc)
		device := e.DeviceID
		if device == "" {
			device = NotAvailable
		}
		event := string(e.Type)
		if event == "" {
			event = NotAvailable
		}
		entries = append(entries, models.EventLogEntry{
			DeviceID:    device,
			Event:       event,
			Description: DescribeEvent(e.Type),
			Date:        date,
			Time:        clock,
		})
	}
	return entries
}

// Display форматирует сводку для панели показателей
func Display(s models.RoomSummary) models.SummaryDisplay {
	d := models.SummaryDisplay{
		FanRuntime:     HoursMinutes(s.FanSeconds),
		LEDRuntime:     HoursMinutes(s.LEDSeconds),
		OccupiedTime:   HoursMinutes(s.Occupancy.TotalSeconds),
		AutoEfficiency: fmt.Sprintf("%.1f%%", s.Efficiency.AutoPct),
		AvgResponse:    fmt.Sprintf("%.2fs", s.Response.AvgSeconds),
		PeakHour:       NotAvailable,
	}
	if h, ok := s.PeakHours.PeakHour(); ok {
		d.PeakHour = fmt.Sprintf("%02d:00", h)
	}
	return d
}
