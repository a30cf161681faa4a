package models

import "time"

// OccupancyDuration содержит статистику закрытых визитов
type OccupancyDuration struct {
	TotalSeconds int64   `json:"total_seconds"`
	ShortVisits  int     `json:"short_visits"`
	LongStays    int     `json:"long_stays"`
	Durations    []int64 `json:"durations"`
}

// OverrideStats содержит счетчики ручных и автоматических событий
type OverrideStats struct {
	ManualLED   int `json:"manual_led"`
	ManualFan   int `json:"manual_fan"`
	ManualTotal int `json:"manual_total"`
	AutoOn      int `json:"auto_on"`
	AutoOff     int `json:"auto_off"`
	TotalAuto   int `json:"total_auto"`
}

// AutomationEfficiency - доля снимков в автоматическом режиме
type AutomationEfficiency struct {
	AutoPct     float64 `json:"auto_pct"`
	AutoCount   int     `json:"auto_count"`
	ManualCount int     `json:"manual_count"`
}

// ResponseTime - средняя задержка реакции автоматики на смену занятости
type ResponseTime struct {
	AvgSeconds float64 `json:"avg_seconds"`
	Count      int     `json:"count"`
}

// PeakHours - гистограмма входов в комнату по часу суток (0-23)
type PeakHours map[int]int

// PeakHour возвращает самый загруженный час; при равенстве - меньший
func (p PeakHours) PeakHour() (int, bool) {
	best, bestCount := 0, 0
	for h := 0; h < 24; h++ {
		if c := p[h]; c > bestCount {
			best, bestCount = h, c
		}
	}
	return best, bestCount > 0
}

// RoomSummary объединяет все производные метрики для одной комнаты
type RoomSummary struct {
	DeviceID    string               `json:"device_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Latest      *TelemetrySnapshot   `json:"latest,omitempty"`
	Snapshots   int                  `json:"snapshots"`
	Events      int                  `json:"events"`
	Visits      int                  `json:"visits"`
	FanSeconds  int64                `json:"fan_seconds"`
	LEDSeconds  int64                `json:"led_seconds"`
	Occupancy   OccupancyDuration    `json:"occupancy"`
	Overrides   OverrideStats        `json:"overrides"`
	Efficiency  AutomationEfficiency `json:"efficiency"`
	Response    ResponseTime         `json:"response"`
	PeakHours   PeakHours            `json:"peak_hours"`
}

// SummaryDisplay - отформатированные показатели сводки
type SummaryDisplay struct {
	FanRuntime     string `json:"fan_runtime"`
	LEDRuntime     string `json:"led_runtime"`
	OccupiedTime   string `json:"occupied_time"`
	AutoEfficiency string `json:"auto_efficiency"`
	AvgResponse    string `json:"avg_response"`
	PeakHour       string `json:"peak_hour"`
}

// SummaryView - ответ API со сводкой и ее представлением
type SummaryView struct {
	Summary RoomSummary    `json:"summary"`
	Display SummaryDisplay `json:"display"`
}

// RoomStatus - текущее состояние комнаты для панели статуса
type RoomStatus struct {
	Snapshot    TelemetrySnapshot `json:"snapshot"`
	FanControl  string            `json:"fan_control"`
	LampControl string            `json:"lamp_control"`
	LocalDate   string            `json:"local_date"`
	LocalTime   string            `json:"local_time"`
}

// EventLogEntry - строка журнала событий для отображения
type EventLogEntry struct {
	DeviceID    string `json:"device_id"`
	Event       string `json:"event"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// IngestResult - ответ на прием записей
type IngestResult struct {
	Telemetry int `json:"telemetry"`
	Events    int `json:"events"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Store     string    `json:"store"`
	Redis     string    `json:"redis"`
	Uptime    string    `json:"uptime"`
}

// StatsResponse содержит статистику сервиса
type StatsResponse struct {
	IngestedTelemetry int64 `json:"ingested_telemetry"`
	IngestedEvents    int64 `json:"ingested_events"`
	SummariesComputed int64 `json:"summaries_computed"`
	Rooms             int   `json:"rooms"`
}
