// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"smartroom-analytics/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroom_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartroom_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// RecordsIngested количество принятых записей по типу
	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroom_records_ingested_total",
			Help: "Total number of telemetry and event records ingested",
		},
		[]string{"kind", "source"},
	)

	// RecordsRejected записи, отклоненные при приеме
	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartroom_records_rejected_total",
			Help: "Total number of records rejected on ingestion",
		},
		[]string{"source"},
	)

	// SummariesComputed количество рассчитанных сводок
	SummariesComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartroom_summaries_computed_total",
			Help: "Total number of room summaries computed",
		},
	)

	// SummaryErrors ошибки расчета сводок
	SummaryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartroom_summary_errors_total",
			Help: "Total number of failed summary computations",
		},
	)

	// CacheHits попадания в кэш
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartroom_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses промахи кэша
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smartroom_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smartroom_active_goroutines",
			Help: "Number of active goroutines",
		},
	)

	// SummaryLatency время расчета сводки
	SummaryLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smartroom_summary_latency_seconds",
			Help:    "Summary computation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	// RoomVisits количество входов в комнату
	RoomVisits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_visits",
			Help: "Number of times the room was entered",
		},
		[]string{"room"},
	)

	// RoomDeviceSeconds время работы устройств
	RoomDeviceSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_device_on_seconds",
			Help: "Total closed on-time of a device in seconds",
		},
		[]string{"room", "device"},
	)

	// RoomOccupiedSeconds суммарное время занятости
	RoomOccupiedSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_occupied_seconds",
			Help: "Total duration of completed visits in seconds",
		},
		[]string{"room"},
	)

	// RoomAutoPercent доля снимков в автоматическом режиме
	RoomAutoPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_automation_percent",
			Help: "Share of snapshots in automatic mode",
		},
		[]string{"room"},
	)

	// RoomResponseSeconds средняя задержка реакции
	RoomResponseSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_response_seconds",
			Help: "Average device response time to occupancy changes",
		},
		[]string{"room"},
	)

	// RoomControlEvents события управления по типу
	RoomControlEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartroom_room_control_events",
			Help: "Number of control events by type",
		},
		[]string{"room", "type"},
	)
)

// UpdateRoomMetrics обновляет метрики комнаты по сводке
func UpdateRoomMetrics(s models.RoomSummary) {
	room := s.DeviceID
	RoomVisits.WithLabelValues(room).Set(float64(s.Visits))
	RoomDeviceSeconds.WithLabelValues(room, "fan").Set(float64(s.FanSeconds))
	RoomDeviceSeconds.WithLabelValues(room, "led").Set(float64(s.LEDSeconds))
	RoomOccupiedSeconds.WithLabelValues(room).Set(float64(s.Occupancy.TotalSeconds))
	RoomAutoPercent.WithLabelValues(room).Set(s.Efficiency.AutoPct)
	RoomResponseSeconds.WithLabelValues(room).Set(s.Response.AvgSeconds)
	RoomControlEvents.WithLabelValues(room, string(models.EventManualLED)).Set(float64(s.Overrides.ManualLED))
	RoomControlEvents.WithLabelValues(room, string(models.EventManualFan)).Set(float64(s.Overrides.ManualFan))
	RoomControlEvents.WithLabelValues(room, string(models.EventAutoOn)).Set(float64(s.Overrides.AutoOn))
	RoomControlEvents.WithLabelValues(room, string(models.EventAutoOff)).Set(float64(s.Overrides.AutoOff))
}
