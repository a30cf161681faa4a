// Package handlers содержит HTTP обработчики для API
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"smartroom-analytics/internal/analytics"
	"smartroom-analytics/internal/metrics"
	"smartroom-analytics/internal/models"
	"smartroom-analytics/internal/report"
	"smartroom-analytics/internal/service"
)

const (
	// DefaultEventLimit сколько событий отдавать по умолчанию
	DefaultEventLimit = 10
	// MaxEventLimit верхняя граница параметра limit
	MaxEventLimit = 1000
	// SourceHTTP метка источника для метрик
	SourceHTTP = "http"

	maxBodyBytes = 4 << 20
)

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	svc       *service.Service
	startTime time.Time
}

// NewHandler создает новый обработчик
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		svc:       svc,
		startTime: time.Now(),
	}
}

// RoomsHandler обрабатывает GET /rooms - список комнат
func (h *Handler) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rooms"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	rooms, err := h.svc.Rooms(r.Context())
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, map[string]interface{}{"rooms": rooms})
}

// SummaryHandler обрабатывает GET /rooms/{room}/summary - все метрики комнаты
func (h *Handler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rooms/{room}/summary"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	summary, err := h.svc.Summary(r.Context(), mux.Vars(r)["room"])
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, models.SummaryView{
		Summary: summary,
		Display: report.Display(summary),
	})
}

// StatusHandler обрабатывает GET /rooms/{room}/status - текущее состояние
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rooms/{room}/status"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	status, err := h.svc.Status(r.Context(), mux.Vars(r)["room"])
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, status)
}

// EventsHandler обрабатывает GET /rooms/{room}/events - журнал событий
func (h *Handler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rooms/{room}/events"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	limit := DefaultEventLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= MaxEventLimit {
			limit = l
		}
	}

	entries, err := h.svc.EventLog(r.Context(), mux.Vars(r)["room"], limit)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, entries)
}

// TelemetryHandler обрабатывает POST /telemetry - прием снимков
func (h *Handler) TelemetryHandler(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "/telemetry", false)
}

// EventHandler обрабатывает POST /events - прием событий
func (h *Handler) EventHandler(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "/events", true)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, endpoint string, events bool) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	records, err := decodeRecords(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, "400").Inc()
		return
	}

	for i, rec := range records {
		if models.IsEvent(rec) != events {
			h.respondError(w, fmt.Sprintf("record %d: wrong kind for %s", i, endpoint), http.StatusBadRequest)
			metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, "400").Inc()
			return
		}
	}

	result, err := h.svc.Ingest(r.Context(), records, SourceHTTP)
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, result)
}

// decodeRecords принимает один JSON объект или массив объектов
func decodeRecords(body io.Reader) ([]models.Record, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var records []models.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		for i, rec := range records {
			if rec == nil {
				return nil, fmt.Errorf("record %d is null", i)
			}
		}
		return records, nil
	}

	var rec models.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New("empty payload")
	}
	return []models.Record{rec}, nil
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	storeStatus, redisStatus := h.svc.Health(r.Context())

	status := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Store:     storeStatus,
		Redis:     redisStatus,
		Uptime:    time.Since(h.startTime).String(),
	}

	code := http.StatusOK
	if storeStatus != "connected" {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, status, code)
}

// StatsHandler обрабатывает GET /stats - статистика сервиса
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/stats"
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
	defer timer.ObserveDuration()

	// Обновляем метрику горутин
	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, endpoint, err)
		return
	}
	h.ok(w, r, endpoint, stats)
}

// statusFor сопоставляет ошибку сервиса с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNoTelemetry):
		return http.StatusNotFound
	case errors.Is(err, analytics.ErrUnordered):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request, endpoint string, data interface{}) {
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, "200").Inc()
	h.respondJSON(w, data, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	code := statusFor(err)
	metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(code)).Inc()
	h.respondError(w, err.Error(), code)
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
