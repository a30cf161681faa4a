package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestIDHeader заголовок идентификатора запроса
const RequestIDHeader = "X-Request-ID"

// NewRouter регистрирует маршруты API
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/rooms", h.RoomsHandler).Methods("GET")
	router.HandleFunc("/rooms/{room}/summary", h.SummaryHandler).Methods("GET")
	router.HandleFunc("/rooms/{room}/status", h.StatusHandler).Methods("GET")
	router.HandleFunc("/rooms/{room}/events", h.EventsHandler).Methods("GET")
	router.HandleFunc("/telemetry", h.TelemetryHandler).Methods("POST")
	router.HandleFunc("/events", h.EventHandler).Methods("POST")
	router.HandleFunc("/health", h.HealthHandler).Methods("GET")
	router.HandleFunc("/stats", h.StatsHandler).Methods("GET")

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	router.Use(requestIDMiddleware)

	return router
}

// requestIDMiddleware проставляет X-Request-ID, сохраняя пришедший от клиента
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
