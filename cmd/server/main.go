// Package main запускает сервис аналитики умных комнат
// Сервис реализует:
// - HTTP API для приема телеметрии и событий управления
// - Расчет метрик занятости, работы устройств и автоматизации
// - Периодический пересчет сводок пулом воркеров
// - Кэширование в Redis
// - Экспорт метрик в Prometheus
package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"smartroom-analytics/internal/cache"
	"smartroom-analytics/internal/handlers"
	"smartroom-analytics/internal/metrics"
	"smartroom-analytics/internal/report"
	"smartroom-analytics/internal/service"
	"smartroom-analytics/internal/store"
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr      string
	Store           string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	WorkerCount     int
	BufferSize      int
	RefreshInterval time.Duration
	DisplayOffset   int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	log.Println("Starting Smart Room Analytics...")
	log.Printf("Go version: %s", runtime.Version())
	log.Printf("NumCPU: %d", runtime.NumCPU())

	// Загружаем конфигурацию
	cfg := loadConfig()

	// Подключаем хранилище
	repo, closeStore, err := store.Open(cfg.Store, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Инициализируем Redis кэш
	var redisCache *cache.RedisCache

	// Пробуем подключиться к Redis с повторами
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err = cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		cancel()
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
			break
		}
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < 4 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	// Интерфейс с nil-указателем внутри не равен nil, поэтому передаем кэш явно
	var summaryCache service.SummaryCache
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis, running without cache: %v", err)
		redisCache = nil
	} else {
		summaryCache = redisCache
	}

	svc := service.NewService(repo, summaryCache, report.DisplayZone(cfg.DisplayOffset))

	// Пул пересчета сводок
	refresher := service.NewRefresher(svc, cfg.BufferSize)
	refresher.Start(cfg.WorkerCount)
	log.Printf("Summary refresher started with %d workers", cfg.WorkerCount)

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	go refresher.Run(refreshCtx, cfg.RefreshInterval)

	// Запускаем горутину для обработки результатов пересчета
	go processRefreshResults(refresher)

	// Запускаем горутину для обновления метрик
	go updateMetricsLoop()

	// Создаем обработчики и маршруты
	handler := handlers.NewHandler(svc)
	router := handlers.NewRouter(handler)

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	// Создаем HTTP сервер с настройками таймаутов
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      gorillahandlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		log.Printf("Endpoints:")
		log.Printf("  GET  /rooms                 - Known rooms")
		log.Printf("  GET  /rooms/{room}/summary  - Room analytics summary")
		log.Printf("  GET  /rooms/{room}/status   - Current room state")
		log.Printf("  GET  /rooms/{room}/events   - Recent control events")
		log.Printf("  POST /telemetry             - Submit telemetry snapshots")
		log.Printf("  POST /events                - Submit control events")
		log.Printf("  GET  /health                - Health check")
		log.Printf("  GET  /stats                 - Service statistics")
		log.Printf("  GET  /prometheus            - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-stop
	log.Println("Shutting down server...")

	// Контекст с таймаутом для завершения
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Завершаем HTTP сервер
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Останавливаем пересчет
	stopRefresh()
	refresher.Stop()

	// Закрываем Redis
	if redisCache != nil {
		redisCache.Close()
	}

	if err := closeStore(ctx); err != nil {
		log.Printf("Store close error: %v", err)
	}

	log.Println("Server stopped")
}

// loadConfig загружает конфигурацию из переменных окружения
func loadConfig() Config {
	return Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		Store:           getEnv("STORE", store.KindMongo),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "smartroom"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTL:        getEnvDuration("CACHE_TTL", cache.DefaultTTL),
		WorkerCount:     getEnvInt("WORKER_COUNT", runtime.NumCPU()),
		BufferSize:      getEnvInt("BUFFER_SIZE", 1000),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 3*time.Second),
		DisplayOffset:   getEnvInt("DISPLAY_UTC_OFFSET_HOURS", 8),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
	}
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration получает длительность вида "3s"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}

// updateMetricsLoop периодически обновляет метрики Prometheus
func updateMetricsLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}

// processRefreshResults обрабатывает результаты пересчета
func processRefreshResults(refresher *service.Refresher) {
	for result := range refresher.Results() {
		if result.Err != nil {
			log.Printf("Refresh of %s failed: %v", result.DeviceID, result.Err)
			continue
		}
		if result.Duration > time.Second {
			log.Printf("Slow refresh of %s: %s (%d snapshots)",
				result.DeviceID, result.Duration, result.Summary.Snapshots)
		}
	}
}
