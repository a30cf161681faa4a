// Package main запускает мост MQTT -> хранилище для датчиков комнат
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartroom-analytics/internal/cache"
	"smartroom-analytics/internal/ingest"
	"smartroom-analytics/internal/service"
	"smartroom-analytics/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := ingest.Config{
		Broker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		Topic:    getEnv("MQTT_TOPIC", "building/room1/#"),
		Username: os.Getenv("MQTT_USER"),
		Password: os.Getenv("MQTT_PASS"),
		CAFile:   os.Getenv("MQTT_CA_FILE"),
		ClientID: os.Getenv("MQTT_CLIENT_ID"),
		QoS:      byte(getEnvInt("MQTT_QOS", 1)),
	}

	repo, closeStore, err := store.Open(
		getEnv("STORE", store.KindMongo),
		getEnv("MONGO_URI", "mongodb://localhost:27017"),
		getEnv("MONGO_DATABASE", "smartroom"),
	)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Кэш сервера: сбрасываем сводки комнат, в которые пишем
	var summaryCache service.SummaryCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisCache, err := cache.NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), getEnvInt("REDIS_DB", 0), 0)
		cancel()
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis, summaries will expire by TTL: %v", err)
		} else {
			log.Printf("Connected to Redis at %s", addr)
			defer redisCache.Close()
			summaryCache = redisCache
		}
	}

	svc := service.NewService(repo, summaryCache, nil)
	bridge := ingest.NewBridge(cfg, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting MQTT bridge %s -> %s", cfg.Broker, cfg.Topic)
	if err := bridge.Start(ctx); err != nil {
		log.Fatalf("Bridge error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closeStore(shutdownCtx); err != nil {
		log.Printf("Store close error: %v", err)
	}
	log.Println("Bridge stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
