// Package main - Lambda функция загрузки выгрузок комнат из S3 в хранилище
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"smartroom-analytics/internal/backfill"
	"smartroom-analytics/internal/service"
	"smartroom-analytics/internal/store"
)

// Handler обрабатывает уведомление S3 о новых объектах
func Handler(ctx context.Context, s3Event events.S3Event) error {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return fmt.Errorf("MONGO_URI is not set")
	}
	mongoDatabase := getEnv("MONGO_DATABASE", "smartroom")

	repo, err := store.NewMongoStore(mongoURI, mongoDatabase)
	if err != nil {
		return err
	}
	defer repo.Close(context.Background())

	reader, err := backfill.NewS3Reader(ctx)
	if err != nil {
		return err
	}

	// Кэш не нужен: сервер пересчитает сводки по таймеру
	svc := service.NewService(repo, nil, nil)
	loader := backfill.NewLoader(reader, svc, 0)

	var failed int
	for _, record := range s3Event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}

		if _, err := loader.LoadObject(ctx, bucket, key); err != nil {
			log.Printf("Failed to load s3://%s/%s: %v", bucket, key, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed", failed, len(s3Event.Records))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	lambda.Start(Handler)
}
