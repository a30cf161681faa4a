// Package backfill загружает исторические записи комнат из выгрузок в S3
package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"smartroom-analytics/internal/models"
)

const (
	// BatchSize сколько записей сохранять за одну вставку
	BatchSize = 1000
	// SourceS3 метка источника для метрик
	SourceS3 = "s3"
)

// ObjectReader отдает поток объекта хранилища
type ObjectReader interface {
	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Ingester сохраняет пачку записей (реализация: service.Service)
type Ingester interface {
	Ingest(ctx context.Context, records []models.Record, source string) (models.IngestResult, error)
}

// Loader читает JSON массив записей и сохраняет его пачками параллельно
type Loader struct {
	objects   ObjectReader
	ingester  Ingester
	batchSize int
}

// NewLoader создает загрузчик; batchSize <= 0 означает BatchSize
func NewLoader(objects ObjectReader, ingester Ingester, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = BatchSize
	}
	return &Loader{
		objects:   objects,
		ingester:  ingester,
		batchSize: batchSize,
	}
}

// LoadObject загружает объект s3://bucket/key.
// Элементы, не являющиеся объектами, пропускаются; синтаксическая ошибка
// или запись, которую не разберет аналитика, прерывает загрузку.
func (l *Loader) LoadObject(ctx context.Context, bucket, key string) (models.IngestResult, error) {
	log.Printf("Starting backfill from s3://%s/%s", bucket, key)

	body, err := l.objects.GetObjectStream(ctx, bucket, key)
	if err != nil {
		return models.IngestResult{}, err
	}
	defer body.Close()

	decoder := json.NewDecoder(body)
	t, err := decoder.Token()
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("failed to read opening token: %w", err)
	}
	if t != json.Delim('[') {
		return models.IngestResult{}, fmt.Errorf("expected JSON array, found %v", t)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		total   models.IngestResult
		errChan = make(chan error, 1)
		batch   []models.Record
		batches int
		index   int
	)

	flush := func(data []models.Record) {
		batches++
		wg.Add(1)
		go func(num int, data []models.Record) {
			defer wg.Done()
			res, err := l.ingester.Ingest(ctx, data, SourceS3)
			if err != nil {
				select {
				case errChan <- fmt.Errorf("batch %d: %w", num, err):
				default:
				}
				log.Printf("Backfill batch %d failed: %v", num, err)
				return
			}
			mu.Lock()
			total.Telemetry += res.Telemetry
			total.Events += res.Events
			mu.Unlock()
		}(batches, data)
	}

	var loadErr error
	for decoder.More() {
		var rec models.Record
		err := decoder.Decode(&rec)
		index++
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			log.Printf("Skipping element %d: %v", index-1, err)
			continue
		}
		if err != nil {
			loadErr = fmt.Errorf("failed to decode element %d: %w", index-1, err)
			break
		}
		if rec == nil {
			continue
		}

		batch = append(batch, rec)
		if len(batch) >= l.batchSize {
			flush(batch)
			batch = nil
		}
	}
	if loadErr == nil && len(batch) > 0 {
		flush(batch)
	}

	wg.Wait()

	if loadErr != nil {
		return total, loadErr
	}
	select {
	case err := <-errChan:
		return total, fmt.Errorf("backfill of s3://%s/%s failed: %w", bucket, key, err)
	default:
	}

	if t, err := decoder.Token(); err != nil || t != json.Delim(']') {
		return total, fmt.Errorf("expected end of JSON array, found %v (%v)", t, err)
	}

	log.Printf("Backfill of s3://%s/%s done: %d telemetry, %d events in %d batches",
		bucket, key, total.Telemetry, total.Events, batches)
	return total, nil
}
