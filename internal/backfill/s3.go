package backfill

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Reader читает объекты из S3
type S3Reader struct {
	client *s3.Client
}

// NewS3Reader создает клиент S3 из стандартной конфигурации AWS
func NewS3Reader(ctx context.Context) (*S3Reader, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Reader{client: s3.NewFromConfig(cfg)}, nil
}

// GetObjectStream возвращает содержимое объекта; закрыть его должен вызывающий
func (r *S3Reader) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	log.Printf("Fetching s3://%s/%s", bucket, key)

	resp, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}
