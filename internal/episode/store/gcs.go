package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// GCSStore writes artifacts to a Google Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	logger *zerolog.Logger
}

// NewGCSStore connects to the bucket using ambient credentials.
func NewGCSStore(ctx context.Context, bucket string, logger *zerolog.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	return &GCSStore{
		bucket: client.Bucket(bucket),
		name:   bucket,
		logger: logger,
	}, nil
}

// Put uploads one object and returns its gs:// location.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	writer := s.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		writer.Close()

		return "", fmt.Errorf("write gs://%s/%s: %w", s.name, key, err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", s.name, key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("artifact uploaded")

	return fmt.Sprintf("gs://%s/%s", s.name, key), nil
}
