package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore archives artifacts to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCS builds a GCSStore using ambient credentials.
func NewGCS(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// PutObject uploads data to the bucket at path and returns the gs://
// location.
func (s *GCSStore) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs finalize %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
