package template

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jmcallister/fleetreport/internal/config"
)

// ObjectSource fetches raw template bytes from object storage.
type ObjectSource interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Source implements ObjectSource over MinIO/S3.
type S3Source struct {
	client *minio.Client
}

// NewS3Source creates a MinIO client from the Config. Returns a nil
// ObjectSource (and no error) when no endpoint is configured; storage://
// references then fail at resolution time with a configuration error.
func NewS3Source(cfg *config.Config) (ObjectSource, error) {
	if cfg.S3Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3Source{client: client}, nil
}

// Fetch downloads one object in full.
func (s *S3Source) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return buf, nil
}
