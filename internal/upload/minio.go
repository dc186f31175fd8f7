package upload

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultRegion     = "us-east-1"
	defaultS3Endpoint = "s3.amazonaws.com"
)

// MinioProvider uploads to MinIO or any S3-compatible store.
type MinioProvider struct {
	name   string
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioProvider creates an unconfigured provider registered under name.
func NewMinioProvider(name string) *MinioProvider {
	return &MinioProvider{name: name}
}

// Name returns the provider name.
func (m *MinioProvider) Name() string {
	return m.name
}

// Configure creates the client and checks that the bucket exists.
func (m *MinioProvider) Configure(ctx context.Context, settings Settings) error {
	endpoint := settings.Endpoint
	if endpoint == "" && m.name == "s3" {
		endpoint = defaultS3Endpoint
	}
	if endpoint == "" {
		return fmt.Errorf("%s: endpoint is required", m.name)
	}
	if settings.Bucket == "" {
		return fmt.Errorf("%s: bucket is required", m.name)
	}
	if settings.AccessKey == "" || settings.SecretKey == "" {
		return fmt.Errorf("%s: access key and secret key are required", m.name)
	}
	region := settings.Region
	if region == "" {
		region = defaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.AccessKey, settings.SecretKey, ""),
		Secure: settings.Secure,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("%s: create client: %w", m.name, err)
	}
	exists, err := client.BucketExists(ctx, settings.Bucket)
	if err != nil {
		return fmt.Errorf("%s: check bucket: %w", m.name, err)
	}
	if !exists {
		return fmt.Errorf("%s: bucket %s does not exist", m.name, settings.Bucket)
	}

	m.client = client
	m.bucket = settings.Bucket
	m.prefix = settings.Prefix
	return nil
}

// Upload stores reader under the configured prefix.
func (m *MinioProvider) Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error {
	if m.client == nil {
		return fmt.Errorf("%s: provider not configured", m.name)
	}
	objectName := remotePath
	if m.prefix != "" {
		objectName = path.Join(m.prefix, remotePath)
	}
	if _, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType(objectName),
	}); err != nil {
		return fmt.Errorf("%s: upload %s: %w", m.name, objectName, err)
	}
	return nil
}

func contentType(objectName string) string {
	switch path.Ext(objectName) {
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
