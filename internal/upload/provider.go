package upload

import (
	"context"
	"io"
)

// Provider stores run artifacts in a remote object store.
type Provider interface {
	// Upload stores the content of reader at remotePath.
	Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error

	// Configure connects the provider using settings.
	Configure(ctx context.Context, settings Settings) error

	// Name returns the provider name.
	Name() string
}

// Settings configures a provider. Credentials come from the environment.
type Settings struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	Secure    bool
	AccessKey string
	SecretKey string
}
