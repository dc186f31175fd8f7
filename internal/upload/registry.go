package upload

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"compasseval/internal/config"
)

// ProviderFactory creates a new provider instance.
type ProviderFactory func() Provider

// Registry maps provider names to factories.
type Registry struct {
	factories map[string]ProviderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ProviderFactory{}}
}

// DefaultRegistry returns a registry with the built-in providers.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register("minio", func() Provider { return NewMinioProvider("minio") })
	registry.Register("s3", func() Provider { return NewMinioProvider("s3") })
	return registry
}

// Register adds or replaces a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.factories[name] = factory
}

// New creates a provider instance by name.
func (r *Registry) New(name string) (Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider %q (registered: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(), nil
}

// Names lists registered providers in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SettingsFromConfig combines the upload config section with
// UPLOAD_ACCESS_KEY and UPLOAD_SECRET_KEY.
func SettingsFromConfig(cfg config.UploadConfig) (Settings, error) {
	settings := Settings{
		Endpoint:  strings.TrimSpace(cfg.Endpoint),
		Bucket:    strings.TrimSpace(cfg.Bucket),
		Prefix:    strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		Region:    strings.TrimSpace(cfg.Region),
		Secure:    cfg.Secure,
		AccessKey: strings.TrimSpace(os.Getenv("UPLOAD_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("UPLOAD_SECRET_KEY")),
	}
	if settings.AccessKey == "" || settings.SecretKey == "" {
		return Settings{}, fmt.Errorf("UPLOAD_ACCESS_KEY and UPLOAD_SECRET_KEY are required for upload")
	}
	return settings, nil
}
