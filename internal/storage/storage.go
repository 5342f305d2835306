// Package storage fetches module repositories that supply the provided
// classpath, from plain directories, local archives, HTTP servers and object
// storage, and keeps them in an on-disk cache.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/depdiscover/pkg/config"
)

// Storage is an object store holding repository archives and published
// result files.
type Storage interface {
	// Fetch copies the object at key to a local file.
	Fetch(ctx context.Context, key string, localPath string) error

	// Publish uploads a local file to key.
	Publish(ctx context.Context, key string, localPath string) error

	// Exists checks if an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a printable location for key.
	URL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(cosConfig(cfg, cfg.Bucket))
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// Opener returns the object store serving a repository URL.
type Opener func(u *url.URL) (Storage, error)

// ConfigOpener serves cos://bucket/key URLs with the configured credentials
// and local://key URLs from the configured local path.
func ConfigOpener(cfg *config.StorageConfig) Opener {
	return func(u *url.URL) (Storage, error) {
		switch StorageType(u.Scheme) {
		case StorageTypeCOS:
			if u.Host == "" {
				return nil, fmt.Errorf("missing bucket in %s", u.Redacted())
			}
			return NewCOSStorage(cosConfig(cfg, u.Host))
		case StorageTypeLocal:
			return NewLocalStorage(cfg.LocalPath)
		default:
			return nil, fmt.Errorf("unsupported storage scheme: %s", u.Scheme)
		}
	}
}

// ObjectKey returns the object key addressed by a storage URL. For local
// URLs the host is the first path segment.
func ObjectKey(u *url.URL) string {
	key := strings.TrimPrefix(u.Path, "/")
	if StorageType(u.Scheme) == StorageTypeLocal && u.Host != "" {
		return u.Host + "/" + key
	}
	return key
}

func cosConfig(cfg *config.StorageConfig, bucket string) *COSConfig {
	return &COSConfig{
		Bucket:    bucket,
		Region:    cfg.Region,
		SecretID:  cfg.SecretID,
		SecretKey: cfg.SecretKey,
		Domain:    cfg.Domain,
		Scheme:    cfg.Scheme,
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	storageType := StorageType(cfg.Type)

	// Empty type defaults to local
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	if storageType != StorageTypeCOS && storageType != StorageTypeLocal {
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if storageType == StorageTypeCOS {
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	}

	if storageType == StorageTypeLocal && cfg.LocalPath == "" {
		return fmt.Errorf("local storage path is required")
	}

	return nil
}
