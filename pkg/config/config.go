// Package config provides configuration management for the dependency discoverer.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/depdiscover/pkg/errors"
)

// EnvPrefix prefixes every environment variable override,
// e.g. DEPDISCOVER_DATABASE_TYPE.
const EnvPrefix = "DEPDISCOVER"

// RepositoryNone disables the provided-classpath repository.
const RepositoryNone = "none"

// Config holds all configuration for the application.
type Config struct {
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Log        LogConfig        `mapstructure:"log"`
}

// DiscoveryConfig holds the analysis inputs and output settings.
type DiscoveryConfig struct {
	ProjectDir           string   `mapstructure:"project_dir"`
	Classpath            []string `mapstructure:"classpath"`
	AgainstClasspath     []string `mapstructure:"against_classpath"`
	ProvidedClasspathDir string   `mapstructure:"provided_classpath_dir"`
	EntryPoints          []string `mapstructure:"entry_points"`
	OutputFile           string   `mapstructure:"output_file"`
	OutputFormat         string   `mapstructure:"output_format"` // text, xml or json
	MaxHierarchyDepth    int      `mapstructure:"max_hierarchy_depth"`
	IndexWorkers         int      `mapstructure:"index_workers"`
}

// CacheConfig holds the download and extraction cache settings.
type CacheConfig struct {
	Dir   string `mapstructure:"dir"`
	Clean bool   `mapstructure:"clean"`
}

// RepositoryConfig selects where the provided classpath comes from.
// At most one of the fields may be set.
type RepositoryConfig struct {
	URL  string `mapstructure:"url"`
	Dir  string `mapstructure:"dir"`
	File string `mapstructure:"file"`
}

// StorageConfig holds object storage configuration for cos:// repositories.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage

	// PublishPrefix, when set, uploads each result file under
	// <prefix>/<run id>/ in the configured store.
	PublishPrefix string `mapstructure:"publish_prefix"`
}

// DatabaseConfig holds run store connection configuration.
type DatabaseConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Type             string `mapstructure:"type"` // sqlite, mysql or postgres
	Mode             string `mapstructure:"mode"` // gorm or sql
	Path             string `mapstructure:"path"` // sqlite file
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Database         string `mapstructure:"database"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	MaxConns         int    `mapstructure:"max_conns"`
	CompressionLevel string `mapstructure:"compression_level"` // fastest, default or best
}

// GraphConfig holds the Neo4j export configuration.
type GraphConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URI       string `mapstructure:"uri"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Database  string `mapstructure:"database"`
	BatchSize int    `mapstructure:"batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty logs to stderr
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("depdiscover")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/depdiscover")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "config validation failed", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an in-memory document (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := LoadFromReader("yaml", nil)
	if err != nil {
		// defaults alone always unmarshal
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("discovery.project_dir", "")
	v.SetDefault("discovery.classpath", []string{"classpath"})
	v.SetDefault("discovery.against_classpath", []string{})
	v.SetDefault("discovery.provided_classpath_dir", "providedClasspath")
	v.SetDefault("discovery.entry_points", []string{"*"})
	v.SetDefault("discovery.output_file", "result.txt")
	v.SetDefault("discovery.output_format", "text")
	v.SetDefault("discovery.max_hierarchy_depth", 256)
	v.SetDefault("discovery.index_workers", 0)

	v.SetDefault("cache.dir", DefaultCacheDir())
	v.SetDefault("cache.clean", false)

	v.SetDefault("repository.url", "")
	v.SetDefault("repository.dir", "")
	v.SetDefault("repository.file", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.domain", "myqcloud.com")
	v.SetDefault("storage.publish_prefix", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.mode", "gorm")
	v.SetDefault("database.path", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.compression_level", "default")

	v.SetDefault("graph.enabled", false)
	v.SetDefault("graph.uri", "neo4j://localhost:7687")
	v.SetDefault("graph.user", "neo4j")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.batch_size", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
}

// DefaultCacheDir returns ~/.depdiscover/caches/dd, or a relative directory
// when the home directory is unknown.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".depdiscover", "caches", "dd")
	}
	return filepath.Join(home, ".depdiscover", "caches", "dd")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "mysql", "postgres":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported database type: %s", c.Database.Type)
	}
	switch strings.ToLower(c.Database.Mode) {
	case "", "gorm", "sql":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported database mode: %s", c.Database.Mode)
	}
	if c.Database.Enabled && c.Database.Type != "sqlite" && c.Database.Host == "" {
		return apperrors.New(apperrors.CodeConfigError, "database host is required")
	}

	if c.Discovery.MaxHierarchyDepth < 1 {
		return apperrors.New(apperrors.CodeConfigError, "max hierarchy depth must be at least 1")
	}
	if c.Discovery.IndexWorkers < 0 {
		return apperrors.New(apperrors.CodeConfigError, "index workers must not be negative")
	}

	set := 0
	for _, v := range []string{c.Repository.URL, c.Repository.Dir, c.Repository.File} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return apperrors.New(apperrors.CodeConfigError, "repository url, dir and file are mutually exclusive")
	}

	if c.Graph.Enabled && c.Graph.URI == "" {
		return apperrors.New(apperrors.CodeConfigError, "graph uri is required when graph export is enabled")
	}

	// Storage config validation is delegated to storage package

	return nil
}

// Resolve returns path relative to the project directory, unless it is
// absolute or empty.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Discovery.ProjectDir == "" {
		return path
	}
	return filepath.Join(c.Discovery.ProjectDir, path)
}

// DatabasePath returns the sqlite file, defaulting to runs.db in the cache directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Cache.Dir, "runs.db")
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func (c *Config) EnsureCacheDir() error {
	if c.Cache.Dir == "" {
		return nil
	}
	return os.MkdirAll(c.Cache.Dir, 0755)
}
