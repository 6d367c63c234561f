package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jonesrussell/north-cloud/reader/internal/keyword"
	"github.com/jonesrussell/north-cloud/reader/internal/logger"
)

// DefaultPath is the config file read when neither --config nor CONFIG_PATH is set.
const DefaultPath = "config.yml"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the reader service configuration.
type Config struct {
	Logging   logger.Config   `yaml:"logging"`
	HTTP      HTTPConfig      `yaml:"http"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Keywords  KeywordsConfig  `yaml:"keywords"`
	Relation  RelationConfig  `yaml:"relation"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// HTTPConfig controls every outbound fetch.
type HTTPConfig struct {
	Timeout   time.Duration `env:"READER_HTTP_TIMEOUT" yaml:"timeout"`
	UserAgent string        `env:"READER_USER_AGENT"   yaml:"user_agent"`
}

// DiscoveryConfig controls feed discovery.
type DiscoveryConfig struct {
	ProbeConcurrency int      `env:"READER_PROBE_CONCURRENCY" yaml:"probe_concurrency"`
	ProbePaths       []string `yaml:"probe_paths"`
}

// IngestConfig controls the ingestion engine.
type IngestConfig struct {
	MaxParallel int           `env:"READER_INGEST_PARALLEL" yaml:"max_parallel"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	Retries     int           `env:"READER_INGEST_RETRIES" yaml:"retries"`
}

// KeywordsConfig controls keyword extraction and its cache.
type KeywordsConfig struct {
	// MaxKeywords bounds both the vectors stored with articles and the cached ones.
	MaxKeywords int      `yaml:"max_keywords"`
	CacheSize   int      `yaml:"cache_size"`
	Languages   []string `env:"READER_STOPWORD_LANGUAGES" yaml:"languages"`
}

// RelationConfig controls related-article lookups.
type RelationConfig struct {
	MaxResults int `yaml:"max_results"`
	Workers    int `yaml:"workers"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `env:"READER_STORAGE" yaml:"driver"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	DBName   string `env:"POSTGRES_DB"       yaml:"dbname"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, strconv.Itoa(c.Port), c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig enables the cross-process ingestion lock.
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED"  yaml:"enabled"`
	Address  string `env:"REDIS_ADDRESS"  yaml:"address"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB"       yaml:"db"`
}

// MetricsConfig controls the prometheus textfile dump written after ingestion.
type MetricsConfig struct {
	Textfile string `env:"READER_METRICS_TEXTFILE" yaml:"textfile"`
}

// Default values.
const (
	DefaultHTTPTimeout      = 15 * time.Second
	DefaultUserAgent        = "NorthCloudReader/1.0"
	DefaultProbeConcurrency = 6
	DefaultIngestParallel   = 4
	DefaultMaxKeywords      = keyword.DefaultMaxKeywords
	DefaultLockTTL          = 2 * time.Minute
	DefaultCacheSize        = keyword.DefaultCacheSize
	DefaultRelatedResults   = 10
	DefaultRelationWorkers  = 4
	defaultPostgresPort     = 5432
	defaultRedisAddress     = "localhost:6379"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()

	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultHTTPTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = DefaultUserAgent
	}
	if c.Discovery.ProbeConcurrency == 0 {
		c.Discovery.ProbeConcurrency = DefaultProbeConcurrency
	}
	if c.Ingest.MaxParallel == 0 {
		c.Ingest.MaxParallel = DefaultIngestParallel
	}
	if c.Ingest.LockTTL == 0 {
		c.Ingest.LockTTL = DefaultLockTTL
	}
	if c.Keywords.MaxKeywords == 0 {
		c.Keywords.MaxKeywords = DefaultMaxKeywords
	}
	if c.Keywords.CacheSize == 0 {
		c.Keywords.CacheSize = DefaultCacheSize
	}
	if c.Relation.MaxResults == 0 {
		c.Relation.MaxResults = DefaultRelatedResults
	}
	if c.Relation.Workers == 0 {
		c.Relation.Workers = DefaultRelationWorkers
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultPostgresPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Address == "" {
		c.Redis.Address = defaultRedisAddress
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}

	if c.HTTP.Timeout < 0 {
		return &ValidationError{Field: "http.timeout", Message: "must not be negative"}
	}
	if c.Discovery.ProbeConcurrency < 1 {
		return &ValidationError{Field: "discovery.probe_concurrency", Message: "must be at least 1"}
	}
	if c.Ingest.MaxParallel < 1 {
		return &ValidationError{Field: "ingest.max_parallel", Message: "must be at least 1"}
	}
	if c.Keywords.MaxKeywords < 1 {
		return &ValidationError{Field: "keywords.max_keywords", Message: "must be at least 1"}
	}
	if c.Keywords.CacheSize < 1 {
		return &ValidationError{Field: "keywords.cache_size", Message: "must be at least 1"}
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return &ValidationError{Field: "database.host", Message: "is required for the postgres driver"}
		}
		if c.Database.DBName == "" {
			return &ValidationError{Field: "database.dbname", Message: "is required for the postgres driver"}
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return &ValidationError{Field: "database.port", Message: "must be between 1 and 65535"}
		}
	default:
		return &ValidationError{Field: "storage.driver", Message: "must be one of: memory, postgres"}
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Message: "is required when redis is enabled"}
	}

	return nil
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadConfig reads path, applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := LoadWithDefaults[Config](path, (*Config).SetDefaults)
	if err != nil {
		return nil, err
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid config: %w", validateErr)
	}

	return cfg, nil
}
