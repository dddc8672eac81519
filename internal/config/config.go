// Package config loads and validates the service configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Conf holds the configuration loaded by Init.
var Conf Config

// Config mirrors the structure of configs/config.yaml.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Vector        VectorConfig        `mapstructure:"vector"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Qdrant        QdrantConfig        `mapstructure:"qdrant"`
	Duplicate     DuplicateConfig     `mapstructure:"duplicate"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the relational store and redis settings.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | mysql | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig holds the report task queue settings.
type KafkaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Brokers     string `mapstructure:"brokers"`
	Topic       string `mapstructure:"topic"`
	GroupID     string `mapstructure:"group_id"`
	MaxAttempts int64  `mapstructure:"max_attempts"`
}

// MinIOConfig holds the image storage settings.
type MinIOConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	BucketName      string        `mapstructure:"bucket_name"`
	URLExpiry       time.Duration `mapstructure:"url_expiry"`
}

// ProviderConfig describes one embedding provider.
type ProviderConfig struct {
	Provider string `mapstructure:"provider"` // compatible | openai | gemini
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
}

// EmbeddingConfig holds the embedding provider chain.
type EmbeddingConfig struct {
	Primary    ProviderConfig `mapstructure:"primary"`
	Fallback   ProviderConfig `mapstructure:"fallback"`
	Dimensions int            `mapstructure:"dimensions"`
	Timeout    time.Duration  `mapstructure:"timeout"`
	CacheTTL   time.Duration  `mapstructure:"cache_ttl"`
}

// LLMConfig holds the chat model used for classification.
type LLMConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Backend string `mapstructure:"backend"` // pgvector | elasticsearch | qdrant | memory
}

// ElasticsearchConfig holds the Elasticsearch vector index settings.
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// QdrantConfig holds the Qdrant collection settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// DuplicateConfig holds the thresholds used by the analysis pipeline.
type DuplicateConfig struct {
	// Threshold is the similarity at which a report becomes a candidate.
	Threshold float64 `mapstructure:"threshold"`
	// DuplicateThreshold is the similarity at which a candidate is linked as a duplicate rather than similar.
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
	Limit              int     `mapstructure:"limit"`
}

// RateLimitConfig limits report intake.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// setDefaults registers the values used when config.yaml omits a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8002")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("kafka.topic", "dira-reports")
	v.SetDefault("kafka.group_id", "dira-report-pipeline")
	v.SetDefault("kafka.max_attempts", 3)

	v.SetDefault("minio.bucket_name", "dira-reports")
	v.SetDefault("minio.url_expiry", time.Hour)

	v.SetDefault("embedding.primary.provider", "compatible")
	v.SetDefault("embedding.primary.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("embedding.cache_ttl", 7*24*time.Hour)

	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 30*time.Second)

	v.SetDefault("vector.backend", "pgvector")
	v.SetDefault("elasticsearch.index_name", "dira_reports")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "dira_reports")

	v.SetDefault("duplicate.threshold", 0.85)
	v.SetDefault("duplicate.duplicate_threshold", 0.9)
	v.SetDefault("duplicate.limit", 10)

	v.SetDefault("ratelimit.requests_per_second", 5.0)
	v.SetDefault("ratelimit.burst", 10)
}

// Load reads the YAML file at configPath, applies DIRA_* environment overrides and validates the result.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DIRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Init loads the configuration into Conf and panics on failure.
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}
	Conf = cfg
}

// Validate checks value ranges and backend/driver compatibility.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres, mysql or sqlite, got %q", c.Database.Driver))
	}

	switch c.Vector.Backend {
	case "pgvector":
		if c.Database.Driver != "postgres" {
			errs = append(errs, errors.New("vector.backend pgvector requires database.driver postgres"))
		}
	case "elasticsearch":
		if c.Elasticsearch.Addresses == "" {
			errs = append(errs, errors.New("elasticsearch.addresses is required for the elasticsearch backend"))
		}
	case "qdrant":
		if c.Qdrant.Host == "" {
			errs = append(errs, errors.New("qdrant.host is required for the qdrant backend"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector.backend %q", c.Vector.Backend))
	}

	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions))
	}
	if c.Duplicate.Threshold < 0 || c.Duplicate.Threshold > 1 {
		errs = append(errs, fmt.Errorf("duplicate.threshold must be within [0,1], got %v", c.Duplicate.Threshold))
	}
	if c.Duplicate.DuplicateThreshold < 0 || c.Duplicate.DuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("duplicate.duplicate_threshold must be within [0,1], got %v", c.Duplicate.DuplicateThreshold))
	}
	if c.Duplicate.Limit <= 0 {
		errs = append(errs, fmt.Errorf("duplicate.limit must be positive, got %d", c.Duplicate.Limit))
	}
	if c.Kafka.Enabled && c.Kafka.Brokers == "" {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	if c.Kafka.Enabled && c.Database.Redis.Addr == "" {
		// The consumer counts task attempts in redis.
		errs = append(errs, errors.New("database.redis.addr is required when kafka is enabled"))
	}

	return errors.Join(errs...)
}
