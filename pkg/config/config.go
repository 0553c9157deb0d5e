// Package config provides configuration management for the core,
// following viper + validator conventions.
package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Common configuration errors.
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceConfig holds common configuration for external service clients.
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model" validate:"required"`
}

// ChunkingConfig defines chunker parameters.
type ChunkingConfig struct {
	TargetTokens  int `mapstructure:"chunk_target_tokens" validate:"required,min=50"`
	MaxTokens     int `mapstructure:"chunk_max_tokens" validate:"required,min=100"`
	OverlapTokens int `mapstructure:"chunk_overlap_tokens" validate:"min=0"`
}

func (c *ChunkingConfig) validate() error {
	if c.TargetTokens == 0 {
		c.TargetTokens = 500
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 800
	}
	if c.OverlapTokens == 0 {
		c.OverlapTokens = 20
	}
	if c.TargetTokens >= c.MaxTokens {
		return fmt.Errorf("%w: chunk_target_tokens must be less than chunk_max_tokens", ErrInvalidConfig)
	}
	if c.OverlapTokens >= c.TargetTokens {
		return fmt.Errorf("%w: chunk_overlap_tokens must be less than chunk_target_tokens", ErrInvalidConfig)
	}
	return nil
}

// EmbeddingConfig defines embedding service parameters.
type EmbeddingConfig struct {
	ServiceConfig     `mapstructure:",squash"`
	BatchSize         int `mapstructure:"embed_batch_size" validate:"min=1"`
	BatchLatencyMS    int `mapstructure:"embed_batch_latency_ms" validate:"min=1"`
	CacheSize         int `mapstructure:"embed_cache_size" validate:"min=1"`
	Retries           int `mapstructure:"embed_retries" validate:"min=0"`
	Dim               int `mapstructure:"vector_dim" validate:"required,min=1"`
	VectorModelID     string `mapstructure:"vector_model_id" validate:"required"`
	BatchTimeoutS     int `mapstructure:"embed_batch_timeout_s" validate:"min=1"`
}

func (c *EmbeddingConfig) validate() error {
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.BatchLatencyMS == 0 {
		c.BatchLatencyMS = 50
	}
	if c.CacheSize == 0 {
		c.CacheSize = 10000
	}
	if c.Retries == 0 {
		c.Retries = 2
	}
	if c.BatchTimeoutS == 0 {
		c.BatchTimeoutS = 30
	}
	return nil
}

// SearchConfig defines search service parameters.
type SearchConfig struct {
	CacheTTLSeconds int `mapstructure:"search_cache_ttl_s" validate:"min=0"`
	TimeoutSeconds  int `mapstructure:"search_timeout_s" validate:"min=1"`
}

func (c *SearchConfig) validate() error {
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 300
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 10
	}
	return nil
}

// ParserConfig defines TOC detection and line classifier thresholds.
type ParserConfig struct {
	TOCSubstantialRun  int  `mapstructure:"toc_substantial_run" validate:"min=1"`
	ContentThreshold   int  `mapstructure:"content_threshold" validate:"min=1"`
	NormalizeTaaMarbuta bool `mapstructure:"normalize_taa_marbuta"`
	NormalizeYaaFinal  bool `mapstructure:"normalize_yaa_final"`
}

func (c *ParserConfig) validate() error {
	if c.TOCSubstantialRun == 0 {
		c.TOCSubstantialRun = 3
	}
	if c.ContentThreshold == 0 {
		c.ContentThreshold = 40
	}
	return nil
}

// Config represents the complete application configuration.
type Config struct {
	Server struct {
		Host string `mapstructure:"host" validate:"required"`
		Port string `mapstructure:"port" validate:"required,numeric"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host" validate:"required,hostname"`
		Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
		User     string `mapstructure:"user" validate:"required"`
		Password string `mapstructure:"password" validate:"required"`
		DBName   string `mapstructure:"dbname" validate:"required"`
	} `mapstructure:"database"`

	Redis struct {
		Host     string `mapstructure:"host" validate:"required,hostname"`
		Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db" validate:"min=0,max=15"`
	} `mapstructure:"redis"`

	MinIO struct {
		Endpoint        string `mapstructure:"endpoint" validate:"required"`
		AccessKeyID     string `mapstructure:"access_key_id" validate:"required"`
		SecretAccessKey string `mapstructure:"secret_access_key" validate:"required"`
		BucketName      string `mapstructure:"bucket_name" validate:"required"`
		UseSSL          bool   `mapstructure:"use_ssl"`
	} `mapstructure:"minio"`

	Chunking  ChunkingConfig  `mapstructure:"chunking"`
	Search    SearchConfig    `mapstructure:"search"`
	Parser    ParserConfig    `mapstructure:"parser"`

	Services struct {
		Embedding EmbeddingConfig `mapstructure:"embedding"`
		Reranker  ServiceConfig   `mapstructure:"reranker"`
		LLM       ServiceConfig   `mapstructure:"llm"`
	} `mapstructure:"services"`
}

// DatabaseDSN builds the pgx connection string for the relational and
// vector stores, which share one Postgres instance (pgvector is an
// extension, not a separate database).
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName)
}

var validate = validator.New()

// Validate performs configuration validation and sets defaults.
func (c *Config) Validate() error {
	if err := c.Chunking.validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}
	if err := c.Services.Embedding.validate(); err != nil {
		return fmt.Errorf("embedding config: %w", err)
	}
	if err := c.Search.validate(); err != nil {
		return fmt.Errorf("search config: %w", err)
	}
	if err := c.Parser.validate(); err != nil {
		return fmt.Errorf("parser config: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("chunking.chunk_target_tokens", 500)
	viper.SetDefault("chunking.chunk_max_tokens", 800)
	viper.SetDefault("chunking.chunk_overlap_tokens", 20)

	viper.SetDefault("search.search_cache_ttl_s", 300)
	viper.SetDefault("search.search_timeout_s", 10)

	viper.SetDefault("parser.toc_substantial_run", 3)
	viper.SetDefault("parser.content_threshold", 40)
	viper.SetDefault("parser.normalize_taa_marbuta", false)
	viper.SetDefault("parser.normalize_yaa_final", true)

	viper.SetDefault("services.embedding.embed_batch_size", 32)
	viper.SetDefault("services.embedding.embed_batch_latency_ms", 50)
	viper.SetDefault("services.embedding.embed_cache_size", 10000)
	viper.SetDefault("services.embedding.embed_retries", 2)
	viper.SetDefault("services.embedding.embed_batch_timeout_s", 30)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("minio.use_ssl", false)
}

// MustLoadConfig loads configuration and panics on failure. Use only in main().
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
