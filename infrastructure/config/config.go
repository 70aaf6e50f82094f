package config

import (
	"fmt"
	"os"
	"strconv"
)

// SliceFormat selects the staged-slice encoding
type SliceFormat string

const (
	SliceFormatParquet SliceFormat = "parquet"
	SliceFormatJSONL   SliceFormat = "jsonl"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	LogLevel      string

	// Object store configuration
	S3EndpointURL  string
	S3AccessKey    string
	S3SecretKey    string
	S3Region       string
	S3BucketPrefix string

	// Slice format
	SliceFormat SliceFormat

	// Hybrid algorithm policy
	HybridThreshold int

	// IVF-PQ parameters
	IVFPQNList int
	IVFPQM     int
	IVFPQNBits int

	// HNSW parameters
	HNSWM              int
	HNSWEfConstruction int

	// Enforced limits
	MaxBatch         int
	MaxTopK          int
	MaxDim           int
	MaxMetadataBytes int

	// Resource policy
	BackendCacheSize      int
	BuilderLockTTLSeconds int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		S3EndpointURL:  getEnv("S3_ENDPOINT_URL", "http://localhost:9000"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:    getEnv("S3_SECRET_KEY", "minioadmin123"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3BucketPrefix: getEnv("S3_BUCKET_PREFIX", "vb-"),

		SliceFormat: SliceFormat(getEnv("SLICE_FORMAT", "parquet")),

		HybridThreshold: getEnvInt("HYBRID_THRESHOLD", 100000),

		IVFPQNList: getEnvInt("IVFPQ_NLIST", 1024),
		IVFPQM:     getEnvInt("IVFPQ_M", 16),
		IVFPQNBits: getEnvInt("IVFPQ_NBITS", 8),

		HNSWM:              getEnvInt("HNSW_M", 16),
		HNSWEfConstruction: getEnvInt("HNSW_EF_CONSTRUCTION", 200),

		MaxBatch:         getEnvInt("MAX_BATCH", 500),
		MaxTopK:          getEnvInt("MAX_TOPK", 30),
		MaxDim:           getEnvInt("MAX_DIM", 4096),
		MaxMetadataBytes: getEnvInt("MAX_METADATA_BYTES", 40960),

		BackendCacheSize:      getEnvInt("BACKEND_CACHE_SIZE", 16),
		BuilderLockTTLSeconds: getEnvInt("BUILDER_LOCK_TTL_SECONDS", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.SliceFormat != SliceFormatParquet && c.SliceFormat != SliceFormatJSONL {
		return fmt.Errorf("SLICE_FORMAT must be 'parquet' or 'jsonl', got %q", c.SliceFormat)
	}
	if c.S3EndpointURL == "" {
		return fmt.Errorf("S3_ENDPOINT_URL is required")
	}
	if c.S3BucketPrefix == "" {
		return fmt.Errorf("S3_BUCKET_PREFIX cannot be empty")
	}
	if c.HybridThreshold < 1 {
		return fmt.Errorf("HYBRID_THRESHOLD must be positive")
	}
	if c.BackendCacheSize < 1 {
		return fmt.Errorf("BACKEND_CACHE_SIZE must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
