/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Storage backend selection for uploaded audio.
type StorageBackend string

const (
	StorageFilesystem StorageBackend = "filesystem"
	StorageS3         StorageBackend = "s3"
)

// Config covers process level configuration. Values come from an optional
// YAML file (LAICAFM_CONFIG) with environment variables taking precedence.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// Upload storage
	StorageBackend  StorageBackend
	MediaRoot       string
	MaxUploadSizeMB int

	// S3 object storage (used when StorageBackend is "s3")
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3UsePathStyle    bool   // Required for MinIO

	// Chat cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ChatCacheTTL  time.Duration

	// Stats sampler
	StatsSampleInterval time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// fileConfig is the YAML shape of the optional config file. Only a subset
// of keys makes sense to persist in a file; secrets stay in the environment.
type fileConfig struct {
	Environment string `yaml:"environment"`
	HTTP        struct {
		Bind string `yaml:"bind"`
		Port int    `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		Backend string `yaml:"backend"`
		DSN     string `yaml:"dsn"`
	} `yaml:"database"`
	Storage struct {
		Backend   string `yaml:"backend"`
		MediaRoot string `yaml:"media_root"`
	} `yaml:"storage"`
	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads the optional config file and environment variables, applies
// defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         "development",
		HTTPBind:            "0.0.0.0",
		HTTPPort:            8000,
		DBBackend:           DatabaseSQLite,
		DBDSN:               "laicafm.db",
		StorageBackend:      StorageFilesystem,
		MediaRoot:           "./uploads",
		RedisAddr:           "localhost:6379",
		ChatCacheTTL:        30 * time.Second,
		StatsSampleInterval: time.Minute,
	}

	if path := os.Getenv("LAICAFM_CONFIG"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.Environment = getEnv("LAICAFM_ENV", cfg.Environment)
	cfg.HTTPBind = getEnv("LAICAFM_HTTP_BIND", cfg.HTTPBind)
	cfg.HTTPPort = getEnvInt("LAICAFM_HTTP_PORT", cfg.HTTPPort)
	cfg.DBBackend = DatabaseBackend(getEnv("LAICAFM_DB_BACKEND", string(cfg.DBBackend)))
	cfg.DBDSN = getEnv("LAICAFM_DB_DSN", cfg.DBDSN)
	cfg.StorageBackend = StorageBackend(getEnv("LAICAFM_STORAGE_BACKEND", string(cfg.StorageBackend)))
	cfg.MediaRoot = getEnv("LAICAFM_MEDIA_ROOT", cfg.MediaRoot)
	cfg.MaxUploadSizeMB = getEnvInt("LAICAFM_MAX_UPLOAD_SIZE_MB", cfg.MaxUploadSizeMB)

	cfg.S3AccessKeyID = getEnvAny([]string{"LAICAFM_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, "")
	cfg.S3SecretAccessKey = getEnvAny([]string{"LAICAFM_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, "")
	cfg.S3Region = getEnvAny([]string{"LAICAFM_S3_REGION", "AWS_REGION"}, "us-east-1")
	cfg.S3Bucket = getEnvAny([]string{"LAICAFM_S3_BUCKET", "S3_BUCKET"}, "")
	cfg.S3Endpoint = getEnvAny([]string{"LAICAFM_S3_ENDPOINT", "S3_ENDPOINT"}, "")
	cfg.S3UsePathStyle = getEnvBool("LAICAFM_S3_USE_PATH_STYLE", false)

	cfg.RedisAddr = getEnv("LAICAFM_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("LAICAFM_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("LAICAFM_REDIS_DB", cfg.RedisDB)
	cfg.ChatCacheTTL = time.Duration(getEnvInt("LAICAFM_CHAT_CACHE_TTL_SECONDS", int(cfg.ChatCacheTTL/time.Second))) * time.Second
	cfg.StatsSampleInterval = time.Duration(getEnvInt("LAICAFM_STATS_SAMPLE_SECONDS", int(cfg.StatsSampleInterval/time.Second))) * time.Second

	cfg.TracingEnabled = getEnvBool("LAICAFM_TRACING_ENABLED", false)
	cfg.OTLPEndpoint = getEnv("LAICAFM_OTLP_ENDPOINT", "localhost:4317")
	cfg.TracingSampleRate = getEnvFloat("LAICAFM_TRACING_SAMPLE_RATE", 1.0)

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("LAICAFM_DB_DSN must be provided")
	}

	if cfg.StorageBackend != StorageFilesystem && cfg.StorageBackend != StorageS3 {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == StorageS3 && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("LAICAFM_S3_BUCKET must be provided when storage backend is s3")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}
	if fc.HTTP.Bind != "" {
		cfg.HTTPBind = fc.HTTP.Bind
	}
	if fc.HTTP.Port != 0 {
		cfg.HTTPPort = fc.HTTP.Port
	}
	if fc.Database.Backend != "" {
		cfg.DBBackend = DatabaseBackend(fc.Database.Backend)
	}
	if fc.Database.DSN != "" {
		cfg.DBDSN = fc.Database.DSN
	}
	if fc.Storage.Backend != "" {
		cfg.StorageBackend = StorageBackend(fc.Storage.Backend)
	}
	if fc.Storage.MediaRoot != "" {
		cfg.MediaRoot = fc.Storage.MediaRoot
	}
	if fc.Redis.Addr != "" {
		cfg.RedisAddr = fc.Redis.Addr
	}
	if fc.Redis.DB != 0 {
		cfg.RedisDB = fc.Redis.DB
	}
	return nil
}

// MaxUploadSizeBytes returns the configured upload limit in bytes.
// A value of 0 means "not configured" and callers should use endpoint defaults.
func (c *Config) MaxUploadSizeBytes() int64 {
	if c == nil || c.MaxUploadSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "true" || v == "1" || v == "yes" {
			return true
		}
		if v == "false" || v == "0" || v == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}
