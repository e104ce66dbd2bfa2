package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Misaka450/baoandkai-sub000/pkg/config"
)

// Storage driver selectors.
const (
	StorageMemory = "memory"
	StorageMinio  = "minio"
)

// Config holds all configuration for the baoandkai server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Bearer token for the admin surface. Empty disables all mutations.
	AdminToken string `env:"ADMIN_TOKEN"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"baoandkai"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"baoandkai_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"baoandkai"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Blob storage. "memory" keeps blobs in-process and serves them from
	// /media/* (development); "minio" targets an S3-compatible bucket.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"baoandkai"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	// Public base URL under which uploaded blobs are reachable. Empty derives
	// a sensible default per driver.
	MediaPublicBase string `env:"MEDIA_PUBLIC_BASE" envDefault:""`

	// Upload orchestration
	MaxFileSize          int64         `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"10485760"`
	UploadConcurrency    int           `env:"UPLOAD_CONCURRENCY" envDefault:"4"`
	UploadTimeout        time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"60s"`
	ThumbnailMaxDim      int           `env:"THUMBNAIL_MAX_DIM" envDefault:"480"`
	ReconcileConcurrency int           `env:"RECONCILE_CONCURRENCY" envDefault:"4"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// PublicBase resolves the base URL references are built from. Falls back to
// the local HTTP server for the memory driver and the MinIO endpoint plus
// bucket path for the minio driver.
func (c *Config) PublicBase() string {
	if c.MediaPublicBase != "" {
		return c.MediaPublicBase
	}
	if c.StorageDriver == StorageMinio {
		scheme := "http"
		if c.MinioUseSSL {
			scheme = "https"
		}
		return fmt.Sprintf("%s://%s/%s", scheme, c.MinioEndpoint, c.MinioBucket)
	}
	return fmt.Sprintf("http://localhost:%d/media", c.HTTPPort)
}
