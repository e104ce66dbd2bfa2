package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "baoandkai", cfg.PostgresDB)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.UploadConcurrency)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	assert.Empty(t, cfg.AdminToken)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CORS_ORIGINS", "https://baoandkai.example.com")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("UPLOAD_TIMEOUT", "90s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, StorageMinio, cfg.StorageDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://baoandkai.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, 90*time.Second, cfg.UploadTimeout)
}

func TestPublicBase_Explicit(t *testing.T) {
	t.Setenv("MEDIA_PUBLIC_BASE", "https://cdn.example.com/media")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media", cfg.PublicBase())
}

func TestPublicBase_MemoryDefault(t *testing.T) {
	t.Setenv("HTTP_PORT", "8123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8123/media", cfg.PublicBase())
}

func TestPublicBase_MinioDefault(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_ENDPOINT", "minio.internal:9000")
	t.Setenv("MINIO_BUCKET", "media")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://minio.internal:9000/media", cfg.PublicBase())
}

func TestPublicBase_MinioSSL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:9000/baoandkai", cfg.PublicBase())
}
