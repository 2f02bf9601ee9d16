package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	unsetEnv(t, "ENV", "SERVER_PORT", "STORAGE_PROVIDER", "STORAGE_BACKEND_NAME", "QUEUE_PROVIDER",
		"PURGE_CHANNEL", "QUEUE_BUFFER", "COS_USE_CDN", "CDN_ENDPOINT", "CDN_REGION", "CDN_SECRET_ID",
		"CDN_SECRET_KEY", "RABBITMQ_QUEUE_DURABLE", "RABBITMQ_PREFETCH", "LOG_LEVEL", "LOG_FORMAT")
	t.Setenv("COS_REGION", "ap-guangzhou")
	t.Setenv("COS_SECRET_ID", "AKID")
	t.Setenv("COS_SECRET_KEY", "SECRET")

	cfg := LoadConfig()
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, ProviderCOS, cfg.Storage.Provider)
	assert.Equal(t, "local-backend", cfg.Storage.Backend)
	assert.Equal(t, QueueInline, cfg.Queue.Provider)
	assert.Equal(t, "cdn-purge", cfg.Queue.Channel)
	assert.Equal(t, 64, cfg.Queue.Buffer)
	assert.False(t, cfg.COS.UseCDN)
	assert.True(t, cfg.RabbitMQ.QueueDurable)
	assert.Equal(t, 10, cfg.RabbitMQ.PrefetchCount)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, CDNConfig{
		Region:    "ap-guangzhou",
		SecretID:  "AKID",
		SecretKey: "SECRET",
		Endpoint:  "cdn.tencentcloudapi.com",
	}, cfg.CDN)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_PROVIDER", "GCS")
	t.Setenv("QUEUE_PROVIDER", "RabbitMQ")
	t.Setenv("COS_USE_CDN", "true")
	t.Setenv("COS_VIEWPOINT", "https://cdn.example.com/")
	t.Setenv("CDN_SECRET_ID", "CDNID")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "not-a-bool")

	cfg := LoadConfig()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, ProviderGCS, cfg.Storage.Provider)
	assert.Equal(t, QueueRabbitMQ, cfg.Queue.Provider)
	assert.True(t, cfg.COS.UseCDN)
	assert.Equal(t, "https://cdn.example.com", cfg.COS.Viewpoint)
	assert.Equal(t, "CDNID", cfg.CDN.SecretID)
	assert.True(t, cfg.RabbitMQ.QueueDurable)
}
