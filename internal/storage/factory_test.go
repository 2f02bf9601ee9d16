package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikistore/cosbackend/config"
)

func TestNewSelectsProvider(t *testing.T) {
	cfg := config.Config{
		Storage: config.StorageConfig{Provider: config.ProviderCOS},
		COS: config.COSConfig{
			Region:    "ap-guangzhou",
			SecretID:  "AKID",
			SecretKey: "SECRET",
			Bucket:    "example-1250000000",
		},
	}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "example-1250000000.cos.ap-guangzhou.myqcloud.com", store.Host())

	cfg.Storage.Provider = "s3"
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, `unknown storage provider "s3"`)

	cfg.Storage.Provider = config.ProviderGCS
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
