package storage

import (
	"context"
	"fmt"

	"github.com/wikistore/cosbackend/config"
)

// New constructs the object store selected by cfg.Storage.Provider.
func New(ctx context.Context, cfg config.Config) (ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "", config.ProviderCOS:
		return NewCOSClient(cfg.COS)
	case config.ProviderGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
