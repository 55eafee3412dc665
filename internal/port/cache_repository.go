package port

import (
	"context"
	"time"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

type CacheRepository interface {
	// GetItem returns nil without error on a cache miss
	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)

	// SetItem stores a snapshot unless the cache already holds a newer version, returns false if skipped
	SetItem(ctx context.Context, item domain.InventoryItem, ttl time.Duration) (bool, error)

	InvalidateItem(ctx context.Context, id int64) error
}
