package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

const DefaultItemCacheTTL = 15 * time.Minute

var (
	ErrNotFound      = errors.New("item not found")
	ErrValidation    = errors.New("invalid item")
	ErrDuplicateName = errors.New("item already exists")
	ErrConflict      = errors.New("item was modified concurrently")
)

type InventoryService struct {
	items    port.ItemRepository
	cache    port.CacheRepository
	cacheTTL time.Duration
	locks    *itemLocks
	metrics  port.Metrics
	logger   *zap.Logger
}

type InventoryOption func(*InventoryService)

func WithCacheTTL(ttl time.Duration) InventoryOption {
	return func(s *InventoryService) { s.cacheTTL = ttl }
}

func WithInventoryLogger(logger *zap.Logger) InventoryOption {
	return func(s *InventoryService) { s.logger = logger }
}

func WithMetrics(m port.Metrics) InventoryOption {
	return func(s *InventoryService) { s.metrics = m }
}

func NewInventoryService(items port.ItemRepository, cache port.CacheRepository, opts ...InventoryOption) *InventoryService {
	s := &InventoryService{
		items:    items,
		cache:    cache,
		cacheTTL: DefaultItemCacheTTL,
		locks:    newItemLocks(),
		metrics:  port.NopMetrics{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new item. The cache is left untouched until the first read.
func (s *InventoryService) Create(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	item.ID = 0
	if err := item.Validate(); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	taken, err := s.items.ItemNameTaken(ctx, item.Name, 0)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("name check failed: %w", err)
	}
	if taken {
		return domain.InventoryItem{}, ErrDuplicateName
	}

	created, err := s.items.CreateItem(ctx, item)
	if errors.Is(err, port.ErrDuplicate) {
		return domain.InventoryItem{}, ErrDuplicateName
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("create item: %w", err)
	}

	s.logger.Info("inventory item created", zap.Int64("item_id", created.ID))
	return created, nil
}

// List always reads from the store; the cache only holds single items.
func (s *InventoryService) List(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := s.items.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	s.logger.Info("retrieved all inventory items", zap.Int("count", len(items)))
	return items, nil
}

func (s *InventoryService) GetByID(ctx context.Context, id int64) (domain.InventoryItem, error) {
	if item, ok := s.lookupCache(ctx, id); ok {
		s.logger.Info("retrieved inventory item from cache", zap.Int64("item_id", id))
		return item, nil
	}

	unlock := s.locks.lock(id)
	defer unlock()

	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("get item %d: %w", id, err)
	}
	if item == nil {
		return domain.InventoryItem{}, ErrNotFound
	}

	s.storeCache(ctx, *item)
	s.logger.Info("retrieved inventory item from database and cached it", zap.Int64("item_id", id))
	return *item, nil
}

// Update merges patch into the stored item and overwrites its cache entry.
func (s *InventoryService) Update(ctx context.Context, id int64, patch domain.ItemPatch) (domain.InventoryItem, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	existing, err := s.items.GetItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("get item %d: %w", id, err)
	}
	if existing == nil {
		return domain.InventoryItem{}, ErrNotFound
	}

	updated := patch.Apply(*existing)
	if err := updated.Validate(); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if patch.Renames(*existing) {
		taken, err := s.items.ItemNameTaken(ctx, updated.Name, id)
		if err != nil {
			return domain.InventoryItem{}, fmt.Errorf("name check failed: %w", err)
		}
		if taken {
			return domain.InventoryItem{}, ErrDuplicateName
		}
	}

	saved, err := s.items.UpdateItem(ctx, updated)
	switch {
	case errors.Is(err, port.ErrOptimisticLock):
		return domain.InventoryItem{}, ErrConflict
	case errors.Is(err, port.ErrDuplicate):
		return domain.InventoryItem{}, ErrDuplicateName
	case err != nil:
		return domain.InventoryItem{}, fmt.Errorf("update item %d: %w", id, err)
	}

	s.storeCache(ctx, saved)
	s.logger.Info("inventory item updated", zap.Int64("item_id", id), zap.Int64("version", saved.Version))
	return saved, nil
}

// Delete removes the item and its cache entry.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()

	existing, err := s.items.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("get item %d: %w", id, err)
	}
	if existing == nil {
		return ErrNotFound
	}

	deleted, err := s.items.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item %d: %w", id, err)
	}
	if !deleted {
		return ErrNotFound
	}

	if err := s.cache.InvalidateItem(ctx, id); err != nil {
		s.metrics.CacheError("invalidate")
		s.logger.Error("cache invalidation failed", zap.Int64("item_id", id), zap.Error(err))
	}

	s.logger.Info("inventory item deleted", zap.Int64("item_id", id))
	return nil
}

// lookupCache treats an unreachable cache as a miss.
func (s *InventoryService) lookupCache(ctx context.Context, id int64) (domain.InventoryItem, bool) {
	item, err := s.cache.GetItem(ctx, id)
	if err != nil {
		s.metrics.CacheError("get")
		s.logger.Warn("cache read failed, falling back to store", zap.Int64("item_id", id), zap.Error(err))
		return domain.InventoryItem{}, false
	}
	if item == nil {
		s.metrics.CacheMiss()
		return domain.InventoryItem{}, false
	}
	s.metrics.CacheHit()
	return *item, true
}

// storeCache drops the entry when the write fails so an older snapshot is not
// served until it expires.
func (s *InventoryService) storeCache(ctx context.Context, item domain.InventoryItem) {
	written, err := s.cache.SetItem(ctx, item, s.cacheTTL)
	if err != nil {
		s.metrics.CacheError("set")
		s.logger.Warn("cache write failed", zap.Int64("item_id", item.ID), zap.Error(err))
		if err := s.cache.InvalidateItem(ctx, item.ID); err != nil {
			s.metrics.CacheError("invalidate")
			s.logger.Error("cache invalidation failed", zap.Int64("item_id", item.ID), zap.Error(err))
		}
		return
	}
	if !written {
		s.logger.Debug("cache already holds a newer snapshot", zap.Int64("item_id", item.ID), zap.Int64("version", item.Version))
	}
}
