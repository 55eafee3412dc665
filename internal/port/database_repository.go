package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

var (
	ErrOptimisticLock = errors.New("optimistic lock conflict")
	ErrDuplicate      = errors.New("duplicate key")
)

type ItemRepository interface {
	// CreateItem inserts a new item and returns it with the assigned ID and version
	CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error)

	ListItems(ctx context.Context) ([]domain.InventoryItem, error)

	// GetItem returns nil without error when the item does not exist
	GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error)

	// ItemNameTaken reports whether an item other than excludeID uses name
	ItemNameTaken(ctx context.Context, name string, excludeID int64) (bool, error)

	// UpdateItem persists item with version check for optimistic locking
	UpdateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error)

	// DeleteItem returns false when no row was removed
	DeleteItem(ctx context.Context, id int64) (bool, error)
}

type UserRepository interface {
	UserExists(ctx context.Context, username string) (bool, error)

	// CreateUser stores the user and its manager profile in a single transaction
	CreateUser(ctx context.Context, user domain.User, profile domain.ManagerProfile) (domain.User, error)

	// GetUserByUsername returns nil without error when the user does not exist
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type RevocationRepository interface {
	// RevokeToken records jti as revoked, ErrDuplicate if it already is
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error

	IsRevoked(ctx context.Context, jti string) (bool, error)

	// PurgeRevocations drops entries whose token expired before the given time
	PurgeRevocations(ctx context.Context, before time.Time) (int64, error)
}
