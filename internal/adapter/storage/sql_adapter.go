package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

// SQLAdapter implements the item, user and revocation repositories on
// either MySQL or SQLite.
type SQLAdapter struct {
	db *sqlx.DB
}

func NewSQLAdapter(db *sqlx.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

func (a *SQLAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *SQLAdapter) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	result, err := a.db.ExecContext(ctx, `
		INSERT INTO inventory_items (name, description, quantity, price, version)
		VALUES (?, ?, ?, ?, 1)`,
		item.Name, item.Description, item.Quantity, item.Price,
	)
	if isDuplicateKey(err) {
		return domain.InventoryItem{}, port.ErrDuplicate
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("insert item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("last insert id: %w", err)
	}

	item.ID = id
	item.Version = 1
	return item, nil
}

func (a *SQLAdapter) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	items := []domain.InventoryItem{}
	err := a.db.SelectContext(ctx, &items, `
		SELECT id, name, description, quantity, price, version
		FROM inventory_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}

func (a *SQLAdapter) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := a.db.GetContext(ctx, &item, `
		SELECT id, name, description, quantity, price, version
		FROM inventory_items WHERE id = ?`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (a *SQLAdapter) ItemNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int
	err := a.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM inventory_items WHERE name = ? AND id <> ?`, name, excludeID)
	if err != nil {
		return false, fmt.Errorf("query item name: %w", err)
	}
	return n > 0, nil
}

func (a *SQLAdapter) UpdateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	result, err := a.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET name = ?, description = ?, quantity = ?, price = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`,
		item.Name, item.Description, item.Quantity, item.Price, item.ID, item.Version,
	)
	if isDuplicateKey(err) {
		return domain.InventoryItem{}, port.ErrDuplicate
	}
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("update item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.InventoryItem{}, port.ErrOptimisticLock
	}

	item.Version++
	return item, nil
}

func (a *SQLAdapter) DeleteItem(ctx context.Context, id int64) (bool, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (a *SQLAdapter) UserExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := a.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return n > 0, nil
}

func (a *SQLAdapter) CreateUser(ctx context.Context, user domain.User, profile domain.ManagerProfile) (domain.User, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, email) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, user.Email,
	)
	if isDuplicateKey(err) {
		return domain.User{}, port.ErrDuplicate
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("last insert id: %w", err)
	}

	profile.UserID = user.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO manager_profiles (user_id, phone_number) VALUES (?, ?)`,
		profile.UserID, profile.PhoneNumber,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert manager profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.User{}, fmt.Errorf("commit: %w", err)
	}

	user.Manager = &profile
	return user, nil
}

type userRow struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	PasswordHash string         `db:"password_hash"`
	Email        string         `db:"email"`
	PhoneNumber  sql.NullString `db:"phone_number"`
}

func (a *SQLAdapter) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var row userRow
	err := a.db.GetContext(ctx, &row, `
		SELECT u.id, u.username, u.password_hash, u.email, m.phone_number
		FROM users u
		LEFT JOIN manager_profiles m ON m.user_id = u.id
		WHERE u.username = ?`, username)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user := &domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Email:        row.Email,
	}
	if row.PhoneNumber.Valid {
		user.Manager = &domain.ManagerProfile{UserID: row.ID, PhoneNumber: row.PhoneNumber.String}
	}
	return user, nil
}

func (a *SQLAdapter) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`, jti, expiresAt.UTC())
	if isDuplicateKey(err) {
		return port.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert revoked token: %w", err)
	}
	return nil
}

func (a *SQLAdapter) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := a.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti); err != nil {
		return false, fmt.Errorf("query revoked token: %w", err)
	}
	return n > 0, nil
}

func (a *SQLAdapter) PurgeRevocations(ctx context.Context, before time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
