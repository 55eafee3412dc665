package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

var errUnavailable = errors.New("connection refused")

// Mock ItemRepository
type mockItemRepo struct {
	mu     sync.Mutex
	items  map[int64]domain.InventoryItem
	nextID int64
	reads  int
	writes int
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: make(map[int64]domain.InventoryItem)}
}

func (m *mockItemRepo) CreateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing.Name == item.Name {
			return domain.InventoryItem{}, port.ErrDuplicate
		}
	}
	m.nextID++
	item.ID = m.nextID
	item.Version = 1
	m.items[item.ID] = item
	m.writes++
	return item, nil
}

func (m *mockItemRepo) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.InventoryItem, 0, len(m.items))
	for id := int64(1); id <= m.nextID; id++ {
		if item, ok := m.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockItemRepo) ItemNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, item := range m.items {
		if id != excludeID && item.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockItemRepo) UpdateItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.items[item.ID]
	if !ok || current.Version != item.Version {
		return domain.InventoryItem{}, port.ErrOptimisticLock
	}
	item.Version++
	m.items[item.ID] = item
	m.writes++
	return item, nil
}

func (m *mockItemRepo) DeleteItem(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	m.writes++
	return true, nil
}

func (m *mockItemRepo) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockItemRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Mock CacheRepository with the same version guard as the Redis script
type mockCacheRepo struct {
	mu       sync.Mutex
	entries  map[int64]domain.InventoryItem
	ttls     map[int64]time.Duration
	sets     int
	down     bool
	failSets bool
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		entries: make(map[int64]domain.InventoryItem),
		ttls:    make(map[int64]time.Duration),
	}
}

func (m *mockCacheRepo) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return nil, errUnavailable
	}
	item, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *mockCacheRepo) SetItem(ctx context.Context, item domain.InventoryItem, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down || m.failSets {
		return false, errUnavailable
	}
	if current, ok := m.entries[item.ID]; ok && current.Version > item.Version {
		return false, nil
	}
	m.entries[item.ID] = item
	m.ttls[item.ID] = ttl
	m.sets++
	return true, nil
}

func (m *mockCacheRepo) InvalidateItem(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.down {
		return errUnavailable
	}
	delete(m.entries, id)
	delete(m.ttls, id)
	return nil
}

func (m *mockCacheRepo) entry(id int64) (domain.InventoryItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.entries[id]
	return item, ok
}

func (m *mockCacheRepo) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func (m *mockCacheRepo) setFailSets(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSets = fail
}

func (m *mockCacheRepo) setDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

// Mock Metrics
type mockMetrics struct {
	mu                     sync.Mutex
	hits, misses, failures int
}

func (m *mockMetrics) CacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *mockMetrics) CacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *mockMetrics) CacheError(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *mockMetrics) AuthFailure(string) {}

// Mock UserRepository
type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]domain.User)}
}

func (m *mockUserRepo) UserExists(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[username]
	return ok, nil
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user domain.User, profile domain.ManagerProfile) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return domain.User{}, port.ErrDuplicate
	}
	m.nextID++
	user.ID = m.nextID
	profile.UserID = user.ID
	user.Manager = &profile
	m.users[user.Username] = user
	return user, nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Mock TokenService: tokens are "access:<sid>" / "refresh:<sid>"
type mockTokenService struct {
	mu      sync.Mutex
	issued  map[string]domain.User
	revoked map[string]bool
	next    int
	failDB  bool
}

func newMockTokenService() *mockTokenService {
	return &mockTokenService{
		issued:  make(map[string]domain.User),
		revoked: make(map[string]bool),
	}
}

func (m *mockTokenService) IssuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	sid := string(rune('a' + m.next))
	m.issued[sid] = user
	return domain.TokenPair{Access: "access:" + sid, Refresh: "refresh:" + sid}, nil
}

func (m *mockTokenService) session(raw, prefix string) (string, error) {
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		return "", port.ErrInvalidToken
	}
	sid := raw[len(prefix):]
	if _, ok := m.issued[sid]; !ok {
		return "", port.ErrInvalidToken
	}
	return sid, nil
}

func (m *mockTokenService) ValidateAccess(ctx context.Context, access string) (domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDB {
		return domain.Principal{}, errUnavailable
	}
	sid, err := m.session(access, "access:")
	if err != nil {
		return domain.Principal{}, err
	}
	if m.revoked[sid] {
		return domain.Principal{}, port.ErrTokenRevoked
	}
	user := m.issued[sid]
	return domain.Principal{UserID: user.ID, Username: user.Username, SessionID: sid}, nil
}

func (m *mockTokenService) Refresh(ctx context.Context, refresh string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid, err := m.session(refresh, "refresh:")
	if err != nil {
		return "", err
	}
	if m.revoked[sid] {
		return "", port.ErrTokenRevoked
	}
	return "access:" + sid, nil
}

func (m *mockTokenService) Revoke(ctx context.Context, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failDB {
		return errUnavailable
	}
	sid, err := m.session(refresh, "refresh:")
	if err != nil {
		return err
	}
	if m.revoked[sid] {
		return port.ErrTokenRevoked
	}
	m.revoked[sid] = true
	return nil
}
