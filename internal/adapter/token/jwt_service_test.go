package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

type memRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newMemRevocations() *memRevocations {
	return &memRevocations{entries: make(map[string]time.Time)}
}

func (m *memRevocations) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[jti]; ok {
		return port.ErrDuplicate
	}
	m.entries[jti] = expiresAt
	return nil
}

func (m *memRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[jti]
	return ok, nil
}

func (m *memRevocations) PurgeRevocations(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

var testUser = domain.User{ID: 7, Username: "testuser"}

func newTestService() (*JWTService, *memRevocations) {
	revoked := newMemRevocations()
	svc := NewJWTService(Config{
		Secret:     []byte("test-secret"),
		Issuer:     "inventory-api",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, revoked)
	return svc, revoked
}

func TestIssuePair_ValidateAccess(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pair, err := svc.IssuePair(ctx, testUser)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	principal, err := svc.ValidateAccess(ctx, pair.Access)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if principal.UserID != 7 || principal.Username != "testuser" || principal.SessionID == "" {
		t.Errorf("unexpected principal: %+v", principal)
	}

	// Refresh token is not an access token
	if _, err := svc.ValidateAccess(ctx, pair.Refresh); !errors.Is(err, port.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateAccess_Expired(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pair, _ := svc.IssuePair(ctx, testUser)

	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	if _, err := svc.ValidateAccess(ctx, pair.Access); !errors.Is(err, port.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got: %v", err)
	}

	// Refresh token still valid, and the fresh access token works
	access, err := svc.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := svc.ValidateAccess(ctx, access); err != nil {
		t.Errorf("expected refreshed token to validate, got: %v", err)
	}
}

func TestValidateAccess_Tampered(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	pair, _ := svc.IssuePair(ctx, testUser)

	other := NewJWTService(Config{Secret: []byte("other"), Issuer: "inventory-api", AccessTTL: time.Minute}, newMemRevocations())
	forged, _ := other.sign(1, "admin", typeAccess, "jti", "sid", time.Minute)

	for name, raw := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"truncated":    pair.Access[:len(pair.Access)-4],
		"wrong secret": forged,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ValidateAccess(ctx, raw); !errors.Is(err, port.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got: %v", err)
			}
		})
	}
}

func TestValidateAccess_WrongAlgorithm(t *testing.T) {
	svc, _ := newTestService()

	claims := Claims{
		UserID:    7,
		TokenType: typeAccess,
		SessionID: "sid",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti",
			Issuer:    "inventory-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := svc.ValidateAccess(context.Background(), raw); !errors.Is(err, port.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, revoked := newTestService()
	ctx := context.Background()

	pair, _ := svc.IssuePair(ctx, testUser)

	if err := svc.Revoke(ctx, pair.Refresh); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(revoked.entries) != 1 {
		t.Errorf("expected 1 revocation entry, got %d", len(revoked.entries))
	}

	if err := svc.Revoke(ctx, pair.Refresh); !errors.Is(err, port.ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked, got: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.Refresh); !errors.Is(err, port.ErrTokenRevoked) {
		t.Errorf("expected ErrTokenRevoked on refresh, got: %v", err)
	}
	if _, err := svc.ValidateAccess(ctx, pair.Access); !errors.Is(err, port.ErrTokenRevoked) {
		t.Errorf("expected access token of the pair to be revoked, got: %v", err)
	}

	// Access tokens cannot be used to log out
	if err := svc.Revoke(ctx, pair.Access); !errors.Is(err, port.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got: %v", err)
	}
}

func TestRevoke_OtherSessionsUnaffected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, _ := svc.IssuePair(ctx, testUser)
	second, _ := svc.IssuePair(ctx, testUser)

	svc.Revoke(ctx, first.Refresh)

	if _, err := svc.ValidateAccess(ctx, second.Access); err != nil {
		t.Errorf("expected second session to stay valid, got: %v", err)
	}
}
