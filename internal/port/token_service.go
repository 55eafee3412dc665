package port

import (
	"context"
	"errors"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

type TokenService interface {
	IssuePair(ctx context.Context, user domain.User) (domain.TokenPair, error)

	// ValidateAccess fails with ErrInvalidToken or ErrTokenRevoked for unusable tokens
	ValidateAccess(ctx context.Context, access string) (domain.Principal, error)

	// Refresh mints a new access token for the session of a non-revoked refresh token
	Refresh(ctx context.Context, refresh string) (string, error)

	// Revoke blacklists a refresh token and every access token of its session
	Revoke(ctx context.Context, refresh string) error
}
