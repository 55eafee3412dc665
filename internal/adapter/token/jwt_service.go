package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

type Claims struct {
	UserID    int64  `json:"uid"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// JWTService issues HS256 token pairs. The refresh token's jti doubles as the
// session id embedded in every access token of the pair, so revoking the
// refresh token also cuts off its access tokens.
type JWTService struct {
	cfg     Config
	revoked port.RevocationRepository
	now     func() time.Time
}

func NewJWTService(cfg Config, revoked port.RevocationRepository) *JWTService {
	return &JWTService{cfg: cfg, revoked: revoked, now: time.Now}
}

func (s *JWTService) IssuePair(ctx context.Context, user domain.User) (domain.TokenPair, error) {
	sessionID := uuid.NewString()

	refresh, err := s.sign(user.ID, user.Username, typeRefresh, sessionID, sessionID, s.cfg.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}

	access, err := s.sign(user.ID, user.Username, typeAccess, uuid.NewString(), sessionID, s.cfg.AccessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *JWTService) ValidateAccess(ctx context.Context, access string) (domain.Principal, error) {
	claims, err := s.parse(access, typeAccess)
	if err != nil {
		return domain.Principal{}, err
	}

	if err := s.checkRevoked(ctx, claims.SessionID); err != nil {
		return domain.Principal{}, err
	}

	return domain.Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: claims.SessionID,
	}, nil
}

func (s *JWTService) Refresh(ctx context.Context, refresh string) (string, error) {
	claims, err := s.parse(refresh, typeRefresh)
	if err != nil {
		return "", err
	}

	if err := s.checkRevoked(ctx, claims.ID); err != nil {
		return "", err
	}

	return s.sign(claims.UserID, claims.Username, typeAccess, uuid.NewString(), claims.ID, s.cfg.AccessTTL)
}

func (s *JWTService) Revoke(ctx context.Context, refresh string) error {
	claims, err := s.parse(refresh, typeRefresh)
	if err != nil {
		return err
	}

	err = s.revoked.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time)
	if errors.Is(err, port.ErrDuplicate) {
		return port.ErrTokenRevoked
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *JWTService) sign(userID int64, username, tokenType, jti, sessionID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *JWTService) parse(raw, wantType string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: token is missing", port.ErrInvalidToken)
	}

	claims := new(Claims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrInvalidToken, err)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: token has wrong type", port.ErrInvalidToken)
	}
	if claims.ID == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: token has no id", port.ErrInvalidToken)
	}
	return claims, nil
}

func (s *JWTService) checkRevoked(ctx context.Context, jti string) error {
	revoked, err := s.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return port.ErrTokenRevoked
	}
	return nil
}
