package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/port"
)

var (
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidUser     = errors.New("username and password are required")
	ErrBadCredentials  = errors.New("wrong credentials")
	ErrUnauthenticated = errors.New("authentication credentials were not provided or are invalid")
	ErrBadRequest      = errors.New("invalid refresh token")
)

type LoginResult struct {
	User   domain.User
	Tokens domain.TokenPair
}

type SessionService struct {
	users    port.UserRepository
	tokens   port.TokenService
	hashCost int
	logger   *zap.Logger
}

type SessionOption func(*SessionService)

func WithHashCost(cost int) SessionOption {
	return func(s *SessionService) { s.hashCost = cost }
}

func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *SessionService) { s.logger = logger }
}

func NewSessionService(users port.UserRepository, tokens port.TokenService, opts ...SessionOption) *SessionService {
	s := &SessionService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user and its manager profile. A taken username is a
// conflict regardless of the password supplied.
func (s *SessionService) Register(ctx context.Context, username, password, email, phone string) error {
	if username == "" || password == "" {
		return ErrInvalidUser
	}

	exists, err := s.users.UserExists(ctx, username)
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if exists {
		s.logger.Warn("user already exists", zap.String("username", username))
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{Username: username, PasswordHash: string(hash), Email: email}
	profile := domain.ManagerProfile{PhoneNumber: phone}

	created, err := s.users.CreateUser(ctx, user, profile)
	if errors.Is(err, port.ErrDuplicate) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("username", username), zap.Int64("user_id", created.ID))
	return nil
}

func (s *SessionService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("failed login attempt", zap.String("username", username))
		return nil, ErrBadCredentials
	}

	pair, err := s.tokens.IssuePair(ctx, *user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.Info("user logged in", zap.String("username", username))
	return &LoginResult{User: *user, Tokens: pair}, nil
}

// Logout revokes the refresh token. Token problems of any kind are reported
// as ErrBadRequest carrying the underlying message.
func (s *SessionService) Logout(ctx context.Context, refresh string) error {
	err := s.tokens.Revoke(ctx, refresh)
	switch {
	case err == nil:
		s.logger.Info("user logged out")
		return nil
	case errors.Is(err, port.ErrInvalidToken), errors.Is(err, port.ErrTokenRevoked):
		s.logger.Error("error during logout", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	default:
		return fmt.Errorf("revoke token: %w", err)
	}
}

func (s *SessionService) Refresh(ctx context.Context, refresh string) (string, error) {
	access, err := s.tokens.Refresh(ctx, refresh)
	if err != nil {
		return "", classifyTokenError(err)
	}
	return access, nil
}

// Authenticate resolves an access token into the caller's identity.
func (s *SessionService) Authenticate(ctx context.Context, access string) (domain.Principal, error) {
	if access == "" {
		return domain.Principal{}, ErrUnauthenticated
	}
	principal, err := s.tokens.ValidateAccess(ctx, access)
	if err != nil {
		return domain.Principal{}, classifyTokenError(err)
	}
	return principal, nil
}

func classifyTokenError(err error) error {
	if errors.Is(err, port.ErrInvalidToken) || errors.Is(err, port.ErrTokenRevoked) {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return fmt.Errorf("token check failed: %w", err)
}
