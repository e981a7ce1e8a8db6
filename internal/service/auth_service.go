package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"evo-store/internal/auth"
	"evo-store/internal/model"
	"evo-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

// authService implements AuthService.
type authService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	logger   zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, logger zerolog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// Register creates a customer account and signs the user in.
func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, model.ErrWeakPassword
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, model.ValidationError("Password must be at most 72 characters")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")

	return s.respond(user)
}

// Login checks credentials. Unknown email and wrong password are reported
// the same way.
func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		// Spend the same bcrypt time as a real comparison.
		auth.CheckPassword(s.fakeHash(), req.Password)
		s.logger.Info().Msg("login for unknown email")
		return nil, model.ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.Info().Str("user_id", user.ID.String()).Msg("login with wrong password")
		return nil, model.ErrInvalidCredentials
	}

	return s.respond(user)
}

// Me returns the signed-in user. A token for a deleted user is unauthorized.
func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, model.ErrUnauthorized
	}
	return user, nil
}

func (s *authService) respond(user *model.User) (*model.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to issue token")
		return nil, err
	}
	return &model.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) fakeHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword(uuid.NewString())
	})
	return s.dummyHash
}
