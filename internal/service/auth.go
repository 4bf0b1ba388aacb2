package service

import (
	"context"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokernight/platform/internal/auth"
	"github.com/pokernight/platform/internal/domain"
	"github.com/pokernight/platform/internal/guard"
	"github.com/pokernight/platform/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles player registration and login.
type AuthService struct {
	pool      *pgxpool.Pool
	users     repository.UserRepository
	authUsers repository.AuthUserRepository
	profiles  repository.ProfileRepository
	outbox    repository.OutboxRepository
	jwtMgr    *auth.JWTManager
	clock     quartz.Clock
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	pool *pgxpool.Pool,
	users repository.UserRepository,
	authUsers repository.AuthUserRepository,
	profiles repository.ProfileRepository,
	outbox repository.OutboxRepository,
	jwtMgr *auth.JWTManager,
	clock quartz.Clock,
) *AuthService {
	return &AuthService{
		pool:      pool,
		users:     users,
		authUsers: authUsers,
		profiles:  profiles,
		outbox:    outbox,
		jwtMgr:    jwtMgr,
		clock:     clock,
	}
}

// RegisterInput holds the registration request fields.
type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token       string    `json:"token"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsSuperuser bool      `json:"is_superuser"`
}

// Register creates a new user account within a single transaction.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(input.Password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}
	if input.PhoneNumber != "" {
		if err := domain.ValidatePhoneNumber(input.PhoneNumber); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}

	existing, err := s.users.FindByUsername(ctx, s.pool, input.Username)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	// Run in transaction: create users + auth_users + user_profiles rows.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	now := s.clock.Now()
	userID := uuid.New()

	user := &domain.User{
		ID:        userID,
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		CreatedAt: now,
	}
	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, domain.ErrInternal("create user", err)
	}

	authUser := &domain.AuthUser{
		ID:           userID,
		Username:     input.Username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := s.authUsers.Create(ctx, tx, authUser); err != nil {
		return nil, domain.ErrInternal("create auth user", err)
	}

	profile := &domain.UserProfile{
		UserID:      userID,
		PhoneNumber: input.PhoneNumber,
		CreatedAt:   now,
	}
	if err := s.profiles.Create(ctx, tx, profile); err != nil {
		return nil, domain.ErrInternal("create profile", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewUserCreatedEvent(userID, input.Username, input.Email)); err != nil {
		return nil, domain.ErrInternal("record user event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	token, err := s.jwtMgr.GenerateToken(userID, input.Username, input.Email, false)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	return &AuthResult{
		Token:    token,
		UserID:   userID,
		Username: input.Username,
		Email:    input.Email,
	}, nil
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a JWT. Failed attempts count
// toward a lockout window keyed by username.
func (s *AuthService) Login(ctx context.Context, input LoginInput, ip string) (*AuthResult, error) {
	if err := guard.CheckLocked(ctx, s.pool, input.Username); err != nil {
		return nil, err
	}

	authUser, err := s.authUsers.FindByUsername(ctx, s.pool, input.Username)
	if err != nil {
		return nil, domain.ErrInternal("find auth user", err)
	}
	if authUser == nil {
		guard.RecordAttempt(ctx, s.pool, input.Username, ip, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(authUser.PasswordHash), []byte(input.Password)); err != nil {
		guard.RecordAttempt(ctx, s.pool, input.Username, ip, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	guard.RecordAttempt(ctx, s.pool, input.Username, ip, true)

	user, err := s.users.FindByID(ctx, s.pool, authUser.ID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := s.users.RecordLogin(ctx, s.pool, user.ID, s.clock.Now()); err != nil {
		return nil, domain.ErrInternal("record login", err)
	}

	token, err := s.jwtMgr.GenerateToken(user.ID, user.Username, user.Email, user.IsSuperuser)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	return &AuthResult{
		Token:       token,
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
	}, nil
}

// Me returns the caller's user row.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}
