package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pokernight/platform/internal/domain"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

const userColumns = `id, username, email, first_name, last_name, is_superuser, last_login_at, created_at`

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.User, error) {
	row := db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *userRepo) FindByUsernames(ctx context.Context, db DBTX, usernames []string) ([]domain.User, error) {
	rows, err := db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE username = ANY($1)`, usernames)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.IsSuperuser, &u.LastLoginAt, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.Email, user.FirstName, user.LastName, user.IsSuperuser)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepo) RecordLogin(ctx context.Context, db DBTX, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.IsSuperuser, &u.LastLoginAt, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

type authUserRepo struct{}

// NewAuthUserRepository returns a pgx-backed AuthUserRepository.
func NewAuthUserRepository() AuthUserRepository {
	return &authUserRepo{}
}

func (r *authUserRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.AuthUser, error) {
	row := db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM auth_users WHERE username = $1`, username)

	var u domain.AuthUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan auth user: %w", err)
	}
	return &u, nil
}

func (r *authUserRepo) Create(ctx context.Context, db DBTX, user *domain.AuthUser) error {
	_, err := db.Exec(ctx, `
		INSERT INTO auth_users (id, username, password_hash)
		VALUES ($1, $2, $3)`,
		user.ID, user.Username, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert auth user: %w", err)
	}
	return nil
}

type profileRepo struct{}

// NewProfileRepository returns a pgx-backed ProfileRepository.
func NewProfileRepository() ProfileRepository {
	return &profileRepo{}
}

func (r *profileRepo) FindByUserID(ctx context.Context, db DBTX, userID uuid.UUID) (*domain.UserProfile, error) {
	row := db.QueryRow(ctx, `
		SELECT user_id, COALESCE(phone_number, ''), created_at
		FROM user_profiles WHERE user_id = $1`, userID)

	var p domain.UserProfile
	err := row.Scan(&p.UserID, &p.PhoneNumber, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepo) Create(ctx context.Context, db DBTX, profile *domain.UserProfile) error {
	_, err := db.Exec(ctx, `
		INSERT INTO user_profiles (user_id, phone_number)
		VALUES ($1, NULLIF($2, ''))`,
		profile.UserID, profile.PhoneNumber)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}
