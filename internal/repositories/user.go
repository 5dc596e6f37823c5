package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/models"
	"ctfhub/internal/services"
	"ctfhub/internal/utils"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetAccountInfo(ctx context.Context, userID int) (*models.AccountInfo, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, userID int, isAdmin bool) error
	UpdateUsername(ctx context.Context, userID int, username string) error
	UpdateEmail(ctx context.Context, userID int, email string) error
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	DeleteUserCascade(ctx context.Context, userID int) error
	StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (int, error)
	RevokeToken(ctx context.Context, token string) error
}

type userRepository struct {
	db    *sqlx.DB
	cache services.Cache
}

func NewUserRepository(db *sqlx.DB, cache services.Cache) UserRepository {
	return &userRepository{db: db, cache: cache}
}

func (r *userRepository) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, req.Username, req.Email, hashedPassword)
	if err != nil {
		if apperrors.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("username or email already exists: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.User{
		ID:       int(id),
		Username: req.Username,
		Email:    req.Email,
	}, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = ?`
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE id = ?`
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetAccountInfo(ctx context.Context, userID int) (*models.AccountInfo, error) {
	var info models.AccountInfo
	query := `
        SELECT u.username, u.email, u.is_admin, u.created_at,
               COALESCE(SUM(c.points), 0) AS score,
               COUNT(s.id) AS solve_count
        FROM users u
        LEFT JOIN solves s ON s.user_id = u.id
        LEFT JOIN challenges c ON c.id = s.challenge_id
        WHERE u.id = ?
        GROUP BY u.id, u.username, u.email, u.is_admin, u.created_at`
	if err := r.db.GetContext(ctx, &info, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	return &info, nil
}

func (r *userRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := `SELECT id, username, email, password_hash, is_admin, created_at
              FROM users ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) SetAdmin(ctx context.Context, userID int, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, userID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		// Either the user does not exist or the flag already had this value.
		if _, err := r.GetUserByID(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepository) UpdateUsername(ctx context.Context, userID int, username string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, userID)
	if err != nil {
		if apperrors.IsDuplicateEntry(err) {
			return fmt.Errorf("username already taken: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update username: %w", err)
	}
	return nil
}

func (r *userRepository) UpdateEmail(ctx context.Context, userID int, email string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET email = ? WHERE id = ?`, email, userID)
	if err != nil {
		if apperrors.IsDuplicateEntry(err) {
			return fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteUserCascade removes a user together with every row they own:
// comments, posts (and the comments under them), solves, submissions and
// authored challenges (and the solves recorded against those challenges).
// Everything happens in one transaction so a failure leaves no partial state.
func (r *userRepository) DeleteUserCascade(ctx context.Context, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		desc  string
		query string
	}{
		{"delete authored comments", `DELETE FROM comments WHERE author_id = ?`},
		{"delete comments under authored posts", `DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id = ?)`},
		{"delete posts", `DELETE FROM posts WHERE author_id = ?`},
		{"delete solves", `DELETE FROM solves WHERE user_id = ?`},
		{"delete solves of authored challenges", `DELETE FROM solves WHERE challenge_id IN (SELECT id FROM challenges WHERE author_id = ?)`},
		{"delete authored challenges", `DELETE FROM challenges WHERE author_id = ?`},
		{"delete submissions", `DELETE FROM submissions WHERE author_id = ?`},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, userID); err != nil {
			return fmt.Errorf("failed to %s: %w", step.desc, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %d: %w", userID, apperrors.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *userRepository) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token expiration is in the past")
	}

	if err := r.cache.Set(ctx, key, userID, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token in cache: %w", err)
	}
	return nil
}

func (r *userRepository) GetRefreshToken(ctx context.Context, token string) (int, error) {
	key := fmt.Sprintf("refresh_token:%s", token)
	var userID int
	if err := r.cache.Get(ctx, key, &userID); err != nil {
		return 0, fmt.Errorf("refresh token not found in cache: %w", err)
	}
	return userID, nil
}

func (r *userRepository) RevokeToken(ctx context.Context, token string) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to revoke token from cache: %w", err)
	}
	return nil
}
