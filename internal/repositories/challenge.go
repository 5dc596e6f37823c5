package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/models"

	"github.com/jmoiron/sqlx"
)

type ChallengeRepository interface {
	ListChallenges(ctx context.Context, filter models.ChallengeFilter) ([]models.ChallengeListItem, error)
	GetChallengeDetail(ctx context.Context, challengeID int) (*models.ChallengeDetail, error)
	GetChallenge(ctx context.Context, challengeID int) (*models.Challenge, error)
	GetSolvedChallengeIDs(ctx context.Context, userID int) (map[int]bool, error)
	HasSolved(ctx context.Context, userID, challengeID int) (bool, error)
	InsertSolve(ctx context.Context, userID, challengeID int) error
	GetUserScore(ctx context.Context, userID int) (int, error)
	Scoreboard(ctx context.Context) ([]models.ScoreboardEntry, error)
	DeleteChallengeCascade(ctx context.Context, challengeID int) error
}

type challengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) ListChallenges(ctx context.Context, filter models.ChallengeFilter) ([]models.ChallengeListItem, error) {
	query := `
        SELECT c.id, c.title, c.category, c.difficulty, c.points, c.created_at,
               (SELECT COUNT(*) FROM solves s WHERE s.challenge_id = c.id) AS solve_count
        FROM challenges c
        JOIN users u ON u.id = c.author_id
        WHERE 1 = 1`
	args := []interface{}{}

	if filter.Category != "" {
		query += ` AND c.category = ?`
		args = append(args, filter.Category)
	}
	switch filter.Source {
	case models.SourceOfficial:
		query += ` AND u.is_admin = TRUE`
	case models.SourceCommunity:
		query += ` AND u.is_admin = FALSE`
	}
	if filter.Search != "" {
		query += ` AND (c.title LIKE ? OR c.description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY c.created_at DESC`

	var challenges []models.ChallengeListItem
	if err := r.db.SelectContext(ctx, &challenges, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

func (r *challengeRepository) GetChallengeDetail(ctx context.Context, challengeID int) (*models.ChallengeDetail, error) {
	query := `
        SELECT c.id, c.title, c.description, c.category, c.difficulty, c.points,
               u.username AS author_name, c.created_at,
               (SELECT COUNT(*) FROM solves s WHERE s.challenge_id = c.id) AS solve_count
        FROM challenges c
        JOIN users u ON u.id = c.author_id
        WHERE c.id = ?`

	var detail models.ChallengeDetail
	if err := r.db.GetContext(ctx, &detail, query, challengeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &detail, nil
}

func (r *challengeRepository) GetChallenge(ctx context.Context, challengeID int) (*models.Challenge, error) {
	query := `SELECT id, title, description, category, difficulty, flag, points, author_id, created_at
              FROM challenges WHERE id = ?`

	var challenge models.Challenge
	if err := r.db.GetContext(ctx, &challenge, query, challengeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

func (r *challengeRepository) GetSolvedChallengeIDs(ctx context.Context, userID int) (map[int]bool, error) {
	var challengeIDs []int
	query := `SELECT challenge_id FROM solves WHERE user_id = ?`
	if err := r.db.SelectContext(ctx, &challengeIDs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get solved challenge IDs: %w", err)
	}

	solved := make(map[int]bool, len(challengeIDs))
	for _, id := range challengeIDs {
		solved[id] = true
	}
	return solved, nil
}

func (r *challengeRepository) HasSolved(ctx context.Context, userID, challengeID int) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM solves WHERE user_id = ? AND challenge_id = ?`
	if err := r.db.GetContext(ctx, &count, query, userID, challengeID); err != nil {
		return false, fmt.Errorf("failed to check solve: %w", err)
	}
	return count > 0, nil
}

// InsertSolve records a solve. The unique (user_id, challenge_id) index is
// what makes concurrent duplicate submissions safe: the second insert fails
// with a duplicate-key error and is surfaced as ErrConflict, never as a
// second row or a double point award.
func (r *challengeRepository) InsertSolve(ctx context.Context, userID, challengeID int) error {
	query := `INSERT INTO solves (user_id, challenge_id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, challengeID); err != nil {
		if apperrors.IsDuplicateEntry(err) {
			return fmt.Errorf("challenge already solved: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to insert solve: %w", err)
	}
	return nil
}

func (r *challengeRepository) GetUserScore(ctx context.Context, userID int) (int, error) {
	var score int
	query := `
        SELECT COALESCE(SUM(c.points), 0)
        FROM solves s
        JOIN challenges c ON c.id = s.challenge_id
        WHERE s.user_id = ?`
	if err := r.db.GetContext(ctx, &score, query, userID); err != nil {
		return 0, fmt.Errorf("failed to compute user score: %w", err)
	}
	return score, nil
}

// Scoreboard ranks every user by total points in a single aggregation.
// Ties are broken by who reached their score first (earlier last solve),
// then by username for a stable order.
func (r *challengeRepository) Scoreboard(ctx context.Context) ([]models.ScoreboardEntry, error) {
	query := `
        SELECT u.id AS user_id, u.username,
               COALESCE(SUM(c.points), 0) AS score,
               MAX(s.solved_at) AS last_solve_at
        FROM users u
        LEFT JOIN solves s ON s.user_id = u.id
        LEFT JOIN challenges c ON c.id = s.challenge_id
        GROUP BY u.id, u.username
        ORDER BY score DESC, last_solve_at IS NULL, last_solve_at ASC, u.username ASC`

	var entries []models.ScoreboardEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to compute scoreboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (r *challengeRepository) DeleteChallengeCascade(ctx context.Context, challengeID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM solves WHERE challenge_id = ?`, challengeID); err != nil {
		return fmt.Errorf("failed to delete solves of challenge: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("challenge %d: %w", challengeID, apperrors.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
