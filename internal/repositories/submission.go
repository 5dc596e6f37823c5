package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/models"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, authorID int, req *models.SubmissionRequest) (*models.Submission, error)
	GetSubmissionByID(ctx context.Context, submissionID int) (*models.Submission, error)
	ListByAuthor(ctx context.Context, authorID int) ([]models.Submission, error)
	ListByStatus(ctx context.Context, status string) ([]models.Submission, error)
	ApproveSubmission(ctx context.Context, submissionID int) (challenge *models.Challenge, alreadyApproved bool, err error)
	RejectSubmission(ctx context.Context, submissionID int) (alreadyRejected bool, err error)
}

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) CreateSubmission(ctx context.Context, authorID int, req *models.SubmissionRequest) (*models.Submission, error) {
	query := `INSERT INTO submissions (title, description, category, difficulty, flag, points, author_id, status)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		req.Title, req.Description, req.Category, req.Difficulty,
		req.Flag, req.Points, authorID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.Submission{
		ID:          int(id),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Flag:        req.Flag,
		Points:      req.Points,
		AuthorID:    authorID,
		Status:      models.StatusPending,
	}, nil
}

func (r *submissionRepository) GetSubmissionByID(ctx context.Context, submissionID int) (*models.Submission, error) {
	var submission models.Submission
	query := `SELECT id, title, description, category, difficulty, flag, points, author_id, status, created_at
              FROM submissions WHERE id = ?`
	if err := r.db.GetContext(ctx, &submission, query, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("submission %d: %w", submissionID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &submission, nil
}

func (r *submissionRepository) ListByAuthor(ctx context.Context, authorID int) ([]models.Submission, error) {
	var submissions []models.Submission
	query := `SELECT id, title, description, category, difficulty, flag, points, author_id, status, created_at
              FROM submissions WHERE author_id = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &submissions, query, authorID); err != nil {
		return nil, fmt.Errorf("failed to list submissions by author: %w", err)
	}
	return submissions, nil
}

func (r *submissionRepository) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	var submissions []models.Submission
	query := `SELECT id, title, description, category, difficulty, flag, points, author_id, status, created_at
              FROM submissions WHERE status = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &submissions, query, status); err != nil {
		return nil, fmt.Errorf("failed to list submissions by status: %w", err)
	}
	return submissions, nil
}

// ApproveSubmission flips a pending submission to approved and materializes
// the corresponding challenge in the same transaction. Approving an already
// approved submission is a no-op and never creates a second challenge.
// A rejected submission is terminal and cannot be approved.
func (r *submissionRepository) ApproveSubmission(ctx context.Context, submissionID int) (*models.Challenge, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var submission models.Submission
	query := `SELECT id, title, description, category, difficulty, flag, points, author_id, status, created_at
              FROM submissions WHERE id = ? FOR UPDATE`
	if err := tx.GetContext(ctx, &submission, query, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, fmt.Errorf("submission %d: %w", submissionID, apperrors.ErrNotFound)
		}
		return nil, false, fmt.Errorf("failed to get submission: %w", err)
	}

	switch submission.Status {
	case models.StatusApproved:
		return nil, true, nil
	case models.StatusRejected:
		return nil, false, fmt.Errorf("submission is already rejected: %w", apperrors.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE submissions SET status = ? WHERE id = ?`,
		models.StatusApproved, submissionID); err != nil {
		return nil, false, fmt.Errorf("failed to update submission status: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO challenges (title, description, category, difficulty, flag, points, author_id)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		submission.Title, submission.Description, submission.Category,
		submission.Difficulty, submission.Flag, submission.Points, submission.AuthorID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create challenge from submission: %w", err)
	}

	challengeID, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Challenge{
		ID:          int(challengeID),
		Title:       submission.Title,
		Description: submission.Description,
		Category:    submission.Category,
		Difficulty:  submission.Difficulty,
		Flag:        submission.Flag,
		Points:      submission.Points,
		AuthorID:    submission.AuthorID,
	}, false, nil
}

// RejectSubmission moves a pending submission to rejected. An approved
// submission cannot be rejected: its challenge is already live, and silently
// rejecting it would leave the catalog and the submission disagreeing.
func (r *submissionRepository) RejectSubmission(ctx context.Context, submissionID int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = ? WHERE id = ? AND status = ?`,
		models.StatusRejected, submissionID, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to reject submission: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return false, nil
	}

	submission, err := r.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return false, err
	}
	switch submission.Status {
	case models.StatusRejected:
		return true, nil
	case models.StatusApproved:
		return false, fmt.Errorf("submission is already approved: %w", apperrors.ErrConflict)
	default:
		return false, fmt.Errorf("failed to reject submission %d", submissionID)
	}
}
