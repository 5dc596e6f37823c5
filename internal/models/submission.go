package models

import (
	"errors"
	"strings"
	"time"
)

// Submission review states. A submission starts pending and is moved to
// approved or rejected exactly once; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Submission struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Difficulty  string    `db:"difficulty" json:"difficulty"`
	Flag        string    `db:"flag" json:"-"`
	Points      int       `db:"points" json:"points"`
	AuthorID    int       `db:"author_id" json:"author_id"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type SubmissionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Difficulty  string `json:"difficulty" binding:"required"`
	Flag        string `json:"flag" binding:"required"`
	Points      int    `json:"points"`
}

func (r *SubmissionRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description cannot be empty")
	}
	if strings.TrimSpace(r.Category) == "" {
		return errors.New("category cannot be empty")
	}
	if strings.TrimSpace(r.Difficulty) == "" {
		return errors.New("difficulty cannot be empty")
	}
	if strings.TrimSpace(r.Flag) == "" {
		return errors.New("flag cannot be empty")
	}
	if r.Points < 0 {
		return errors.New("points must not be negative")
	}
	return nil
}

// SubmissionReview groups submissions by status for the admin review page.
type SubmissionReview struct {
	Pending  []Submission `json:"pending"`
	Approved []Submission `json:"approved"`
	Rejected []Submission `json:"rejected"`
}
