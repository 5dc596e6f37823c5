package models

import (
	"errors"
	"strings"
	"time"
)

// Challenge source filters. Official challenges are authored by admins,
// community challenges come through the submission review workflow.
const (
	SourceOfficial  = "official"
	SourceCommunity = "community"
)

type Challenge struct {
	ID          int       `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Difficulty  string    `db:"difficulty" json:"difficulty"`
	Flag        string    `db:"flag" json:"-"`
	Points      int       `db:"points" json:"points"`
	AuthorID    int       `db:"author_id" json:"author_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ChallengeListItem struct {
	ID         int       `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Category   string    `db:"category" json:"category"`
	Difficulty string    `db:"difficulty" json:"difficulty"`
	Points     int       `db:"points" json:"points"`
	SolveCount int       `db:"solve_count" json:"solve_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	IsSolved   bool      `db:"-" json:"is_solved"`
}

type ChallengeDetail struct {
	ID            int       `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Category      string    `db:"category" json:"category"`
	Difficulty    string    `db:"difficulty" json:"difficulty"`
	Points        int       `db:"points" json:"points"`
	AuthorName    string    `db:"author_name" json:"author_name"`
	SolveCount    int       `db:"solve_count" json:"solve_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	AlreadySolved bool      `db:"-" json:"already_solved"`
}

// ChallengeFilter narrows the challenge listing. Zero values mean "no filter".
type ChallengeFilter struct {
	Category string
	Source   string
	Search   string
}

func (f *ChallengeFilter) Validate() error {
	if f.Source != "" && f.Source != SourceOfficial && f.Source != SourceCommunity {
		return errors.New("source must be 'official' or 'community'")
	}
	return nil
}

type Solve struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	ChallengeID int       `db:"challenge_id" json:"challenge_id"`
	SolvedAt    time.Time `db:"solved_at" json:"solved_at"`
}

// Flag submission outcomes surfaced to the client.
const (
	FlagResultCorrect       = "correct"
	FlagResultIncorrect     = "incorrect"
	FlagResultAlreadySolved = "already_solved"
)

type FlagSubmissionRequest struct {
	Flag string `json:"flag" binding:"required"`
}

func (r *FlagSubmissionRequest) Validate() error {
	if strings.TrimSpace(r.Flag) == "" {
		return errors.New("flag cannot be empty")
	}
	return nil
}

type ScoreboardEntry struct {
	Rank        int        `db:"-" json:"rank"`
	UserID      int        `db:"user_id" json:"user_id"`
	Username    string     `db:"username" json:"username"`
	Score       int        `db:"score" json:"score"`
	LastSolveAt *time.Time `db:"last_solve_at" json:"last_solve_at,omitempty"`
}

// SolveFeedEntry is one item of the recent-solves stream.
type SolveFeedEntry struct {
	Username       string    `json:"username"`
	ChallengeTitle string    `json:"challenge_title"`
	Points         int       `json:"points"`
	SolvedAt       time.Time `json:"solved_at"`
}
