package models

import (
	"errors"
	"strings"
	"time"
)

type Post struct {
	ID         int       `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Content    string    `db:"content" json:"content"`
	AuthorID   int       `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Upvotes    int       `db:"upvotes" json:"upvotes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type PostListItem struct {
	ID           int       `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	AuthorName   string    `db:"author_name" json:"author_name"`
	Upvotes      int       `db:"upvotes" json:"upvotes"`
	CommentCount int       `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Comment struct {
	ID         int       `db:"id" json:"id"`
	Content    string    `db:"content" json:"content"`
	AuthorID   int       `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	PostID     int       `db:"post_id" json:"post_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type PostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (r *PostRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("content cannot be empty")
	}
	return nil
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (r *CommentRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("comment cannot be empty")
	}
	return nil
}

// AdminStats is the dashboard overview for administrators.
type AdminStats struct {
	TotalUsers         int `db:"total_users" json:"total_users"`
	TotalAdmins        int `db:"total_admins" json:"total_admins"`
	TotalChallenges    int `db:"total_challenges" json:"total_challenges"`
	PendingSubmissions int `db:"pending_submissions" json:"pending_submissions"`
	TotalPosts         int `db:"total_posts" json:"total_posts"`
}
