package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"ctfhub/internal/apperrors"
	"ctfhub/internal/models"

	"github.com/jmoiron/sqlx"
)

type CommunityRepository interface {
	ListPosts(ctx context.Context) ([]models.PostListItem, error)
	CreatePost(ctx context.Context, authorID int, req *models.PostRequest) (*models.Post, error)
	GetPost(ctx context.Context, postID int) (*models.Post, error)
	ListComments(ctx context.Context, postID int) ([]models.Comment, error)
	AddComment(ctx context.Context, authorID, postID int, content string) (*models.Comment, error)
	UpvotePost(ctx context.Context, postID int) error
	UpdatePost(ctx context.Context, postID int, title, content string) error
	DeletePostCascade(ctx context.Context, postID int) error
}

type communityRepository struct {
	db *sqlx.DB
}

func NewCommunityRepository(db *sqlx.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) ListPosts(ctx context.Context) ([]models.PostListItem, error) {
	query := `
        SELECT p.id, p.title, u.username AS author_name, p.upvotes, p.created_at,
               (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
        FROM posts p
        JOIN users u ON u.id = p.author_id
        ORDER BY p.created_at DESC`

	var posts []models.PostListItem
	if err := r.db.SelectContext(ctx, &posts, query); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (r *communityRepository) CreatePost(ctx context.Context, authorID int, req *models.PostRequest) (*models.Post, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (title, content, author_id) VALUES (?, ?, ?)`,
		req.Title, req.Content, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.Post{
		ID:       int(id),
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: authorID,
	}, nil
}

func (r *communityRepository) GetPost(ctx context.Context, postID int) (*models.Post, error) {
	query := `
        SELECT p.id, p.title, p.content, p.author_id, u.username AS author_name, p.upvotes, p.created_at
        FROM posts p
        JOIN users u ON u.id = p.author_id
        WHERE p.id = ?`

	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, postID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

func (r *communityRepository) ListComments(ctx context.Context, postID int) ([]models.Comment, error) {
	query := `
        SELECT c.id, c.content, c.author_id, u.username AS author_name, c.post_id, c.created_at
        FROM comments c
        JOIN users u ON u.id = c.author_id
        WHERE c.post_id = ?
        ORDER BY c.created_at ASC`

	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *communityRepository) AddComment(ctx context.Context, authorID, postID int, content string) (*models.Comment, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (content, author_id, post_id) VALUES (?, ?, ?)`,
		content, authorID, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.Comment{
		ID:       int(id),
		Content:  content,
		AuthorID: authorID,
		PostID:   postID,
	}, nil
}

// UpvotePost bumps the counter atomically in the store, so concurrent
// upvotes never lose increments.
func (r *communityRepository) UpvotePost(ctx context.Context, postID int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE posts SET upvotes = upvotes + 1 WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("failed to upvote post: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}
	return nil
}

func (r *communityRepository) UpdatePost(ctx context.Context, postID int, title, content string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ? WHERE id = ?`, title, content, postID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		if _, err := r.GetPost(ctx, postID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePostCascade removes a post and its comments in one transaction, so
// no orphaned comment can survive the post it belongs to.
func (r *communityRepository) DeletePostCascade(ctx context.Context, postID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, postID); err != nil {
		return fmt.Errorf("failed to delete comments of post: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("post %d: %w", postID, apperrors.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
