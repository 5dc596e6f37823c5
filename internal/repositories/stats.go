package repositories

import (
	"context"
	"fmt"

	"ctfhub/internal/models"

	"github.com/jmoiron/sqlx"
)

type StatsRepository interface {
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
}

type statsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM users) AS total_users,
            (SELECT COUNT(*) FROM users WHERE is_admin = TRUE) AS total_admins,
            (SELECT COUNT(*) FROM challenges) AS total_challenges,
            (SELECT COUNT(*) FROM submissions WHERE status = 'pending') AS pending_submissions,
            (SELECT COUNT(*) FROM posts) AS total_posts`

	var stats models.AdminStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get admin stats: %w", err)
	}
	return &stats, nil
}
