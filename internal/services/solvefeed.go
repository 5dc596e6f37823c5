package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ctfhub/internal/models"

	"github.com/redis/go-redis/v9"
)

// SolveFeed is a capped feed of recent correct flag submissions. Writers
// append synchronously when a solve is recorded; readers page the newest
// entries for the live feed on the scoreboard page.
type SolveFeed interface {
	Publish(ctx context.Context, entry models.SolveFeedEntry) error
	Recent(ctx context.Context, count int64) ([]models.SolveFeedEntry, error)
}

type redisSolveFeed struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewSolveFeed(rdb *redis.Client, stream string, maxLen int64) SolveFeed {
	return &redisSolveFeed{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (f *redisSolveFeed) Publish(ctx context.Context, entry models.SolveFeedEntry) error {
	err := f.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: f.maxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"username":        entry.Username,
			"challenge_title": entry.ChallengeTitle,
			"points":          entry.Points,
			"solved_at":       entry.SolvedAt.UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append solve feed entry: %w", err)
	}
	return nil
}

func (f *redisSolveFeed) Recent(ctx context.Context, count int64) ([]models.SolveFeedEntry, error) {
	messages, err := f.rdb.XRevRangeN(ctx, f.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read solve feed: %w", err)
	}

	entries := make([]models.SolveFeedEntry, 0, len(messages))
	for _, msg := range messages {
		entry := models.SolveFeedEntry{}
		if v, ok := msg.Values["username"].(string); ok {
			entry.Username = v
		}
		if v, ok := msg.Values["challenge_title"].(string); ok {
			entry.ChallengeTitle = v
		}
		if v, ok := msg.Values["points"].(string); ok {
			entry.Points, _ = strconv.Atoi(v)
		}
		if v, ok := msg.Values["solved_at"].(string); ok {
			entry.SolvedAt, _ = time.Parse(time.RFC3339, v)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
