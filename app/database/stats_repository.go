package database

import (
	"context"
	"fmt"
)

type StatsStore struct {
	conn
}

func NewStatsStore(db *DB) *StatsStore {
	return &StatsStore{conn: db.conn()}
}

// GetSystemStats returns four independent, unfiltered counts.
func (r *StatsStore) GetSystemStats(ctx context.Context) (SystemStats, error) {
	var stats SystemStats

	counts := []struct {
		name  string
		query string
		args  []any
		dest  *int
	}{
		{"topics", `SELECT COUNT(*) FROM topics`, nil, &stats.TopicsTotal},
		{"active topics", `SELECT COUNT(*) FROM topics WHERE is_active = ?`, []any{true}, &stats.ActiveTopics},
		{"posts", `SELECT COUNT(*) FROM posts`, nil, &stats.PostsTotal},
		{"push logs", `SELECT COUNT(*) FROM push_logs`, nil, &stats.LogsTotal},
	}

	for _, c := range counts {
		if err := r.queryRow(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return SystemStats{}, fmt.Errorf("failed to count %s: %w", c.name, err)
		}
	}

	return stats, nil
}
