package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

const recentLimit = 5

// StatsRepository computes the admin dashboard figures.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// Dashboard gathers counters and the most recent posts and users in one round trip.
func (r *StatsRepository) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT count(*) FROM posts`)
	batch.Queue(`SELECT count(*) FROM users`)
	batch.Queue(`SELECT count(*) FROM comments`)
	batch.Queue(fmt.Sprintf(`SELECT %s FROM posts ORDER BY created_at DESC, id DESC LIMIT %d`, postColumns, recentLimit))
	batch.Queue(fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC, id DESC LIMIT %d`, userColumns, recentLimit))

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var stats domain.DashboardStats
	for _, target := range []*int64{&stats.TotalPosts, &stats.TotalUsers, &stats.TotalComments} {
		if err := results.QueryRow().Scan(target); err != nil {
			return domain.DashboardStats{}, fmt.Errorf("count: %w", err)
		}
	}

	rows, err := results.Query()
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("recent posts: %w", err)
	}
	stats.RecentPosts = make([]domain.Post, 0, recentLimit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return domain.DashboardStats{}, err
		}
		stats.RecentPosts = append(stats.RecentPosts, post)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.DashboardStats{}, err
	}

	rows, err = results.Query()
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("recent users: %w", err)
	}
	stats.RecentUsers = make([]domain.User, 0, recentLimit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return domain.DashboardStats{}, err
		}
		stats.RecentUsers = append(stats.RecentUsers, user)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.DashboardStats{}, err
	}

	return stats, nil
}
