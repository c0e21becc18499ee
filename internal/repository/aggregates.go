package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
	"github.com/Clark-Hu/gymblog/internal/rating"
)

// RatingsRepository stores per-post aggregate documents in post_ratings.
// It implements rating.Store.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

var _ rating.Store = (*RatingsRepository)(nil)

const aggregateColumns = `post_id, ratings, likes, average_rating, total_ratings, last_updated, version`

// Get loads the document of a post.
func (r *RatingsRepository) Get(ctx context.Context, postID string) (domain.PostRating, error) {
	query := fmt.Sprintf(`SELECT %s FROM post_ratings WHERE post_id = $1`, aggregateColumns)
	doc, err := scanAggregate(r.pool.QueryRow(ctx, query, postID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PostRating{}, rating.ErrNotFound
		}
		return domain.PostRating{}, err
	}
	return doc, nil
}

// Insert creates the document at version 1 unless one already exists.
func (r *RatingsRepository) Insert(ctx context.Context, doc domain.PostRating) (domain.PostRating, error) {
	payload, err := json.Marshal(doc.Ratings)
	if err != nil {
		return domain.PostRating{}, fmt.Errorf("encode ratings: %w", err)
	}

	query := fmt.Sprintf(`
        INSERT INTO post_ratings (post_id, ratings, likes, average_rating, total_ratings, last_updated, version)
        VALUES ($1, $2::jsonb, $3, $4, $5, $6, 1)
        ON CONFLICT (post_id) DO NOTHING
        RETURNING %s
    `, aggregateColumns)

	saved, err := scanAggregate(r.pool.QueryRow(ctx, query,
		doc.PostID, string(payload), likesOrEmpty(doc.Likes), doc.AverageRating, doc.TotalRatings, doc.LastUpdated))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PostRating{}, rating.ErrConflict
		}
		return domain.PostRating{}, err
	}
	return saved, nil
}

// Replace overwrites the document only if its stored version is expectedVersion.
func (r *RatingsRepository) Replace(ctx context.Context, doc domain.PostRating, expectedVersion int64) (domain.PostRating, error) {
	payload, err := json.Marshal(doc.Ratings)
	if err != nil {
		return domain.PostRating{}, fmt.Errorf("encode ratings: %w", err)
	}

	query := fmt.Sprintf(`
        UPDATE post_ratings
        SET ratings = $2::jsonb,
            likes = $3,
            average_rating = $4,
            total_ratings = $5,
            last_updated = $6,
            version = version + 1
        WHERE post_id = $1 AND version = $7
        RETURNING %s
    `, aggregateColumns)

	saved, err := scanAggregate(r.pool.QueryRow(ctx, query,
		doc.PostID, string(payload), likesOrEmpty(doc.Likes), doc.AverageRating, doc.TotalRatings, doc.LastUpdated, expectedVersion))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PostRating{}, rating.ErrConflict
		}
		return domain.PostRating{}, err
	}
	return saved, nil
}

// Delete removes the document of a post.
func (r *RatingsRepository) Delete(ctx context.Context, postID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM post_ratings WHERE post_id = $1`, postID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rating.ErrNotFound
	}
	return nil
}

func scanAggregate(row pgx.Row) (domain.PostRating, error) {
	var (
		doc     domain.PostRating
		ratings []byte
	)
	err := row.Scan(
		&doc.PostID,
		&ratings,
		&doc.Likes,
		&doc.AverageRating,
		&doc.TotalRatings,
		&doc.LastUpdated,
		&doc.Version,
	)
	if err != nil {
		return domain.PostRating{}, err
	}
	doc.Ratings = []domain.RatingRecord{}
	if len(ratings) > 0 {
		if err := json.Unmarshal(ratings, &doc.Ratings); err != nil {
			return domain.PostRating{}, fmt.Errorf("decode ratings: %w", err)
		}
	}
	if doc.Likes == nil {
		doc.Likes = []string{}
	}
	doc.LastUpdated = doc.LastUpdated.UTC()
	return doc, nil
}

func likesOrEmpty(likes []string) []string {
	if likes == nil {
		return []string{}
	}
	return likes
}
