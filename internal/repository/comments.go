package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// CommentsRepository persists replies to posts.
type CommentsRepository struct {
	pool *pgxpool.Pool
}

// CommentCreateParams bundles the fields required to add a comment.
type CommentCreateParams struct {
	PostID     string
	Content    string
	AuthorID   string
	Author     string
	AuthorName string
}

const commentColumns = `id, post_id, content, author_id, author, author_name, created_at`

// Create stores a comment. A missing post surfaces as ErrNotFound.
func (r *CommentsRepository) Create(ctx context.Context, params CommentCreateParams) (domain.Comment, error) {
	const query = `
        INSERT INTO comments (id, post_id, content, author_id, author, author_name)
        SELECT $1::text, p.id, $3::text, $4::text, $5::text, $6::text FROM posts p WHERE p.id = $2
        RETURNING ` + commentColumns

	comment, err := scanComment(r.pool.QueryRow(ctx, query, uuid.NewString(), params.PostID,
		params.Content, params.AuthorID, params.Author, params.AuthorName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, ErrNotFound
		}
		return domain.Comment{}, err
	}
	return comment, nil
}

// ListByPost returns the comments of a post, oldest first.
func (r *CommentsRepository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanComment(row pgx.Row) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.Author, &c.AuthorName, &c.CreatedAt)
	return c, err
}
