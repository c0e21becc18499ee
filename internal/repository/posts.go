package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// PostsRepository provides persistence helpers for posts.
type PostsRepository struct {
	pool *pgxpool.Pool
}

const postColumns = `
    id,
    title,
    content,
    content_html,
    author_id,
    author,
    author_name,
    file_name,
    file_url,
    created_at,
    updated_at
`

// PostCreateParams bundles the fields required to create a post.
type PostCreateParams struct {
	Title       string
	Content     string
	ContentHTML string
	AuthorID    string
	Author      string
	AuthorName  string
	Attachment  *domain.Attachment
}

// PostUpdateParams carries the editable fields of a post.
type PostUpdateParams struct {
	Title       string
	Content     string
	ContentHTML string
}

// PostListFilters encapsulates search and pagination options.
type PostListFilters struct {
	Query    *string
	AuthorID *string
	Limit    int
	Cursor   *PostCursor
}

// PostCursor allows stable pagination by created_at/id.
type PostCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// PostListResult returns the paginated payload.
type PostListResult struct {
	Items      []domain.Post
	NextCursor *string
}

// Create inserts a new post row and returns the stored entity.
func (r *PostsRepository) Create(ctx context.Context, params PostCreateParams) (domain.Post, error) {
	var fileName, fileURL *string
	if params.Attachment != nil {
		fileName = &params.Attachment.FileName
		fileURL = &params.Attachment.FileURL
	}

	query := fmt.Sprintf(`
        INSERT INTO posts (id, title, content, content_html, author_id, author, author_name, file_name, file_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING %s
    `, postColumns)

	row := r.pool.QueryRow(ctx, query, uuid.NewString(), params.Title, params.Content, params.ContentHTML,
		params.AuthorID, params.Author, params.AuthorName, fileName, fileURL)
	return scanPost(row)
}

// GetByID fetches a post by its identifier.
func (r *PostsRepository) GetByID(ctx context.Context, id string) (domain.Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE id = $1`, postColumns)
	post, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, ErrNotFound
		}
		return domain.Post{}, err
	}
	return post, nil
}

// Update rewrites the title and body of a post and bumps updated_at.
// Authorship and the attachment are left as they are.
func (r *PostsRepository) Update(ctx context.Context, id string, params PostUpdateParams) (domain.Post, error) {
	query := fmt.Sprintf(`
        UPDATE posts
        SET title = $2, content = $3, content_html = $4, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, postColumns)

	post, err := scanPost(r.pool.QueryRow(ctx, query, id, params.Title, params.Content, params.ContentHTML))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// Delete removes a post; its comments go with it through the foreign key.
func (r *PostsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns posts that match the provided filters, newest first.
func (r *PostsRepository) List(ctx context.Context, filters PostListFilters) (PostListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := containsPattern(strings.TrimSpace(*filters.Query))
		where = append(where, fmt.Sprintf(`title ILIKE %s ESCAPE '\'`, arg(q)))
	}
	if filters.AuthorID != nil && *filters.AuthorID != "" {
		where = append(where, fmt.Sprintf("author_id = %s", arg(*filters.AuthorID)))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", cursorCreated, cursorID))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(postColumns)
	queryBuilder.WriteString(" FROM posts")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return PostListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return PostListResult{}, err
		}
		items = append(items, post)
	}
	if err := rows.Err(); err != nil {
		return PostListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(PostCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return PostListResult{}, err
		}
		nextCursor = &token
	}

	return PostListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		post     domain.Post
		fileName *string
		fileURL  *string
	)
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.ContentHTML,
		&post.AuthorID,
		&post.Author,
		&post.AuthorName,
		&fileName,
		&fileURL,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return domain.Post{}, err
	}
	if fileName != nil && fileURL != nil {
		post.Attachment = &domain.Attachment{FileName: *fileName, FileURL: *fileURL}
	}
	return post, nil
}

func encodeCursor(c PostCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a PostCursor.
func DecodeCursor(token string) (*PostCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor PostCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
