package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// UsersRepository stores profiles of authenticated accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, display_name, role, created_at`

// Ensure creates the profile with the user role on first sight, otherwise
// refreshes email and display name. The stored role is never changed here.
// The bool reports whether the row was created.
func (r *UsersRepository) Ensure(ctx context.Context, id, email, displayName string) (domain.User, bool, error) {
	const query = `
        INSERT INTO users (id, email, display_name, role)
        VALUES ($1, $2, $3, 'user')
        ON CONFLICT (id)
        DO UPDATE SET email = EXCLUDED.email,
                      display_name = CASE WHEN EXCLUDED.display_name = '' THEN users.display_name ELSE EXCLUDED.display_name END
        RETURNING ` + userColumns + `, (xmax = 0) AS inserted
    `

	var (
		user     domain.User
		inserted bool
	)
	err := r.pool.QueryRow(ctx, query, id, email, displayName).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.CreatedAt, &inserted,
	)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, inserted, nil
}

// Get loads a profile by id.
func (r *UsersRepository) Get(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// SetRole changes the role of an existing profile.
func (r *UsersRepository) SetRole(ctx context.Context, id, role string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.CreatedAt)
	return u, err
}
