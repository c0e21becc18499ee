package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// GymsRepository persists gym venues.
type GymsRepository struct {
	pool *pgxpool.Pool
}

const gymColumns = `id, name, type, address, lat, lng, rating, reviews_count, created_at`

// GymCreateParams bundles the fields required to create a gym.
type GymCreateParams struct {
	Name         string
	Type         string
	Address      string
	Location     domain.Location
	Rating       *float64
	ReviewsCount int
}

// GymListFilters narrows a gym listing. Empty or "all" Type disables the type filter.
type GymListFilters struct {
	Query *string
	Type  *string
}

// Create inserts a gym.
func (r *GymsRepository) Create(ctx context.Context, params GymCreateParams) (domain.Gym, error) {
	query := fmt.Sprintf(`
        INSERT INTO gyms (id, name, type, address, lat, lng, rating, reviews_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING %s
    `, gymColumns)
	return scanGym(r.pool.QueryRow(ctx, query, uuid.NewString(), params.Name, params.Type, params.Address,
		params.Location.Lat, params.Location.Lng, params.Rating, params.ReviewsCount))
}

// Get loads a gym by id.
func (r *GymsRepository) Get(ctx context.Context, id string) (domain.Gym, error) {
	query := fmt.Sprintf(`SELECT %s FROM gyms WHERE id = $1`, gymColumns)
	gym, err := scanGym(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Gym{}, ErrNotFound
		}
		return domain.Gym{}, err
	}
	return gym, nil
}

// List returns gyms matching the filters ordered by name.
func (r *GymsRepository) List(ctx context.Context, filters GymListFilters) ([]domain.Gym, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		placeholder := arg(containsPattern(strings.TrimSpace(*filters.Query)))
		where = append(where, fmt.Sprintf(`(name ILIKE %s ESCAPE '\' OR address ILIKE %s ESCAPE '\')`, placeholder, placeholder))
	}
	if filters.Type != nil {
		if t := strings.TrimSpace(*filters.Type); t != "" && !strings.EqualFold(t, "all") {
			where = append(where, fmt.Sprintf("type = %s", arg(t)))
		}
	}

	query := "SELECT " + gymColumns + " FROM gyms"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gyms := make([]domain.Gym, 0)
	for rows.Next() {
		gym, err := scanGym(rows)
		if err != nil {
			return nil, err
		}
		gyms = append(gyms, gym)
	}
	return gyms, rows.Err()
}

func scanGym(row pgx.Row) (domain.Gym, error) {
	var g domain.Gym
	err := row.Scan(&g.ID, &g.Name, &g.Type, &g.Address, &g.Location.Lat, &g.Location.Lng,
		&g.Rating, &g.ReviewsCount, &g.CreatedAt)
	return g, err
}
