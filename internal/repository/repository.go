package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/gymblog/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Posts    *PostsRepository
	Ratings  *RatingsRepository
	Comments *CommentsRepository
	Users    *UsersRepository
	Gyms     *GymsRepository
	Stats    *StatsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Posts:    &PostsRepository{pool: pool},
		Ratings:  &RatingsRepository{pool: pool},
		Comments: &CommentsRepository{pool: pool},
		Users:    &UsersRepository{pool: pool},
		Gyms:     &GymsRepository{pool: pool},
		Stats:    &StatsRepository{pool: pool},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns user input into an ILIKE substring pattern. Wildcards
// in the input match literally; pair it with ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
