// Package store owns the Postgres pool behind gymblog. Posts, comments,
// profiles, gyms and, unless RATING_STORE=mongo, the per-post rating
// documents all live in this one database; internal/repository holds the SQL.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options controls connection-pool behaviour. MigrationsDir, when set, makes
// New bring the schema up to date before returning.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	MigrationsDir          string
	Logger                 *log.Logger
}

// Store is shared by every repository and by the /healthz and pool-metrics
// wiring in cmd/server.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

// New opens the pool, pings it and applies pending migrations. The rating
// aggregator relies on statement caching for its hot read-modify-write loop,
// so the cache mode is set whenever a capacity is configured.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("store: initializing connection pool (max=%d, min=%d, idle=%s, life=%s, stmt_cache=%d)",
		opts.MaxConns, opts.MinConns, opts.MaxConnIdleTime, opts.MaxConnLifetime, opts.StatementCacheCapacity)

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	}

	connCtx := ctx
	if opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		connCtx, cancel = context.WithTimeout(ctx, opts.ConnTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Println("store: database connection established")
	st := &Store{pool: pool, logger: logger, opts: opts}

	if opts.MigrationsDir != "" {
		applied, err := st.Migrate(ctx, opts.MigrationsDir)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Printf("store: schema up to date (%d migrations applied)", len(applied))
	}
	return st, nil
}

// Close drains the pool on shutdown.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Println("store: closing connection pool")
	s.pool.Close()
}

// HealthCheck backs GET /healthz. It is bounded by ConnTimeout so a stalled
// database fails the probe instead of hanging it.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store not initialized")
	}
	checkCtx := ctx
	if s.opts.ConnTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, s.opts.ConnTimeout)
		defer cancel()
	}
	if err := s.pool.Ping(checkCtx); err != nil {
		return err
	}
	return nil
}

// Pool hands the pgx pool to repository.New.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies pending migrations from dir to this store's database.
func (s *Store) Migrate(ctx context.Context, dir string) ([]string, error) {
	return Migrate(ctx, s.pool, dir, s.logger)
}

// Stats exposes pgxpool statistics; cmd/server feeds them to the pool gauges.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}
