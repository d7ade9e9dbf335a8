// Package postgres implements the persistence ports over PostgreSQL with
// the pgvector extension: graph nodes/edges with atomic keyed upserts, and
// memory units with filtered vector, full-text and entity search over the
// same rows.
package postgres

import (
	"context"
	"fmt"
	"time"

	"recall-backend/pkg/observability"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Config holds the connection pool settings
type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
	// EmbeddingDims is the dimensionality of the memory embedding column.
	EmbeddingDims int
}

// DefaultConfig returns pool defaults tuned for the retrieval workload
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:               dsn,
		MaxConns:          16,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    5 * time.Second,
		EmbeddingDims:     1536,
	}
}

// Store wraps the pgx pool with the transient-retry acquisition policy the
// repositories share. Idle connections are validated in the background on
// the pool's health-check schedule, independent of request serving.
type Store struct {
	pool    *pgxpool.Pool
	retry   retryPolicy
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewStore connects the pool and verifies reachability
func NewStore(ctx context.Context, cfg Config, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Store{
		pool:    pool,
		retry:   defaultRetryPolicy(),
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Pool exposes the underlying pool for health checks
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
