package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	Pool *pgxpool.Pool
}

// Pool sizing for the card service. Traffic is dominated by short scan
// and lookup queries, so the pool stays small with a couple of warm
// connections for the scan burst around midnight launches.
const (
	poolMaxConns          = 16
	poolMinConns          = 2
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 15 * time.Minute
	poolHealthCheckPeriod = 30 * time.Second
	poolConnectTimeout    = 10 * time.Second
)

var (
	parsePGConfig = pgxpool.ParseConfig
	newPGPool     = pgxpool.NewWithConfig
	pingPGPool    = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
	closePGPool = func(pool *pgxpool.Pool) {
		pool.Close()
	}
)

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	config, err := parsePGConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	config.MaxConns = poolMaxConns
	config.MinConns = poolMinConns
	config.MaxConnLifetime = poolMaxConnLifetime
	config.MaxConnIdleTime = poolMaxConnIdleTime
	config.HealthCheckPeriod = poolHealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), poolConnectTimeout)
	defer cancel()

	pool, err := newPGPool(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pingPGPool(ctx, pool); err != nil {
		closePGPool(pool)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		closePGPool(db.Pool)
	}
}

func (db *PostgresDB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
