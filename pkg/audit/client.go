// Package audit mirrors the job store's event log into a durable
// PostgreSQL table (job_events), for retention past the job store's
// bounded TTL. It is optional: most deployments rely solely on the job
// store, and the Consumer wires this in only when audit is configured.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/codeready-toolchain/subtitlebus/pkg/config"
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps the audit database's connection pool.
type Client struct {
	db *sql.DB
}

// NewClient opens a connection pool against cfg, runs embedded migrations,
// and returns a ready Client.
func NewClient(ctx context.Context, cfg config.AuditConfig) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: run migrations: %w", err)
	}

	return &Client{db: db}, nil
}

// NewClientFromDB wraps an already-open *sql.DB, for tests that drive a
// testcontainers Postgres instance directly. Migrations are still applied.
func NewClientFromDB(db *sql.DB, databaseName string) (*Client, error) {
	if err := runMigrations(db, databaseName); err != nil {
		return nil, fmt.Errorf("audit: run migrations: %w", err)
	}
	return &Client{db: db}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Health checks database connectivity.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func runMigrations(db *sql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the migration source driver, not the whole migrate
	// instance: m.Close() would also close the database driver, which
	// calls db.Close() on the shared *sql.DB this Client keeps using.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}
	return nil
}
