package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"
	_ "modernc.org/sqlite" // Registers "sqlite" driver

	"triplog/internal/config"
	"triplog/internal/repository/sqlstore"
)

// NewSQLiteDatabase opens the embedded SQLite database and applies the
// schema. The connection pool is capped at one writer since the driver
// serializes writes anyway.
func NewSQLiteDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := sqlstore.Migrate(ctx, db, sqlstore.DialectSQLite); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return db, nil
}

// NewPostgresDatabase creates a new PostgreSQL connection with pooling
// settings suited to a cloud database. If nrApp is provided, the New Relic
// instrumented driver is used for automatic SQL tracing.
func NewPostgresDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	// The "nrpostgres" driver is registered by the nrpq import.
	driver := "postgres"
	if nrApp != nil {
		driver = "nrpostgres"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := sqlstore.Migrate(ctx, db, sqlstore.DialectPostgres); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
