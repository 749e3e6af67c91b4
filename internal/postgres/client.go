package postgres

import (
	"context"

	"github.com/flexprice/gatekeeper/internal/config"
	ierr "github.com/flexprice/gatekeeper/internal/errors"
	"github.com/flexprice/gatekeeper/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// DB returns the underlying sqlx handle
	DB() *sqlx.DB

	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error

	// Close releases the connection pool
	Close() error
}

// Client wraps sqlx.DB to provide transaction management
type Client struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewClient opens the postgres connection pool from config
func NewClient(cfg *config.Configuration, log *logger.Logger) (IClient, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to postgres").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)

	if err := db.Ping(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Postgres is not reachable").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"database", cfg.Postgres.DBName,
	)

	return &Client{db: db, logger: log}, nil
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
