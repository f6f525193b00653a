package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/menumate/internal/config"
)

// Connections holds the order store pools. Writer takes order inserts,
// number assignment and the read-backs that verify a number, since a lagging
// replica could hide a number that was just written. Reader only serves
// tenant listings. Both are nil for the in-memory backend.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Enabled reports whether the order store is SQL backed.
func (c *Connections) Enabled() bool {
	return c != nil && c.Writer != nil
}

// Module registers the order store connections with Fx.
var Module = fx.Provide(New)

// New opens the writer pool, and a reader pool when a separate reader DSN is
// configured.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	if cfg.Backend.Driver != "sql" {
		logger.Info("order store is not sql backed; no pools opened", zap.String("backend", cfg.Backend.Driver))
		return &Connections{}, nil
	}

	dial, err := dialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	writer, err := openPool(cfg.Database, cfg.Database.WriterDSN, dial)
	if err != nil {
		return nil, fmt.Errorf("open order writer: %w", err)
	}

	reader := writer
	split := cfg.Database.ReaderDSN != cfg.Database.WriterDSN
	if split {
		if reader, err = openPool(cfg.Database, cfg.Database.ReaderDSN, dial); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open order reader: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ping(ctx, writer); err != nil {
				return fmt.Errorf("ping order writer: %w", err)
			}
			if split {
				if err := ping(ctx, reader); err != nil {
					return fmt.Errorf("ping order reader: %w", err)
				}
			}
			logger.Info("order store connected",
				zap.String("driver", cfg.Database.Driver),
				zap.Bool("separate_reader", split),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := writer.Close()
			if split {
				err = errors.Join(err, reader.Close())
			}
			return err
		},
	})

	return &Connections{Writer: writer, Reader: reader}, nil
}

// dialectFor maps the configured driver to its bun dialect. Only postgres
// carries the insert_order function; mysql and sqlite run the fallback path.
func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported order store driver: %s", driver)
	}
}

func openPool(cfg config.Database, dsn string, dial schema.Dialect) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	var (
		sqldb *sql.DB
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	case "pgx":
		sqldb, err = sql.Open("pgx", dsn)
	case "mysql":
		sqldb, err = sql.Open("mysql", dsn)
	case "sqlite":
		sqldb, err = sql.Open("sqlite3", dsn)
	default:
		err = fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	return bun.NewDB(sqldb, dial), nil
}

func ping(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
