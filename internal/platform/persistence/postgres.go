package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edocument-exchange/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "edocument-exchange"

// Querier supports database operations for both pool and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Ensure interfaces are satisfied (compile-time check)
var _ Querier = (*pgxpool.Pool)(nil)
var _ Querier = (pgx.Tx)(nil)

// UnitOfWork scopes a group of repository calls to one transaction. Components
// receive it instead of a pool so that every state change of a document, its
// record and its flow commits or rolls back together.
type UnitOfWork interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TxBeginner opens transactions; satisfied by *pgxpool.Pool and pgxmock pools.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresDB owns the pool behind every relational repository: records,
// documents, flows, company settings, credentials, QR transactions and the
// event outbox.
type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ UnitOfWork = (*PostgresDB)(nil)

// NewPostgresDB migrates the schema first so that no repository ever runs
// against an older layout.
func NewPostgresDB(ctx context.Context, logger *slog.Logger, cfg *config.PostgresConfig) (*PostgresDB, error) {
	if err := RunMigrations(logger, cfg.URL, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		"database", pc.ConnConfig.Database,
		"max_conns", pc.MaxConns,
	)
	return &PostgresDB{pool: pool, logger: logger}, nil
}

func poolConfig(cfg *config.PostgresConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}
	// zero keeps the pgxpool default
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = min(cfg.MinConns, pc.MaxConns)
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return pc, nil
}

func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *PostgresDB) Close() {
	db.pool.Close()
	db.logger.Info("Closed PostgreSQL connection")
}

// ExecuteTx runs fn in a transaction of the pool.
func (db *PostgresDB) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return ExecuteTx(ctx, db.pool, fn)
}

// ExecuteTx runs fn in a transaction, rolling back on error or panic
func ExecuteTx(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("failed to roll back transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BeginnerUnitOfWork adapts any TxBeginner, such as a pgxmock pool, to UnitOfWork.
type BeginnerUnitOfWork struct {
	DB TxBeginner
}

func (u BeginnerUnitOfWork) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return ExecuteTx(ctx, u.DB, fn)
}
