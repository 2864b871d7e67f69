// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/tunevault/internal/repository"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	querier
	// BeginTx starts a transaction with the provided options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Close shuts down the pool and frees resources.
	Close()
}

// querier is the statement surface shared by the pool and pgx.Tx.
type querier interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct{ Pool PgxPool }

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// Store returns repositories bound to the pool.
func (db *DB) Store() repository.Store { return storeOn(db.Pool) }

// WithinTx runs fn against repositories bound to a single transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(ctx, storeOn(tx))
}

var _ repository.Transactor = (*DB)(nil)

func storeOn(q querier) repository.Store {
	return repository.Store{
		Tracks:      &TrackRepo{q: q},
		Revisions:   &RevisionRepo{q: q},
		Collections: &CollectionRepo{q: q},
		Playlists:   &PlaylistRepo{q: q},
		Memberships: &MembershipRepo{q: q},
		Grants:      &GrantRepo{q: q},
		Users:       &UserRepo{q: q},
	}
}

// scoped appends the soft-delete predicate to a WHERE body unless the scope includes deleted rows.
func scoped(where string, scope repository.Scope) string {
	if scope == repository.WithDeleted {
		return where
	}
	if where == "" {
		return "deleted_at IS NULL"
	}
	return where + " AND deleted_at IS NULL"
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
