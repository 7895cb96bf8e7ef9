package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryer is satisfied by both *pgxpool.Pool and the session connection.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type sessionKey struct{}

// WithSession pins all repository queries under the returned context to a
// single pooled connection, so one collation load shares one connection
// lifetime. The release func must run on every exit path. Opening a session
// inside a session is a no-op.
func WithSession(ctx context.Context, pool *pgxpool.Pool) (context.Context, func(), error) {
	if _, ok := ctx.Value(sessionKey{}).(*pgxpool.Conn); ok {
		return ctx, func() {}, nil
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return ctx, nil, err
	}
	return context.WithValue(ctx, sessionKey{}, conn), conn.Release, nil
}

// querierFrom returns the session connection when one is pinned, the pool
// otherwise.
func querierFrom(ctx context.Context, pool *pgxpool.Pool) queryer {
	if conn, ok := ctx.Value(sessionKey{}).(*pgxpool.Conn); ok {
		return conn
	}
	return pool
}
