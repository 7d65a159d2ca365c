package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// ImportStorage keeps import bookkeeping, chunks with their vectors and the
// AI call log in PostgreSQL with pgvector.
//
// It implements store.ChunkStorage and store.AICallSink.
type ImportStorage struct {
	conn pgxIConn
}

// NewImportStorage creates an ImportStorage on an existing connection or
// pool. Vector types must be registered on the connection.
func NewImportStorage(conn pgxIConn) *ImportStorage {
	return &ImportStorage{conn: conn}
}
