package pgx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// recordingConn records Exec calls and hands out tx from Begin. Query and
// QueryRow are not used by the tested methods.
type recordingConn struct {
	calls []execCall
	err   error
	tx    *recordingTx
}

// recordingTx keeps the queries of every batch sent through it.
type recordingTx struct {
	pgxv5.Tx
	batches   [][]execCall
	committed int
}

func (tx *recordingTx) SendBatch(ctx context.Context, b *pgxv5.Batch) pgxv5.BatchResults {
	var queued []execCall
	for _, q := range b.QueuedQueries {
		queued = append(queued, execCall{sql: q.SQL, args: q.Arguments})
	}
	tx.batches = append(tx.batches, queued)
	return closedBatch{}
}

func (tx *recordingTx) Commit(ctx context.Context) error {
	tx.committed++
	return nil
}

func (tx *recordingTx) Rollback(ctx context.Context) error { return nil }

type closedBatch struct{ pgxv5.BatchResults }

func (closedBatch) Close() error { return nil }

func (c *recordingConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.calls = append(c.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), c.err
}

func (c *recordingConn) Query(ctx context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *recordingConn) QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row {
	return nil
}

func (c *recordingConn) Begin(ctx context.Context) (pgxv5.Tx, error) {
	if c.tx == nil {
		return nil, errors.New("not implemented")
	}
	return c.tx, nil
}

func TestSaveAICall(t *testing.T) {
	conn := &recordingConn{}
	s := NewImportStorage(conn)

	err := s.SaveAICall(context.Background(), store.AICall{
		SessionID:    "sess",
		Model:        "gpt-test",
		Prompt:       "hi\x00there",
		Response:     "ok",
		InputTokens:  3,
		OutputTokens: 1,
		Cost:         0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conn.calls) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(conn.calls))
	}
	call := conn.calls[0]
	if !strings.Contains(call.sql, "INSERT INTO ai_logs") {
		t.Fatalf("unexpected sql: %s", call.sql)
	}
	if got := call.args[2]; got != "hithere" {
		t.Fatalf("prompt not sanitized: %q", got)
	}
	if got := string(call.args[8].([]byte)); got != "{}" {
		t.Fatalf("expected empty settings object, got %s", got)
	}
}

func TestCreateImport_WrapsError(t *testing.T) {
	conn := &recordingConn{err: errors.New("connection refused")}
	s := NewImportStorage(conn)

	err := s.CreateImport(context.Background(), "abc", "docs/a.txt")
	if err == nil || !strings.Contains(err.Error(), "abc") {
		t.Fatalf("expected error mentioning the import id, got %v", err)
	}
}

func TestToVector(t *testing.T) {
	if toVector(nil) != nil {
		t.Fatal("expected nil for empty vector")
	}
	v := toVector([]float32{1, 2, 3})
	if v == nil || len(v.Slice()) != 3 {
		t.Fatalf("unexpected vector %v", v)
	}
}

func TestSaveDocument_DeletesStaleChunks(t *testing.T) {
	chunks := make([]*common.Chunk, chunkBatchSize+2)
	for i := range chunks {
		chunks[i] = &common.Chunk{Text: "t", FilePath: "a.txt", Position: i}
	}
	tests := []struct {
		name    string
		chunks  []*common.Chunk
		batches int
	}{
		{"single batch", chunks[:3], 1},
		{"several batches", chunks, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &recordingTx{}
			conn := &recordingConn{tx: tx}
			s := NewImportStorage(conn)

			err := s.SaveDocument(context.Background(), "imp", &common.Document{FilePath: "a.txt", Chunks: tt.chunks})
			if err != nil {
				t.Fatalf("SaveDocument: %v", err)
			}
			if len(tx.batches) != tt.batches || tx.committed != tt.batches {
				t.Fatalf("expected %d committed batches, got %d (%d commits)", tt.batches, len(tx.batches), tx.committed)
			}
			first := tx.batches[0][0]
			if !strings.HasPrefix(first.sql, "DELETE FROM chunks") {
				t.Fatalf("expected the first batch to start with the stale chunk delete, got %q", first.sql)
			}
			if first.args[0] != "imp" || first.args[1] != len(tt.chunks) {
				t.Fatalf("unexpected delete args %v", first.args)
			}
			for _, b := range tx.batches[1:] {
				for _, q := range b {
					if strings.HasPrefix(q.sql, "DELETE") {
						t.Fatalf("stale chunks must only be deleted once")
					}
				}
			}
		})
	}
}

func TestSaveDocument_NoChunksClearsAll(t *testing.T) {
	conn := &recordingConn{}
	s := NewImportStorage(conn)

	if err := s.SaveDocument(context.Background(), "imp", &common.Document{FilePath: "a.txt"}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if len(conn.calls) != 2 {
		t.Fatalf("expected document upsert and chunk delete, got %d calls", len(conn.calls))
	}
	del := conn.calls[1]
	if !strings.HasPrefix(del.sql, "DELETE FROM chunks") || del.args[1] != 0 {
		t.Fatalf("unexpected delete %q %v", del.sql, del.args)
	}
}
