package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"

	pgxv5 "github.com/jackc/pgx/v5"
)

// Import statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrImportNotFound is returned by GetImport for unknown ids.
var ErrImportNotFound = errors.New("import not found")

// Import is the bookkeeping row of one document import.
type Import struct {
	ID                 string    `json:"id"`
	FilePath           string    `json:"file_path"`
	Status             string    `json:"status"`
	ChunkCount         int       `json:"chunk_count"`
	FailedChunks       int       `json:"failed_chunks"`
	NodeCount          int       `json:"node_count"`
	EdgeCount          int       `json:"edge_count"`
	StatementsExecuted int       `json:"statements_executed"`
	StatementsFailed   int       `json:"statements_failed"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ImportStats are the counters written when an import finishes.
type ImportStats struct {
	ChunkCount         int
	FailedChunks       int
	NodeCount          int
	EdgeCount          int
	StatementsExecuted int
	StatementsFailed   int
}

// CreateImport registers a pending import. Creating an existing id is a
// no-op so redelivered jobs stay harmless.
func (s *ImportStorage) CreateImport(ctx context.Context, id, filePath string) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO imports (id, file_path, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		id, util.SanitizePostgresText(filePath), StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create import %s: %w", id, err)
	}
	return nil
}

// SetImportStatus updates the status and error message of an import.
func (s *ImportStorage) SetImportStatus(ctx context.Context, id, status, errMsg string) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE imports SET status = $2, error = $3, updated_at = now()
		WHERE id = $1`,
		id, status, util.SanitizePostgresText(errMsg),
	)
	if err != nil {
		return fmt.Errorf("failed to set status of import %s: %w", id, err)
	}
	return nil
}

// FinishImport stores the final counters and marks the import completed.
func (s *ImportStorage) FinishImport(ctx context.Context, id string, stats ImportStats) error {
	_, err := s.conn.Exec(ctx, `
		UPDATE imports SET
			status = $2,
			chunk_count = $3,
			failed_chunks = $4,
			node_count = $5,
			edge_count = $6,
			statements_executed = $7,
			statements_failed = $8,
			error = '',
			updated_at = now()
		WHERE id = $1`,
		id, StatusCompleted,
		stats.ChunkCount, stats.FailedChunks,
		stats.NodeCount, stats.EdgeCount,
		stats.StatementsExecuted, stats.StatementsFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to finish import %s: %w", id, err)
	}
	return nil
}

// GetImport loads the bookkeeping row of an import.
func (s *ImportStorage) GetImport(ctx context.Context, id string) (*Import, error) {
	var imp Import
	err := s.conn.QueryRow(ctx, `
		SELECT id, file_path, status, chunk_count, failed_chunks, node_count, edge_count,
		       statements_executed, statements_failed, error, created_at, updated_at
		FROM imports WHERE id = $1`, id,
	).Scan(
		&imp.ID, &imp.FilePath, &imp.Status, &imp.ChunkCount, &imp.FailedChunks,
		&imp.NodeCount, &imp.EdgeCount, &imp.StatementsExecuted, &imp.StatementsFailed,
		&imp.Error, &imp.CreatedAt, &imp.UpdatedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// SaveStageTiming records how long one pipeline stage of an import took.
func (s *ImportStorage) SaveStageTiming(ctx context.Context, importID, stage string, d time.Duration) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO import_stage_timings (import_id, stage, duration_ms)
		VALUES ($1, $2, $3)
		ON CONFLICT (import_id, stage) DO UPDATE SET duration_ms = EXCLUDED.duration_ms`,
		importID, stage, d.Milliseconds(),
	)
	return err
}
