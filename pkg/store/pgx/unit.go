package pgx

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const chunkBatchSize = 500

const deleteStaleChunks = `DELETE FROM chunks WHERE import_id = $1 AND position >= $2`

// SaveDocument stores the summary, summary vector and all chunks of doc for
// the given import. Chunks are upserted by (import, position), so saving a
// document again replaces its chunks in place. Chunks of an earlier save
// beyond the new chunk count are deleted.
func (s *ImportStorage) SaveDocument(ctx context.Context, importID string, doc *common.Document) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO imports (id, file_path, status, summary, summary_embedding, chunk_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			summary = EXCLUDED.summary,
			summary_embedding = EXCLUDED.summary_embedding,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = now()`,
		importID,
		util.SanitizePostgresText(doc.FilePath),
		StatusProcessing,
		util.SanitizePostgresText(doc.Summary),
		toVector(doc.Vector),
		len(doc.Chunks),
	)
	if err != nil {
		return fmt.Errorf("failed to save document of import %s: %w", importID, err)
	}

	if len(doc.Chunks) == 0 {
		if _, err := s.conn.Exec(ctx, deleteStaleChunks, importID, 0); err != nil {
			return fmt.Errorf("failed to delete chunks of import %s: %w", importID, err)
		}
		return nil
	}

	logger.Debug("[Store][SaveDocument] Upserting chunks", "import", importID, "chunks", len(doc.Chunks))

	return store.ChunkRange(len(doc.Chunks), chunkBatchSize, func(start, end int) error {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		batch := &pgxv5.Batch{}
		if start == 0 {
			batch.Queue(deleteStaleChunks, importID, len(doc.Chunks))
		}
		for _, c := range doc.Chunks[start:end] {
			batch.Queue(`
				INSERT INTO chunks (import_id, position, file_path, text, embedding)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (import_id, position) DO UPDATE SET
					file_path = EXCLUDED.file_path,
					text = EXCLUDED.text,
					embedding = EXCLUDED.embedding`,
				importID,
				c.Position,
				util.SanitizePostgresText(c.FilePath),
				util.SanitizePostgresText(c.Text),
				toVector(c.Vector),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to upsert chunks %d-%d: %w", start, end, err)
		}
		return tx.Commit(ctx)
	})
}

// toVector returns nil for an empty vector so the column stays NULL.
func toVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}
