package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/executor"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
)

// ErrEmbeddingFailure marks a failed embedding batch. No vectors are
// assigned when it is returned.
var ErrEmbeddingFailure = errors.New("embedding failed")

// EmbedChunks computes one vector per chunk on the embedding executor and
// stores it in the chunk's Vector field.
//
// The batch is all or nothing: if any chunk fails, the error of the first
// failing chunk is returned wrapped in ErrEmbeddingFailure and no chunk is
// modified.
func (g *GraphClient) EmbedChunks(
	ctx context.Context,
	chunks []*common.Chunk,
	embedder ai.Embedder,
) error {
	if len(chunks) == 0 {
		return nil
	}
	start := time.Now()

	results := executor.Map(ctx, g.embedding, chunks, func(ctx context.Context, c *common.Chunk) ([]float32, error) {
		return embedder.Embed(ctx, c.Text)
	})
	if i, err := executor.FirstError(results); err != nil {
		return fmt.Errorf("%w: chunk %d: %w", ErrEmbeddingFailure, chunks[i].Position, err)
	}

	for i, r := range results {
		chunks[i].Vector = r.Value
	}

	logger.Debug("[Graph] Embedded chunks", "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// EmbedText computes a single vector, e.g. for a document summary, on the
// embedding executor.
func (g *GraphClient) EmbedText(
	ctx context.Context,
	text string,
	embedder ai.Embedder,
) ([]float32, error) {
	results := executor.Map(ctx, g.embedding, []string{text}, embedder.Embed)
	if _, err := executor.FirstError(results); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	return results[0].Value, nil
}
