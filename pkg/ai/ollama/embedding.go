package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"

	"github.com/ollama/ollama/api"
)

// Embed creates a vector embedding for the given input text using the
// configured embedding model on Ollama.
//
// Blank input yields a zero vector of the configured dimension. A non-zero
// dimension truncates or zero-pads the returned vector.
func (c *GraphOllamaClient) Embed(
	ctx context.Context,
	text string,
) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.embeddingDim), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	durationMs := res.TotalDuration.Milliseconds()
	if durationMs == 0 {
		durationMs = time.Since(start).Milliseconds()
	}
	c.metrics.Add(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  durationMs,
	})

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding for model %s", c.embeddingModel)
	}

	vec := res.Embeddings[0]
	if c.embeddingDim <= 0 {
		return vec, nil
	}
	out := make([]float32, c.embeddingDim)
	copy(out, vec)
	return out, nil
}
