package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// Embed creates a vector embedding for the given text using the configured
// embedding model.
//
// Blank input yields a zero vector of the configured dimension without a
// request.
//
// Example:
//
//	vec, err := client.Embed(ctx, "Graph RAG systems")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("Embedding length:", len(vec))
func (c *GraphOpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(res))
	}
	return res[0], nil
}

// EmbedBatch creates embeddings for multiple inputs in a single request,
// preserving input order.
func (c *GraphOpenAIClient) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("openai embedding client is not configured")
	}

	out := make([][]float32, len(inputs))
	idxMap := make([]int, 0, len(inputs))
	nonBlank := make([]string, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			out[i] = make([]float32, c.embeddingDim)
			continue
		}
		idxMap = append(idxMap, i)
		nonBlank = append(nonBlank, in)
	}
	if len(nonBlank) == 0 {
		return out, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: nonBlank},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, err
	}

	c.metrics.Add(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != len(nonBlank) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(nonBlank))
	}

	for _, embedding := range response.Data {
		dataIdx := int(embedding.Index)
		if dataIdx < 0 || dataIdx >= len(nonBlank) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		out[idxMap[dataIdx]] = fitDimension(embedding.Embedding, c.embeddingDim)
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}

// fitDimension converts to float32 and truncates or zero-pads to dim.
// dim <= 0 keeps the original length.
func fitDimension(values []float64, dim int) []float32 {
	if dim <= 0 {
		dim = len(values)
	}
	vec := make([]float32, dim)
	for i := 0; i < dim && i < len(values); i++ {
		vec[i] = float32(values[i])
	}
	return vec
}
