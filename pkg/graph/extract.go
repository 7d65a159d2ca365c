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
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
)

const (
	analysisTemperature    = 0.4
	structuringTemperature = 0.4
)

const structuringSystemPrompt = "You convert entity and relationship analyses into JSON. " +
	"Answer with a single JSON object with the keys nodes and edges and nothing else."

// ErrChunkExtraction marks a chunk whose extraction failed. The chunk then
// contributes nothing to the graph.
var ErrChunkExtraction = errors.New("chunk extraction failed")

// ExtractionStats counts the outcome of an extraction run.
type ExtractionStats struct {
	Chunks       int
	FailedChunks int
	Duration     time.Duration
}

// Extract runs the two-pass extraction over every chunk of doc and merges
// the results into one normalized graph.
//
// Chunks are processed on the extraction executor. A chunk whose LLM calls
// or response parsing fail is logged and skipped. An error is only returned
// when the extraction prompts are unavailable; it wraps the renderer's
// error, e.g. prompt.ErrTemplateNotFound, and no chunk is processed.
func (g *GraphClient) Extract(
	ctx context.Context,
	doc *common.Document,
	llm ai.Client,
	prompts prompt.Renderer,
) (*common.Graph, error) {
	graph, _, err := g.ExtractWithStats(ctx, doc, llm, prompts)
	return graph, err
}

// ExtractWithStats is Extract that also reports how many chunks failed.
func (g *GraphClient) ExtractWithStats(
	ctx context.Context,
	doc *common.Document,
	llm ai.Client,
	prompts prompt.Renderer,
) (*common.Graph, ExtractionStats, error) {
	start := time.Now()
	stats := ExtractionStats{Chunks: len(doc.Chunks)}

	for _, name := range []string{prompt.ExtractionFirstPass, prompt.ExtractionSecondPass} {
		if _, err := prompts.Render(name, nil); err != nil {
			return nil, stats, fmt.Errorf("extraction prompt unavailable: %w", err)
		}
	}

	results := executor.Map(ctx, g.extraction, doc.Chunks, func(ctx context.Context, chunk *common.Chunk) (common.ExtractionResult, error) {
		return g.extractChunk(ctx, doc, chunk, llm, prompts)
	})

	chunkResults := make([]common.ExtractionResult, len(results))
	for i, r := range results {
		if r.Err != nil {
			stats.FailedChunks++
			err := fmt.Errorf("%w: chunk %d: %w", ErrChunkExtraction, doc.Chunks[i].Position, r.Err)
			logger.Warn("[Graph] Skipping chunk", "file", doc.FilePath, "err", err)
			continue
		}
		chunkResults[i] = r.Value
	}

	graph := MergeResults(chunkResults)
	stats.Duration = time.Since(start)

	logger.Info("[Graph] Extraction finished",
		"file", doc.FilePath,
		"chunks", stats.Chunks,
		"failed", stats.FailedChunks,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"duration", stats.Duration,
	)
	return graph, stats, nil
}

func (g *GraphClient) extractChunk(
	ctx context.Context,
	doc *common.Document,
	chunk *common.Chunk,
	llm ai.Client,
	prompts prompt.Renderer,
) (common.ExtractionResult, error) {
	firstPass, err := prompts.Render(prompt.ExtractionFirstPass, map[string]string{
		"text":           chunk.Text,
		"schema":         g.schema.Summary(),
		"current_schema": g.schema.Summary(),
		"summary":        doc.Summary,
	})
	if err != nil {
		return common.ExtractionResult{}, err
	}
	analysis, err := g.ask(ctx, llm, firstPass,
		ai.WithModel(modelFor(prompts, prompt.ExtractionFirstPass)),
		ai.WithTemperature(analysisTemperature),
	)
	if err != nil {
		return common.ExtractionResult{}, fmt.Errorf("analysis pass: %w", err)
	}

	secondPass, err := prompts.Render(prompt.ExtractionSecondPass, map[string]string{
		"text":         chunk.Text,
		"summary":      doc.Summary,
		"response":     analysis,
		"entity_types": g.schema.JSON(),
	})
	if err != nil {
		return common.ExtractionResult{}, err
	}
	structured, err := g.ask(ctx, llm, secondPass,
		ai.WithModel(modelFor(prompts, prompt.ExtractionSecondPass)),
		ai.WithTemperature(structuringTemperature),
		ai.WithSystemPrompts(structuringSystemPrompt),
		ai.WithResponseSchema("knowledge_graph_extraction", "Nodes and edges extracted from one chunk", extractionResponse{}),
	)
	if err != nil {
		return common.ExtractionResult{}, fmt.Errorf("structuring pass: %w", err)
	}

	res, err := parseExtraction(structured)
	if err != nil {
		return common.ExtractionResult{}, fmt.Errorf("parse structuring response: %w", err)
	}
	logger.Debug("[Graph] Chunk extracted",
		"position", chunk.Position, "nodes", len(res.Nodes), "edges", len(res.Edges))
	return res, nil
}
