package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/kgimport/internal/timing"
	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
	"github.com/OFFIS-RIT/kgimport/pkg/store"

	"golang.org/x/sync/errgroup"
)

// ProcessParams wires the collaborators of one document import.
//
// Embedder, Chunks and Graph are optional: without an embedder no vectors
// are computed, without chunk storage chunks are not saved and without a
// graph executor the graph is only returned.
type ProcessParams struct {
	ImportID string
	Client   ai.Client
	Embedder ai.Embedder
	Prompts  prompt.Renderer
	Graph    store.Executor
	Chunks   store.ChunkStorage
	Timing   *timing.Tracker
}

// ProcessResult is the outcome of ProcessDocument.
type ProcessResult struct {
	Graph      *common.Graph
	Extraction ExtractionStats
	Persist    store.Report
}

// ProcessDocument runs the whole import of doc: summarize (when doc has no
// summary), embed the summary, chunk, embed the chunks alongside extraction,
// validate, store the chunks and persist the graph.
//
// Failed chunks and failed graph statements are counted in the result.
// Summarization, embedding and chunk storage failures abort the import.
func (g *GraphClient) ProcessDocument(
	ctx context.Context,
	doc *common.Document,
	p ProcessParams,
) (*ProcessResult, error) {
	tr := p.Timing
	if tr == nil {
		tr = &timing.Tracker{}
	}

	logger.Info("[Graph] Processing document", "import", p.ImportID, "file", doc.FilePath, "length", len(doc.Text))

	if strings.TrimSpace(doc.Summary) == "" {
		done := tr.Start("summarize")
		summary, err := g.Summarize(ctx, doc.Text, p.Client, p.Prompts)
		done()
		if err != nil {
			return nil, err
		}
		doc.Summary = summary
	}

	if p.Embedder != nil && doc.Summary != "" {
		done := tr.Start("embed_summary")
		vec, err := g.EmbedText(ctx, doc.Summary, p.Embedder)
		done()
		if err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		doc.Vector = vec
	}

	done := tr.Start("chunk")
	doc.Chunks = g.chunker.Split(doc.Text, doc.FilePath)
	done()

	var eg errgroup.Group
	if p.Embedder != nil {
		eg.Go(func() error {
			done := tr.Start("embed_chunks")
			defer done()
			return g.EmbedChunks(ctx, doc.Chunks, p.Embedder)
		})
	}

	done = tr.Start("extract")
	extracted, stats, err := g.ExtractWithStats(ctx, doc, p.Client, p.Prompts)
	done()
	if embedErr := eg.Wait(); embedErr != nil {
		return nil, embedErr
	}
	if err != nil {
		return nil, err
	}

	done = tr.Start("validate")
	final := g.Validate(ctx, extracted, p.Client, p.Prompts)
	done()

	if p.Chunks != nil {
		done = tr.Start("save_chunks")
		err := p.Chunks.SaveDocument(ctx, p.ImportID, doc)
		done()
		if err != nil {
			return nil, err
		}
	}

	res := &ProcessResult{Graph: final, Extraction: stats}
	if p.Graph != nil {
		done = tr.Start("persist")
		res.Persist = store.Persist(ctx, p.Graph, final)
		done()
	}

	logger.Info("[Graph] Document processed",
		"import", p.ImportID,
		"chunks", stats.Chunks,
		"failed_chunks", stats.FailedChunks,
		"nodes", len(final.Nodes),
		"edges", len(final.Edges),
		"statements", res.Persist.Executed,
		"failed_statements", res.Persist.Failed,
		"duration", tr.Total(),
	)
	return res, nil
}

// Summarize renders the summarization prompt for text and returns the
// model's summary.
func (g *GraphClient) Summarize(
	ctx context.Context,
	text string,
	llm ai.Client,
	prompts prompt.Renderer,
) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	rendered, err := prompts.Render(prompt.TextSummarization, map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("summarization prompt unavailable: %w", err)
	}
	summary, err := g.ask(ctx, llm, rendered, ai.WithModel(modelFor(prompts, prompt.TextSummarization)))
	if err != nil {
		return "", fmt.Errorf("failed to summarize document: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
