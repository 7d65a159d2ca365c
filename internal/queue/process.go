package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/timing"
	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/ai/ailog"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/graph"
	"github.com/OFFIS-RIT/kgimport/pkg/loader"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
	"github.com/OFFIS-RIT/kgimport/pkg/store"
	graphstorage "github.com/OFFIS-RIT/kgimport/pkg/store/pgx"
)

// ImportMsg is the body of an import_queue message.
type ImportMsg struct {
	ImportID string `json:"import_id"`
	FileKey  string `json:"file_key"`
	FilePath string `json:"file_path"`
}

// ImportStore keeps the bookkeeping of imports. *graphstorage.ImportStorage
// implements it.
type ImportStore interface {
	store.ChunkStorage
	timing.Sink
	SetImportStatus(ctx context.Context, id, status, errMsg string) error
	FinishImport(ctx context.Context, id string, stats graphstorage.ImportStats) error
}

// ImportProcessor runs import jobs. CallLog is optional; when set it wraps
// Client and every LLM call of an import is logged under the import id.
type ImportProcessor struct {
	Graph    *graph.GraphClient
	Client   ai.Client
	CallLog  *ailog.Client
	Embedder ai.Embedder
	Prompts  prompt.Renderer
	Loader   loader.TextLoader
	Imports  ImportStore
	GraphDB  store.Executor
}

// ProcessImportMessage loads the document of one import job, builds its
// graph and records the outcome. It implements Handler.
func (p *ImportProcessor) ProcessImportMessage(ctx context.Context, body []byte) (err error) {
	var msg ImportMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: invalid import message: %w", ErrPermanent, err)
	}
	if msg.ImportID == "" || msg.FileKey == "" {
		return fmt.Errorf("%w: import message without import_id or file_key", ErrPermanent)
	}

	if err := p.Imports.SetImportStatus(ctx, msg.ImportID, graphstorage.StatusProcessing, ""); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if updateErr := p.Imports.SetImportStatus(updateCtx, msg.ImportID, graphstorage.StatusFailed, err.Error()); updateErr != nil {
			logger.Warn("[Queue] Failed to mark import as failed", "import", msg.ImportID, "err", updateErr)
		}
	}()
	if f, ok := p.Loader.(interface{ Forget(string) }); ok {
		defer f.Forget(msg.FileKey)
	}

	text, err := p.Loader.LoadText(ctx, msg.FileKey)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	client := p.Client
	if p.CallLog != nil {
		client = p.CallLog.Session(msg.ImportID)
	}

	tracker := &timing.Tracker{}
	doc := &common.Document{Text: text, FilePath: msg.FilePath}
	res, err := p.Graph.ProcessDocument(ctx, doc, graph.ProcessParams{
		ImportID: msg.ImportID,
		Client:   client,
		Embedder: p.Embedder,
		Prompts:  p.Prompts,
		Graph:    p.GraphDB,
		Chunks:   p.Imports,
		Timing:   tracker,
	})
	if err != nil {
		return err
	}
	tracker.Save(ctx, p.Imports, msg.ImportID)

	return p.Imports.FinishImport(ctx, msg.ImportID, graphstorage.ImportStats{
		ChunkCount:         res.Extraction.Chunks,
		FailedChunks:       res.Extraction.FailedChunks,
		NodeCount:          len(res.Graph.Nodes),
		EdgeCount:          len(res.Graph.Edges),
		StatementsExecuted: res.Persist.Executed,
		StatementsFailed:   res.Persist.Failed,
	})
}
