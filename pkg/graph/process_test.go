package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/kgimport/internal/timing"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/store"
)

type fakeChunkStore struct {
	importID string
	doc      *common.Document
	err      error
}

func (f *fakeChunkStore) SaveDocument(ctx context.Context, importID string, doc *common.Document) error {
	f.importID = importID
	f.doc = doc
	return f.err
}

type fakeGraphExecutor struct {
	mu         sync.Mutex
	statements []string
}

func (f *fakeGraphExecutor) Execute(ctx context.Context, statement string) (*store.Result, error) {
	f.mu.Lock()
	f.statements = append(f.statements, statement)
	f.mu.Unlock()
	return &store.Result{Rows: 1}, nil
}

const processText = "Jane Doe works at Acme Corp."

func processLLM() *fakeLLM {
	return &fakeLLM{respond: chunkResponder(map[string]string{
		"Jane Doe works": `{
			"nodes": [{"name": "jane doe", "type": "person"}, {"name": "acme corp", "type": "org"}],
			"edges": [{"source": "Jane Doe", "target": "Acme Corp", "relationship_type": "works at"}]
		}`,
	})}
}

func TestProcessDocument(t *testing.T) {
	llm := processLLM()
	emb := &fakeEmbedder{}
	chunks := &fakeChunkStore{}
	db := &fakeGraphExecutor{}
	tr := &timing.Tracker{}
	doc := &common.Document{Text: processText, FilePath: "hr/notes.txt"}

	res, err := newTestClient(t).ProcessDocument(context.Background(), doc, ProcessParams{
		ImportID: "imp1",
		Client:   llm,
		Embedder: emb,
		Prompts:  testPrompts(),
		Graph:    db,
		Chunks:   chunks,
		Timing:   tr,
	})
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	if doc.Summary != "A short summary." {
		t.Fatalf("expected trimmed summary, got %q", doc.Summary)
	}
	if len(doc.Vector) == 0 {
		t.Fatalf("expected summary vector")
	}
	if len(doc.Chunks) != 1 || doc.Chunks[0].Vector == nil {
		t.Fatalf("expected one embedded chunk, got %#v", doc.Chunks)
	}
	if chunks.importID != "imp1" || chunks.doc != doc {
		t.Fatalf("chunks not stored: %#v", chunks)
	}

	if len(res.Graph.Nodes) != 2 || len(res.Graph.Edges) != 1 {
		t.Fatalf("unexpected graph: %#v", res.Graph)
	}
	if res.Persist.Executed != 3 || res.Persist.Failed != 0 || len(db.statements) != 3 {
		t.Fatalf("unexpected persist report: %+v", res.Persist)
	}
	if !strings.HasPrefix(db.statements[2], "MATCH") {
		t.Fatalf("expected edge statement last, got %q", db.statements[2])
	}

	names := map[string]bool{}
	for _, s := range tr.Stages() {
		names[s.Name] = true
	}
	for _, want := range []string{"summarize", "embed_summary", "chunk", "embed_chunks", "extract", "validate", "save_chunks", "persist"} {
		if !names[want] {
			t.Fatalf("missing stage %q in %v", want, tr.Stages())
		}
	}
}

func TestProcessDocumentKeepsExistingSummary(t *testing.T) {
	llm := processLLM()
	doc := &common.Document{Text: processText, Summary: "Given"}

	res, err := newTestClient(t).ProcessDocument(context.Background(), doc, ProcessParams{
		Client:  llm,
		Prompts: testPrompts(),
	})
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	if n := len(llm.callsWithPrefix("SUMMARIZE")); n != 0 {
		t.Fatalf("expected no summarization call, got %d", n)
	}
	if doc.Summary != "Given" || doc.Vector != nil {
		t.Fatalf("unexpected document: %#v", doc)
	}
	if res.Persist.Executed != 0 {
		t.Fatalf("nothing should be persisted without a graph executor")
	}
}

func TestProcessDocumentEmbeddingFailure(t *testing.T) {
	doc := &common.Document{Text: processText, Summary: "Given"}
	_, err := newTestClient(t).ProcessDocument(context.Background(), doc, ProcessParams{
		Client:   processLLM(),
		Embedder: &fakeEmbedder{fail: "Jane"},
		Prompts:  testPrompts(),
	})
	if !errors.Is(err, ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
}

func TestProcessDocumentChunkStorageFailure(t *testing.T) {
	doc := &common.Document{Text: processText, Summary: "Given"}
	storeErr := errors.New("connection refused")
	_, err := newTestClient(t).ProcessDocument(context.Background(), doc, ProcessParams{
		Client:  processLLM(),
		Prompts: testPrompts(),
		Chunks:  &fakeChunkStore{err: storeErr},
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
