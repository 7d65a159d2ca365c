package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
)

// chunkResponder answers the analysis pass by echoing the chunk and the
// structuring pass with the JSON registered for that chunk.
func chunkResponder(byChunk map[string]string) func(string) (string, error) {
	return func(p string) (string, error) {
		switch {
		case strings.HasPrefix(p, "ANALYZE "):
			return "analysis: " + strings.TrimPrefix(p, "ANALYZE "), nil
		case strings.HasPrefix(p, "STRUCTURE "):
			for chunk, out := range byChunk {
				if strings.Contains(p, chunk) {
					if out == "" {
						return "", errors.New("upstream timeout")
					}
					return out, nil
				}
			}
			return `{"nodes": [], "edges": []}`, nil
		case strings.HasPrefix(p, "VALIDATE "):
			return `{"mappings": []}`, nil
		case strings.HasPrefix(p, "SUMMARIZE "):
			return "  A short summary.  ", nil
		}
		return "", errors.New("unexpected prompt")
	}
}

func twoChunkDoc() *common.Document {
	return &common.Document{
		FilePath: "notes.txt",
		Summary:  "About Acme",
		Chunks: []*common.Chunk{
			{Text: "chunk one", FilePath: "notes.txt", Position: 0},
			{Text: "chunk two", FilePath: "notes.txt", Position: 1},
		},
	}
}

func TestExtractMergesChunksIntoOneNode(t *testing.T) {
	llm := &fakeLLM{respond: chunkResponder(map[string]string{
		"chunk one": `{"nodes": [{"name": "acme corp", "type": "org"}], "edges": []}`,
		"chunk two": `{"nodes": [{"name": "Acme Corp", "type": "ORG"}], "edges": []}`,
	})}
	c := newTestClient(t)

	g, stats, err := c.ExtractWithStats(context.Background(), twoChunkDoc(), llm, testPrompts())
	if err != nil {
		t.Fatalf("ExtractWithStats: %v", err)
	}
	if len(g.Nodes) != 1 || len(g.Edges) != 0 {
		t.Fatalf("expected 1 node and 0 edges, got %#v", g)
	}
	if g.Nodes[0].Name != "Acme Corp" || g.Nodes[0].Type != "ORG" {
		t.Fatalf("unexpected node: %#v", g.Nodes[0])
	}
	if stats.Chunks != 2 || stats.FailedChunks != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	analysis := llm.callsWithPrefix("ANALYZE")
	if len(analysis) != 2 {
		t.Fatalf("expected 2 analysis calls, got %d", len(analysis))
	}
	for _, call := range analysis {
		if call.Options.Schema != nil {
			t.Fatalf("analysis pass answers in free text and must not request a schema")
		}
	}
	for _, call := range llm.callsWithPrefix("STRUCTURE") {
		if call.Options.Temperature != structuringTemperature {
			t.Fatalf("unexpected temperature %v", call.Options.Temperature)
		}
		if !strings.Contains(call.Prompt, "analysis: chunk") {
			t.Fatalf("structuring prompt should carry the analysis, got %q", call.Prompt)
		}
		if call.Options.Schema == nil {
			t.Fatalf("expected the structuring pass to request a response schema")
		}
		if _, ok := call.Options.Schema.Value.(extractionResponse); !ok {
			t.Fatalf("unexpected schema value %T", call.Options.Schema.Value)
		}
		if len(call.Options.SystemPrompts) != 1 || call.Options.SystemPrompts[0] != structuringSystemPrompt {
			t.Fatalf("expected the structuring system prompt, got %q", call.Options.SystemPrompts)
		}
	}
}

func TestExtractSkipsFailedChunk(t *testing.T) {
	llm := &fakeLLM{respond: chunkResponder(map[string]string{
		"chunk one": `{"nodes": [{"name": "Jane Doe", "type": "person"}]}`,
		"chunk two": "",
	})}
	c := newTestClient(t)

	g, stats, err := c.ExtractWithStats(context.Background(), twoChunkDoc(), llm, testPrompts())
	if err != nil {
		t.Fatalf("ExtractWithStats: %v", err)
	}
	if stats.FailedChunks != 1 {
		t.Fatalf("expected 1 failed chunk, got %+v", stats)
	}
	if len(g.Nodes) != 1 || g.Nodes[0].Name != "Jane Doe" {
		t.Fatalf("expected only the successful chunk's node, got %#v", g.Nodes)
	}
}

func TestExtractSkipsUnparseableChunk(t *testing.T) {
	llm := &fakeLLM{respond: chunkResponder(map[string]string{
		"chunk one": `{"nodes": [{"name": "Jane Doe", "type": "person"}]}`,
		"chunk two": `[1, 2, 3]`,
	})}

	g, stats, err := newTestClient(t).ExtractWithStats(context.Background(), twoChunkDoc(), llm, testPrompts())
	if err != nil {
		t.Fatalf("ExtractWithStats: %v", err)
	}
	if stats.FailedChunks != 1 || len(g.Nodes) != 1 {
		t.Fatalf("unexpected result: stats=%+v graph=%#v", stats, g)
	}
}

func TestExtractMissingPrompt(t *testing.T) {
	prompts := prompt.NewRegistry(prompt.Prompt{Name: prompt.ExtractionFirstPass, Content: "ANALYZE %{text}"})
	llm := &fakeLLM{respond: chunkResponder(nil)}

	_, err := newTestClient(t).Extract(context.Background(), twoChunkDoc(), llm, prompts)
	if !errors.Is(err, prompt.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if len(llm.calls) != 0 {
		t.Fatalf("expected no LLM calls, got %d", len(llm.calls))
	}
}

func TestExtractNoChunks(t *testing.T) {
	llm := &fakeLLM{respond: chunkResponder(nil)}
	g, err := newTestClient(t).Extract(context.Background(), &common.Document{}, llm, testPrompts())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Fatalf("expected empty graph, got %#v", g)
	}
}
