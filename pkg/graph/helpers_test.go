package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/executor"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
)

type llmCall struct {
	Prompt  string
	Options ai.GenerateOptions
}

// fakeLLM answers every request through respond and records the calls.
type fakeLLM struct {
	mu      sync.Mutex
	calls   []llmCall
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Ask(ctx context.Context, text string, opts ...ai.GenerateOption) (*ai.Response, error) {
	o := ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	f.mu.Lock()
	f.calls = append(f.calls, llmCall{Prompt: text, Options: o})
	f.mu.Unlock()

	content, err := f.respond(text)
	if err != nil {
		return nil, err
	}
	return &ai.Response{Content: content, Model: o.Model}, nil
}

func (f *fakeLLM) callsWithPrefix(prefix string) []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llmCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.Prompt, prefix) {
			out = append(out, c)
		}
	}
	return out
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail != "" && strings.Contains(text, f.fail) {
		return nil, errors.New("embedding backend unavailable")
	}
	return []float32{float32(len(text)), 1}, nil
}

func testPrompts() *prompt.Registry {
	return prompt.NewRegistry(
		prompt.Prompt{Name: prompt.TextSummarization, Content: "SUMMARIZE %{text}"},
		prompt.Prompt{Name: prompt.ExtractionFirstPass, Content: "ANALYZE %{text}"},
		prompt.Prompt{Name: prompt.ExtractionSecondPass, Content: "STRUCTURE %{response}"},
		prompt.Prompt{Name: prompt.NodeValidation, Content: "VALIDATE %{nodes}", Model: "validator"},
	)
}

func newTestClient(t *testing.T) *GraphClient {
	t.Helper()
	fast := executor.Config{MaxConcurrency: 4, MaxPerMinute: 60000}
	c, err := NewGraphClient(NewGraphClientParams{
		Extraction: executor.New("test-extraction", fast),
		Embedding:  executor.New("test-embedding", fast),
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return c
}
