// Package store persists the results of an import: the knowledge graph as
// idempotent graph statements, and the chunks and AI call log in a
// relational database.
package store

import (
	"context"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
)

// Result describes the outcome of one executed statement.
type Result struct {
	Rows int // number of records the statement returned
}

// Executor runs a single graph statement.
type Executor interface {
	Execute(ctx context.Context, statement string) (*Result, error)
}

// ChunkStorage persists the chunks and vectors of an import.
type ChunkStorage interface {
	SaveDocument(ctx context.Context, importID string, doc *common.Document) error
}

// AICall is one logged language-model or embedding request.
type AICall struct {
	SessionID    string
	Model        string
	Prompt       string
	Response     string
	InputTokens  int
	OutputTokens int
	Cost         float64
	DurationMs   int64
	Settings     map[string]any
	Error        string
}

// AICallSink stores logged AI calls.
type AICallSink interface {
	SaveAICall(ctx context.Context, call AICall) error
}
