package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/chunker"
	"github.com/OFFIS-RIT/kgimport/pkg/executor"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
)

// Schema lists the node and relationship types the extraction prompts steer
// the model towards. The model may still introduce new types.
type Schema struct {
	NodeTypes  []string `json:"node_types"`
	EdgeTypes  []string `json:"edge_types"`
	Categories []string `json:"categories,omitempty"`
}

// DefaultSchema is used when no schema is configured.
var DefaultSchema = Schema{
	NodeTypes: []string{
		"ORGANIZATION", "PERSON", "STATEMENT", "PLATFORM", "MEDIA_OUTLET",
		"CODE", "TECHNOLOGY", "COMPANY", "PROJECT",
	},
	EdgeTypes: []string{
		"mentioned_in", "used_in", "belongs_to", "works_at", "works_on", "is_a", "discusses",
	},
	Categories: []string{"Code", "Source Document", "Ai", "HR", "Customers"},
}

// Summary renders the schema for the free-text extraction pass.
func (s Schema) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Node types: %s\n", strings.Join(s.NodeTypes, ", "))
	fmt.Fprintf(&b, "Relationship types: %s", strings.Join(s.EdgeTypes, ", "))
	if len(s.Categories) > 0 {
		fmt.Fprintf(&b, "\nCategories: %s", strings.Join(s.Categories, ", "))
	}
	return b.String()
}

// JSON renders the schema for the structuring extraction pass.
func (s Schema) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// GraphClient runs the import pipeline stages. It owns the chunker and the
// two rate-limited executors, so all documents processed by one client
// share the same request budget.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	chunker         *chunker.Chunker
	extraction      *executor.Executor
	embedding       *executor.Executor
	schema          Schema
	validationModel string
	maxRetries      int
	retryDelay      time.Duration
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// Nil executors and chunker are created from the environment defaults.
// ValidationModel is used for the validation pass when the prompt does not
// name a model. MaxRetries counts attempts per LLM call; 1 disables retries.
type NewGraphClientParams struct {
	Chunker         *chunker.Chunker
	Extraction      *executor.Executor
	Embedding       *executor.Executor
	Schema          *Schema
	ValidationModel string
	MaxRetries      int
	RetryDelay      time.Duration
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		ValidationModel: "anthropic/claude-3.5-haiku",
//		MaxRetries:      2,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	c := params.Chunker
	if c == nil {
		var err error
		c, err = chunker.New()
		if err != nil {
			return nil, err
		}
	}
	extraction := params.Extraction
	if extraction == nil {
		extraction = executor.NewExtraction()
	}
	embedding := params.Embedding
	if embedding == nil {
		embedding = executor.NewEmbedding()
	}
	schema := DefaultSchema
	if params.Schema != nil {
		schema = *params.Schema
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &GraphClient{
		chunker:         c,
		extraction:      extraction,
		embedding:       embedding,
		schema:          schema,
		validationModel: params.ValidationModel,
		maxRetries:      maxRetries,
		retryDelay:      params.RetryDelay,
	}, nil
}

// ask sends a rendered prompt with the client's retry policy and returns the
// response text.
func (g *GraphClient) ask(
	ctx context.Context,
	llm ai.Client,
	text string,
	opts ...ai.GenerateOption,
) (string, error) {
	return util.RetryWithContext(ctx, g.maxRetries, g.retryDelay, func(ctx context.Context) (string, error) {
		res, err := llm.Ask(ctx, text, opts...)
		if err != nil {
			return "", err
		}
		return res.Content, nil
	})
}

// modelFor returns the model configured for the named prompt, if the
// renderer knows about models.
func modelFor(prompts prompt.Renderer, name string) string {
	if ms, ok := prompts.(prompt.ModelSelector); ok {
		return ms.ModelFor(name)
	}
	return ""
}
