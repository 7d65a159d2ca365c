package ollama

import (
	"context"
	"encoding/json"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const (
	baseContext     = 4096
	contextHeadroom = 512
)

// Ask sends a single-turn prompt and returns the assistant text.
// A response schema set via ai.WithResponseSchema is passed as the
// request format so the model emits matching JSON.
func (c *GraphOllamaClient) Ask(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (*ai.Response, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.7,
	}, opts...)

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sp})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	stream := false
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Schema != nil {
		formatBytes, err := json.Marshal(ai.GenerateSchema(options.Schema.Value))
		if err != nil {
			return nil, err
		}
		req.Format = json.RawMessage(formatBytes)
	}

	numCtx, err := contextSize(msgs)
	if err != nil {
		return nil, err
	}
	if numCtx > baseContext {
		req.Options["num_ctx"] = numCtx
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Model = cr.Model
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return nil, err
	}

	c.metrics.Add(ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
	})

	model := final.Model
	if model == "" {
		model = options.Model
	}

	return &ai.Response{
		Content:      final.Message.Content,
		Model:        model,
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
	}, nil
}

// contextSize estimates the context window needed for msgs plus room for
// the answer.
func contextSize(msgs []api.Message) (int, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0, err
	}
	tokens := contextHeadroom
	for _, m := range msgs {
		tokens += len(enc.Encode(m.Content, nil, nil))
	}
	return tokens, nil
}
