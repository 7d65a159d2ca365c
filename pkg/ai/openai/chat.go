package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// Ask sends a single-turn prompt to the chat model and returns the generated
// completion together with its token usage.
//
// When a response schema is set via ai.WithResponseSchema, the request uses
// JSON schema structured output.
//
// Example:
//
//	res, err := client.Ask(ctx, "Summarize this text...", ai.WithTemperature(0.4))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(res.Content)
func (c *GraphOpenAIClient) Ask(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (*ai.Response, error) {
	if c.ChatClient == nil {
		return nil, fmt.Errorf("openai chat client is not configured")
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: 0.7,
	}, opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	if options.Schema != nil {
		body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        options.Schema.Name,
					Description: openai.String(options.Schema.Description),
					Schema:      ai.GenerateSchema(options.Schema.Value),
					Strict:      openai.Bool(false),
				},
			},
		}
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	response, err := c.ChatClient.Chat.Completions.New(rCtx, body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	c.metrics.Add(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model")
	}

	model := response.Model
	if model == "" {
		model = options.Model
	}

	return &ai.Response{
		Content:      response.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
	}, nil
}
