package ai

import (
	"context"
)

// Response is the result of a single completion request.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// ResponseSchema asks the backend to constrain its output to a JSON schema.
// Backends without structured output support ignore it.
type ResponseSchema struct {
	Name        string
	Description string
	Value       any // Go value whose type the schema is reflected from
}

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model         string          // Model identifier to use for generation
	SystemPrompts []string        // System prompts prepended to the request
	Temperature   float64         // Sampling temperature (0.0-2.0)
	Schema        *ResponseSchema // Optional structured output schema
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	Requests       int     `json:"requests"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
// An empty model keeps the backend default.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// Higher values (e.g., 1.0) produce more random outputs, while lower values
// (e.g., 0.2) make outputs more focused and deterministic.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithResponseSchema returns a GenerateOption that requests structured JSON
// output matching the type of value.
func WithResponseSchema(name, description string, value any) GenerateOption {
	return func(o *GenerateOptions) {
		o.Schema = &ResponseSchema{Name: name, Description: description, Value: value}
	}
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, o := range opts {
		o(&defaults)
	}
	return defaults
}

// Client is the chat completion collaborator used by the pipeline.
type Client interface {
	Ask(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error)
}

// Embedder computes vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GraphAIClient is implemented by the concrete backends. It bundles chat,
// embeddings and accumulated usage metrics.
type GraphAIClient interface {
	Client
	Embedder

	ResetMetrics()
	GetMetrics() ModelMetrics
}
