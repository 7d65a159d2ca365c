// Package ailog records every language model call of an import: model,
// prompt, response, token usage, cost and duration.
package ailog

import (
	"context"
	"time"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/store"
)

// Client wraps an ai.Client and logs each call. Calls are written to the
// logger and, when configured, to a store.AICallSink. A failing sink never
// fails the call.
//
// A Client should be created using New.
type Client struct {
	next      ai.Client
	sink      store.AICallSink
	pricing   Pricing
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithSink stores every call in sink.
func WithSink(sink store.AICallSink) Option {
	return func(c *Client) { c.sink = sink }
}

// WithPricing sets the table used to compute call costs.
func WithPricing(p Pricing) Option {
	return func(c *Client) { c.pricing = p }
}

// WithSessionID groups the logged calls under id. Without it a random
// session id is generated.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// New wraps next.
//
// Example:
//
//	logged := ailog.New(client,
//		ailog.WithSink(importStorage),
//		ailog.WithSessionID(importID),
//	)
func New(next ai.Client, opts ...Option) *Client {
	c := &Client{next: next, pricing: Pricing{}}
	for _, o := range opts {
		o(c)
	}
	if c.sessionID == "" {
		c.sessionID = util.NewID()
	}
	return c
}

// Session returns a copy of c that logs under id.
func (c *Client) Session(id string) *Client {
	cp := *c
	cp.sessionID = id
	return &cp
}

// SessionID returns the id the calls are logged under.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Ask forwards the call and records it.
func (c *Client) Ask(ctx context.Context, prompt string, opts ...ai.GenerateOption) (*ai.Response, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{}, opts...)

	start := time.Now()
	res, err := c.next.Ask(ctx, prompt, opts...)
	duration := time.Since(start)

	call := store.AICall{
		SessionID:  c.sessionID,
		Model:      options.Model,
		Prompt:     prompt,
		DurationMs: duration.Milliseconds(),
		Settings:   settings(options),
	}
	if res != nil {
		if res.Model != "" {
			call.Model = res.Model
		}
		call.Response = res.Content
		call.InputTokens = res.InputTokens
		call.OutputTokens = res.OutputTokens
		call.Cost = c.pricing.Cost(call.Model, res.InputTokens, res.OutputTokens)
	}
	if err != nil {
		call.Error = err.Error()
	}

	c.record(ctx, call)
	return res, err
}

func (c *Client) record(ctx context.Context, call store.AICall) {
	if call.Error != "" {
		logger.Warn("[AI] Call failed",
			"session", call.SessionID, "model", call.Model, "duration", call.DurationMs, "err", call.Error)
	} else {
		logger.Debug("[AI] Call",
			"session", call.SessionID,
			"model", call.Model,
			"input_tokens", call.InputTokens,
			"output_tokens", call.OutputTokens,
			"cost", call.Cost,
			"duration", call.DurationMs,
		)
	}

	if c.sink == nil {
		return
	}
	if err := c.sink.SaveAICall(context.WithoutCancel(ctx), call); err != nil {
		logger.Warn("[AI] Failed to store call log", "session", call.SessionID, "err", err)
	}
}

func settings(o ai.GenerateOptions) map[string]any {
	s := map[string]any{"temperature": o.Temperature}
	if len(o.SystemPrompts) > 0 {
		s["system_prompts"] = o.SystemPrompts
	}
	if o.Schema != nil {
		s["response_schema"] = o.Schema.Name
	}
	return s
}
