package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/kgimport/internal/util"
	"github.com/OFFIS-RIT/kgimport/pkg/store"
)

// SaveAICall appends one entry to the AI call log.
func (s *ImportStorage) SaveAICall(ctx context.Context, call store.AICall) error {
	settings := call.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode ai call settings: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO ai_logs (
			session_id, model, prompt, response, input_tokens, output_tokens,
			cost, duration_ms, settings, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		call.SessionID,
		call.Model,
		util.SanitizePostgresText(call.Prompt),
		util.SanitizePostgresText(call.Response),
		call.InputTokens,
		call.OutputTokens,
		call.Cost,
		call.DurationMs,
		settingsJSON,
		util.SanitizePostgresText(call.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to save ai call: %w", err)
	}
	return nil
}
