// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesize turns analyzed records into short structured drafts.
// Two Generator strategies exist: a deterministic template substitution that
// is always available, and an OpenAI-compatible chat-completions backend
// selected when a credential is configured. The LLM path degrades to the
// template silently; a missing or failing generation service never fails a
// record.
package synthesize

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-pipeline/pkg/types"
)

// Generator produces draft sections for one analyzed record.
type Generator interface {
	// Name identifies the strategy; it is recorded on each draft.
	Name() string

	// GenerateDraft builds a complete draft from the record's metadata and
	// metrics.
	GenerateDraft(ctx context.Context, rec *types.PaperRecord) (types.Draft, error)
}

// NewGenerator selects the strategy at startup: the chat-completions backend
// when an API key is configured, otherwise the template path.
func NewGenerator(cfg types.LLMConfig, client *http.Client, logger zerolog.Logger) Generator {
	if cfg.APIKey == "" {
		logger.Debug().Msg("no generation credential, using template strategy")
		return &TemplateGenerator{}
	}
	return NewLLMGenerator(cfg, client)
}
