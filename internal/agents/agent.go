// Package agents implements the pipeline stages that turn a trip request
// into itinerary parts. Each stage runs in AI mode when the generation
// backend is available and falls back to a deterministic stub otherwise.
// Stages are stateless per call; shared dependencies are injected once.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/providers"
)

// IssueGeminiDisabled marks a stub result produced because no generation
// backend was configured.
const IssueGeminiDisabled = "gemini_disabled"

// Result is the outcome of one stage invocation. Drafts carries every
// raw generation attempt for the audit trail; Issues carries diagnostic
// strings (validation findings, fallback reasons). Stubbed results are
// schema-valid placeholders computed without the backend.
type Result[T any] struct {
	Data    T
	Drafts  []gemini.Draft
	Issues  []string
	Stubbed bool
}

// Agents bundles the shared dependencies every stage draws on.
type Agents struct {
	Gemini        *gemini.Client
	Providers     *providers.Clients
	BufferMinutes int
}

// New creates the stage agent set.
func New(client *gemini.Client, prov *providers.Clients, bufferMinutes int) *Agents {
	if bufferMinutes <= 0 {
		bufferMinutes = 20
	}
	return &Agents{Gemini: client, Providers: prov, BufferMinutes: bufferMinutes}
}

// aiEnabled reports whether AI mode is possible at all.
func (a *Agents) aiEnabled() bool {
	return a.Gemini != nil && a.Gemini.Enabled()
}

// generate runs a schema-guided generation and decodes the result.
// A non-nil error means the caller should fall back to its stub; the
// error text becomes the stub's diagnostic issue.
func generate[T any](ctx context.Context, client *gemini.Client, agentName, prompt string, schema *gemini.Schema) (Result[T], error) {
	var res Result[T]

	gen, err := client.GenerateValidated(ctx, prompt, schema)
	if err != nil {
		return res, err
	}
	res.Drafts = gen.Drafts
	res.Issues = gen.Issues

	if err := json.Unmarshal(gen.Output, &res.Data); err != nil {
		log.Warn().Str("agent", agentName).Err(err).Msg("Generated output does not decode, falling back to stub")
		return res, fmt.Errorf("decode %s output: %w", agentName, err)
	}
	return res, nil
}

// stub wraps deterministic fallback data with its diagnostic issue.
func stub[T any](data T, reason string) Result[T] {
	return Result[T]{Data: data, Issues: []string{reason}, Stubbed: true}
}

// fallbackReason picks the issue string for a stub: the captured error
// text in AI mode, or the disabled marker otherwise.
func fallbackReason(err error) string {
	if err == nil {
		return IssueGeminiDisabled
	}
	return err.Error()
}
