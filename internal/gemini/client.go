// Package gemini implements the resilient text generation client used by
// all pipeline agents.
//
// The client walks a ranked model list, skipping models that are
// quota-exhausted or unavailable, and degrades from schema-constrained
// to free-form generation when a model rejects the constraint. Callers
// get back raw text; GenerateValidated layers JSON extraction, schema
// validation, and a single repair round on top.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/config"
)

const defaultTemperature = 0.4

// Client is a Gemini REST API client with model fallback.
type Client struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

// NewClient builds a client from configuration. A client with no API key
// is valid but disabled; every generation call returns ErrNotConfigured.
func NewClient(cfg config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		models:  cfg.Models(),
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has credentials to generate with.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// Models returns the ranked model list.
func (c *Client) Models() []string { return c.models }

// GenerateContent sends the prompt through the ranked model list and
// returns the first successful completion's text. A nil schema requests
// free-form output; otherwise the schema is attached as a response
// constraint and dropped on a same-model retry if the model rejects it.
func (c *Client) GenerateContent(ctx context.Context, prompt string, schema *Schema) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	var lastErr error
	var quotaModels []string

	for _, model := range c.models {
		text, err := c.callModel(ctx, model, prompt, schema)
		if err == nil {
			return text, nil
		}

		var genErr *GenerationError
		switch {
		case asGenerationError(err, &genErr) && isQuota(genErr.StatusCode, genErr.Message):
			log.Warn().Str("model", model).Msg("Model quota exhausted, trying next")
			quotaModels = append(quotaModels, model)
			lastErr = err
			continue
		case asGenerationError(err, &genErr) && isNotFound(genErr.StatusCode, genErr.Message):
			log.Warn().Str("model", model).Msg("Model unavailable, trying next")
			lastErr = err
			continue
		case schema != nil:
			// Some models reject response schemas they cannot honor.
			// Retry the same model unconstrained before moving on. The
			// retry's own failure is classified like the guided one, so
			// quota exhaustion here still surfaces as QuotaError.
			log.Warn().Str("model", model).Err(err).Msg("Schema-constrained call failed, retrying without schema")
			text, retryErr := c.callModel(ctx, model, prompt, nil)
			if retryErr == nil {
				return text, nil
			}
			if asGenerationError(retryErr, &genErr) && isQuota(genErr.StatusCode, genErr.Message) {
				quotaModels = append(quotaModels, model)
			}
			lastErr = retryErr
		default:
			lastErr = err
		}
	}

	if len(quotaModels) > 0 {
		return "", &QuotaError{Models: quotaModels}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", &GenerationError{Message: "no models configured"}
}

// ── Gemini REST wire types ──────────────────────────────────

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) callModel(ctx context.Context, model, prompt string, schema *Schema) (string, error) {
	genCfg := &generationConfig{Temperature: defaultTemperature}
	if schema != nil {
		genCfg.ResponseMimeType = "application/json"
		genCfg.ResponseSchema = schema.Raw()
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: genCfg,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	// Transport-level failures are retried with exponential backoff.
	// Provider status errors are permanent; the model loop decides
	// whether to fall through to the next model.
	var resp generateResponse
	op := func() error {
		httpReq, reqErr := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if reqErr != nil {
			return backoff.Permanent(fmt.Errorf("gemini: create request: %w", reqErr))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		httpResp, doErr := c.client.Do(httpReq)
		if doErr != nil {
			return fmt.Errorf("gemini: request failed: %w", doErr)
		}
		defer httpResp.Body.Close()

		respBody, readErr := io.ReadAll(httpResp.Body)
		if readErr != nil {
			return fmt.Errorf("gemini: read response: %w", readErr)
		}

		if httpResp.StatusCode != http.StatusOK {
			return backoff.Permanent(&GenerationError{
				Model:      model,
				StatusCode: httpResp.StatusCode,
				Message:    string(respBody),
			})
		}

		if decErr := json.Unmarshal(respBody, &resp); decErr != nil {
			return backoff.Permanent(&GenerationError{Model: model, Message: fmt.Sprintf("decode response: %v", decErr)})
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		return "", &GenerationError{Model: model, Message: "no candidates in response"}
	}
	text := ""
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}

func asGenerationError(err error, target **GenerationError) bool {
	return errors.As(err, target)
}
