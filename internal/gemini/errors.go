package gemini

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when no API key is set. Callers that can
// degrade to canned output should check for it with errors.Is.
var ErrNotConfigured = errors.New("gemini: no API key configured")

// GenerationError is a failed generation attempt after all models in the
// ranked list have been tried.
type GenerationError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gemini: model %s: status %d: %s", e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini: model %s: %s", e.Model, e.Message)
}

// QuotaError means every model in the ranked list was quota-exhausted.
// It maps to HTTP 429 at the API boundary.
type QuotaError struct {
	Models []string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("gemini: quota exhausted on all models: %s", strings.Join(e.Models, ", "))
}

// isQuota reports whether a provider error indicates quota exhaustion.
// Gemini signals this as HTTP 429, status RESOURCE_EXHAUSTED, or a
// message mentioning quota.
func isQuota(statusCode int, body string) bool {
	if statusCode == 429 {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(body, "RESOURCE_EXHAUSTED") || strings.Contains(lower, "quota")
}

// isNotFound reports whether the model itself is unknown or unavailable,
// which warrants skipping to the next model rather than retrying.
func isNotFound(statusCode int, body string) bool {
	return statusCode == 404 || strings.Contains(strings.ToLower(body), "not found")
}
