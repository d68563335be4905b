package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/rs/zerolog/log"
)

// Draft is one generation attempt within a validated call.
type Draft struct {
	Step   string          `json:"step"`
	Raw    string          `json:"raw,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Issues []string        `json:"issues,omitempty"`
}

// Generated is the outcome of GenerateValidated. Issues carries the
// validation problems of the accepted draft; a non-empty list does not
// make the call a failure.
type Generated struct {
	Output json.RawMessage
	Drafts []Draft
	Issues []string
}

// GenerateValidated generates JSON conforming to schema, with one repair
// round. The first draft is validated; when it cannot be extracted as
// JSON at all, or when findings exist, the model is asked once to repair
// its own raw output. A repair is accepted even when it still has
// findings, since a partially conformant document is more useful to
// downstream stages than none. Only a run whose drafts never yield any
// JSON at all is an error.
func (c *Client) GenerateValidated(ctx context.Context, prompt string, schema *Schema) (*Generated, error) {
	raw, err := c.GenerateContent(ctx, prompt, schema)
	if err != nil {
		return nil, err
	}

	out, extractErr := BestEffortJSON(raw)
	var issues []string
	if extractErr != nil {
		issues = []string{fmt.Sprintf("initial_validation_failed: %v", extractErr)}
	} else {
		issues = schema.Validate(out)
	}

	first := Draft{Step: "draft_1", Raw: raw, Output: out, Issues: issues}
	result := &Generated{Output: out, Drafts: []Draft{first}, Issues: issues}
	if len(issues) == 0 {
		return result, nil
	}

	log.Debug().Str("schema", schema.Name()).Int("issues", len(issues)).Msg("Draft failed validation, requesting repair")

	repairRaw, err := c.GenerateContent(ctx, buildRepairPrompt(raw, schema), schema)
	if err != nil {
		if extractErr != nil {
			// No usable draft exists; let the caller stub.
			return nil, err
		}
		// Keep the flawed first draft rather than failing the stage.
		log.Warn().Str("schema", schema.Name()).Err(err).Msg("Repair round failed, keeping first draft")
		return result, nil
	}

	repairOut, repairExtractErr := BestEffortJSON(repairRaw)
	if repairExtractErr != nil {
		if extractErr != nil {
			return nil, &GenerationError{Message: fmt.Sprintf("extract JSON: %v", repairExtractErr)}
		}
		log.Warn().Str("schema", schema.Name()).Err(repairExtractErr).Msg("Repair output not parseable, keeping first draft")
		return result, nil
	}

	repairIssues := schema.Validate(repairOut)
	result.Drafts = append(result.Drafts, Draft{Step: "draft_2", Raw: repairRaw, Output: repairOut, Issues: repairIssues})
	result.Output = repairOut
	result.Issues = repairIssues
	return result, nil
}

// buildRepairPrompt embeds the raw model text, not an extracted span, so
// the model can recover a document even when extraction failed entirely.
func buildRepairPrompt(raw string, schema *Schema) string {
	var buf bytes.Buffer
	buf.WriteString("Fix this invalid JSON to match the schema:\n")
	buf.WriteString(raw)
	buf.WriteString("\n\nSchema:\n")
	buf.Write(schema.Raw())
	buf.WriteString("\n\nReturn ONLY valid JSON.")
	return buf.String()
}

// RenderPrompt executes a text/template prompt against data. Agents keep
// their prompts as package-level templates and render them per request.
func RenderPrompt(name, tmpl string, data any) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse prompt %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
