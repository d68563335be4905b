package models

import (
	"encoding/json"
	"time"
)

// AgentTrace records a single generation step for one agent in a pipeline
// run. Draft steps are named draft_1..draft_N; the accepted output is
// recorded as final, and a stage that fell back to its stub as failed.
type AgentTrace struct {
	ID          string          `json:"id" db:"id"`
	ItineraryID string          `json:"itinerary_id" db:"itinerary_id"`
	AgentName   string          `json:"agent_name" db:"agent_name"`
	StepName    string          `json:"step_name" db:"step_name"`
	InputJSON   json.RawMessage `json:"input,omitempty"`
	OutputJSON  json.RawMessage `json:"output,omitempty"`
	RawText     string          `json:"raw_text,omitempty" db:"raw_text"`
	Issues      []string        `json:"issues,omitempty"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
