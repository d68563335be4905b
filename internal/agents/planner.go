package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// PlannerDay is one skeleton day: a theme with must-do and optional
// items, fleshed out into timed blocks by the Scheduler stage.
type PlannerDay struct {
	Date          string   `json:"date"`
	Theme         string   `json:"theme"`
	MustDo        []string `json:"must_do"`
	OptionalStops []string `json:"optional_stops,omitempty"`
}

// PlannerResult always has exactly one entry per calendar day in range.
type PlannerResult struct {
	Summary string       `json:"summary,omitempty"`
	Days    []PlannerDay `json:"days"`
}

var plannerSchema = gemini.MustSchemaFor[PlannerResult]("planner")

const plannerPrompt = `You are a trip planner. Produce a day-by-day skeleton for this trip as
JSON: one entry per calendar day from {{.StartDate}} to {{.EndDate}}
inclusive, each with a theme, 2-3 must-do items, and optional stops.

Destination: {{.Destination}}
Travelers: {{.Adults}} adults, {{.Children}} children
Interests: {{.Interests}}
Pace: {{.Pace}}

Research context:
{{.Research}}`

// Planner produces the day-by-day skeleton. The day count invariant is
// enforced after generation: a response with the wrong number of days is
// rebuilt by the stub.
func (a *Agents) Planner(ctx context.Context, trip *models.TripRequest, research ResearchContext) Result[PlannerResult] {
	if !a.aiEnabled() {
		return stub(plannerStub(trip), IssueGeminiDisabled)
	}

	prompt, err := gemini.RenderPrompt("planner", plannerPrompt, map[string]any{
		"Destination": trip.Destination,
		"StartDate":   trip.StartDate,
		"EndDate":     trip.EndDate,
		"Adults":      trip.Travelers.Adults,
		"Children":    trip.Travelers.Children,
		"Interests":   strings.Join(trip.Activity.Interests, ", "),
		"Pace":        trip.Activity.Pace,
		"Research":    research.Report,
	})
	if err != nil {
		return stub(plannerStub(trip), err.Error())
	}

	gen, err := generate[PlannerResult](ctx, a.Gemini, "planner", prompt, plannerSchema)
	if err != nil {
		return stub(plannerStub(trip), fallbackReason(err))
	}
	if len(gen.Data.Days) != trip.DayCount() {
		res := stub(plannerStub(trip), fmt.Sprintf("planner returned %d days, want %d", len(gen.Data.Days), trip.DayCount()))
		res.Drafts = gen.Drafts
		return res
	}
	return gen
}

// plannerStub emits one generic entry per calendar day, start through
// end inclusive.
func plannerStub(trip *models.TripRequest) PlannerResult {
	start, _, err := trip.Dates()
	if err != nil {
		return PlannerResult{Days: []PlannerDay{}}
	}

	days := make([]PlannerDay, 0, trip.DayCount())
	for i := 0; i < trip.DayCount(); i++ {
		date := start.AddDate(0, 0, i).Format(models.DateLayout)
		days = append(days, PlannerDay{
			Date:          date,
			Theme:         "Exploration day",
			MustDo:        []string{"Main attraction", "Local walk"},
			OptionalStops: []string{"Cafe", "Viewpoint"},
		})
	}
	return PlannerResult{
		Summary: "Trip to " + trip.Destination,
		Days:    days,
	}
}
