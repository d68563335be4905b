package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// AttractionsResult ranks points of interest for the trip.
type AttractionsResult struct {
	Attractions []models.Attraction `json:"attractions"`
}

var attractionsSchema = gemini.MustSchemaFor[AttractionsResult]("attractions")

const attractionsPrompt = `You are a local guide for {{.Destination}}. Rank attractions for these
travelers and return JSON: each attraction with a name, reason, score
(0-5), distance_km from the center, and categories.

Interests: {{.Interests}}
Pace: {{.Pace}}
Accessibility needs: {{.Accessibility}}

External place listings (may be empty):
{{.Places}}`

// Attractions ranks places via the model; the stub passes through the
// raw external listings unranked.
func (a *Agents) Attractions(ctx context.Context, trip *models.TripRequest) Result[AttractionsResult] {
	var places []models.Attraction
	if a.Providers != nil && a.Providers.Places != nil {
		if got, err := a.Providers.Places.Attractions(ctx, trip.Destination, trip.Activity.Interests); err == nil {
			places = got
		}
	}

	if !a.aiEnabled() {
		return stub(AttractionsResult{Attractions: places}, IssueGeminiDisabled)
	}

	placesJSON, _ := json.Marshal(places)
	prompt, err := gemini.RenderPrompt("attractions", attractionsPrompt, map[string]any{
		"Destination":   trip.Destination,
		"Interests":     strings.Join(trip.Activity.Interests, ", "),
		"Pace":          trip.Activity.Pace,
		"Accessibility": strings.Join(trip.Activity.AccessibilityNeeds, ", "),
		"Places":        string(placesJSON),
	})
	if err != nil {
		return stub(AttractionsResult{Attractions: places}, err.Error())
	}

	gen, err := generate[AttractionsResult](ctx, a.Gemini, "attractions", prompt, attractionsSchema)
	if err != nil {
		return stub(AttractionsResult{Attractions: places}, fallbackReason(err))
	}
	return gen
}
