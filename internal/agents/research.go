package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// ResearchContext is the first stage's output: lodging options, a travel
// time estimate, and model-suggested travel options. Downstream prompts
// embed the Report text verbatim.
type ResearchContext struct {
	Report            string                    `json:"report"`
	Hotels            []models.Hotel            `json:"hotels,omitempty"`
	BudgetHotels      []models.Hotel            `json:"budget_hotels,omitempty"`
	TravelTimeMinutes int                       `json:"travel_time_minutes,omitempty"`
	TravelOptions     []models.TravelOption     `json:"travel_options,omitempty"`
	Transport         *models.TransportAnalysis `json:"transport_analysis,omitempty"`
	USDRate           float64                   `json:"usd_rate,omitempty"`
}

// travelOptionsDoc is the schema for the AI sub-call that enriches the
// deterministic research report with bookable options.
type travelOptionsDoc struct {
	TravelOptions []models.TravelOption     `json:"travel_options"`
	Transport     *models.TransportAnalysis `json:"transport_analysis,omitempty"`
}

var travelOptionsSchema = gemini.MustSchemaFor[travelOptionsDoc]("travel_options")

const travelOptionsPrompt = `You are a travel logistics expert. Based on this research report, suggest
bookable travel options (lodging, transport) and analyze transport modes
for the trip. Respond with JSON only.

Trip: {{.Destination}}, {{.StartDate}} to {{.EndDate}}, {{.Adults}} adults, {{.Children}} children.
Comfort level: {{.Comfort}}. Origin: {{.Origin}}.

Report:
{{.Report}}`

// Research gathers lodging and travel-time data from external providers
// and asks the model for travel options. The report itself is always
// computed deterministically; only the options sub-call uses AI.
func (a *Agents) Research(ctx context.Context, trip *models.TripRequest) Result[ResearchContext] {
	rc := ResearchContext{}

	if a.Providers != nil && a.Providers.Places != nil {
		hotels, err := a.Providers.Places.Hotels(ctx, trip.Destination, trip.Lodging)
		if err == nil {
			rc.Hotels = hotels
		} else {
			log.Debug().Err(err).Msg("Hotel search unavailable")
		}
		// A cheaper alternative tier for comfort downgrades.
		if trip.Budget.ComfortLevel != "budget" {
			budget, err := a.Providers.Places.Hotels(ctx, trip.Destination, models.LodgingPreferences{LodgingType: "hostel"})
			if err == nil {
				rc.BudgetHotels = budget
			}
		}
	}
	if trip.OriginLocation != "" && a.Providers != nil && a.Providers.Travel != nil {
		rc.TravelTimeMinutes = a.Providers.Travel.Minutes(ctx, trip.OriginLocation, trip.Destination)
	}
	if trip.Budget.Currency != "USD" && a.Providers != nil && a.Providers.Currency != nil {
		rate, err := a.Providers.Currency.Rate(ctx, "USD", trip.Budget.Currency)
		if err == nil {
			rc.USDRate = rate
		} else {
			log.Debug().Err(err).Msg("Exchange rate unavailable")
		}
	}

	rc.Report = buildResearchReport(trip, rc)

	if !a.aiEnabled() {
		res := stub(rc, IssueGeminiDisabled)
		return res
	}

	prompt, err := gemini.RenderPrompt("research", travelOptionsPrompt, map[string]any{
		"Destination": trip.Destination,
		"StartDate":   trip.StartDate,
		"EndDate":     trip.EndDate,
		"Adults":      trip.Travelers.Adults,
		"Children":    trip.Travelers.Children,
		"Comfort":     trip.Budget.ComfortLevel,
		"Origin":      trip.OriginLocation,
		"Report":      rc.Report,
	})
	if err != nil {
		return stub(rc, err.Error())
	}

	gen, err := generate[travelOptionsDoc](ctx, a.Gemini, "research", prompt, travelOptionsSchema)
	if err != nil {
		return stub(rc, fallbackReason(err))
	}
	rc.TravelOptions = gen.Data.TravelOptions
	rc.Transport = gen.Data.Transport
	return Result[ResearchContext]{Data: rc, Drafts: gen.Drafts, Issues: gen.Issues}
}

func buildResearchReport(trip *models.TripRequest, rc ResearchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Destination research for %s (%s to %s)\n", trip.Destination, trip.StartDate, trip.EndDate)
	fmt.Fprintf(&b, "Travelers: %d adults, %d children. Comfort level: %s.\n",
		trip.Travelers.Adults, trip.Travelers.Children, trip.Budget.ComfortLevel)

	if len(rc.Hotels) > 0 {
		b.WriteString("\nLodging options:\n")
		for i, h := range rc.Hotels {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s (rating %.1f) %s\n", h.Name, h.Rating, h.Address)
		}
	}
	if len(rc.BudgetHotels) > 0 {
		b.WriteString("\nCheaper alternatives:\n")
		for i, h := range rc.BudgetHotels {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s (rating %.1f)\n", h.Name, h.Rating)
		}
	}
	if rc.TravelTimeMinutes > 0 {
		fmt.Fprintf(&b, "\nEstimated travel time from %s: %d minutes.\n", trip.OriginLocation, rc.TravelTimeMinutes)
	}
	if rc.USDRate > 0 {
		fmt.Fprintf(&b, "\nExchange rate: 1 USD is about %.2f %s. Budget %s %.0f is about USD %.0f.\n",
			rc.USDRate, trip.Budget.Currency, trip.Budget.Currency, trip.Budget.TotalBudget,
			trip.Budget.TotalBudget/rc.USDRate)
	}
	if trip.Notes != "" {
		fmt.Fprintf(&b, "\nTraveler notes: %s\n", trip.Notes)
	}
	return b.String()
}
