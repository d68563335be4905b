package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// FoodDay pairs a date with its meals; the orchestrator merges these
// into the matching schedule day.
type FoodDay struct {
	Date  string        `json:"date"`
	Meals []models.Meal `json:"meals"`
}

type FoodResult struct {
	Days []FoodDay `json:"days"`
}

var foodSchema = gemini.MustSchemaFor[FoodResult]("food")

const foodPrompt = `You are a dining planner for {{.Destination}}. For each scheduled day,
suggest breakfast, lunch, and dinner as JSON, aligned with the day's
schedule locations and these dietary needs.

Cuisines: {{.Cuisines}}
Dietary restrictions: {{.Dietary}}
Avoid: {{.Avoid}}

Schedule:
{{.Schedule}}`

// Food plans meals per scheduled day. The stub emits 3 fixed meals per
// day tagged with the trip's dietary restrictions.
func (a *Agents) Food(ctx context.Context, trip *models.TripRequest, schedule SchedulerResult) Result[FoodResult] {
	if !a.aiEnabled() {
		return stub(foodStub(trip, schedule), IssueGeminiDisabled)
	}

	scheduleJSON, _ := json.Marshal(schedule)
	prompt, err := gemini.RenderPrompt("food", foodPrompt, map[string]any{
		"Destination": trip.Destination,
		"Cuisines":    strings.Join(trip.Food.Cuisines, ", "),
		"Dietary":     strings.Join(trip.Food.DietaryRestrictions, ", "),
		"Avoid":       strings.Join(trip.Food.AvoidIngredients, ", "),
		"Schedule":    string(scheduleJSON),
	})
	if err != nil {
		return stub(foodStub(trip, schedule), err.Error())
	}

	gen, err := generate[FoodResult](ctx, a.Gemini, "food", prompt, foodSchema)
	if err != nil {
		return stub(foodStub(trip, schedule), fallbackReason(err))
	}
	return gen
}

func foodStub(trip *models.TripRequest, schedule SchedulerResult) FoodResult {
	days := make([]FoodDay, 0, len(schedule.Days))
	for _, day := range schedule.Days {
		days = append(days, FoodDay{
			Date: day.Date,
			Meals: []models.Meal{
				{
					Time:          "08:30",
					Name:          "Breakfast near the hotel",
					DietaryFit:    trip.Food.DietaryRestrictions,
					EstimatedCost: 15,
				},
				{
					Time:          "12:30",
					Name:          "Lunch near the day's activities",
					DietaryFit:    trip.Food.DietaryRestrictions,
					EstimatedCost: 25,
				},
				{
					Time:              "19:00",
					Name:              "Dinner at a well-rated local restaurant",
					DietaryFit:        trip.Food.DietaryRestrictions,
					ReservationNeeded: true,
					EstimatedCost:     45,
				},
			},
		})
	}
	return FoodResult{Days: days}
}
