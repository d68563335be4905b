package agents

import (
	"context"
	"encoding/json"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

var budgetSchema = gemini.MustSchemaFor[models.BudgetSummary]("budget")

const budgetPrompt = `You are a travel budget analyst. Estimate costs for this trip as JSON:
a breakdown by category, the estimated total, warnings if it exceeds the
stated budget, and a downgrade plan when over budget.

Destination: {{.Destination}}, {{.Days}} days.
Travelers: {{.Adults}} adults, {{.Children}} children.
Total budget: {{.Total}} {{.Currency}}, comfort level {{.Comfort}}.

Schedule:
{{.Schedule}}

Meals:
{{.Meals}}`

// budgetSplit is the stub's fixed share of total budget per category.
var budgetSplit = []struct {
	Category string
	Share    float64
}{
	{"Lodging", 0.40},
	{"Meals", 0.25},
	{"Activities", 0.20},
	{"Transit", 0.10},
	{"Buffer", 0.05},
}

// Budget estimates trip costs. The stub splits the stated budget across
// five fixed categories.
func (a *Agents) Budget(ctx context.Context, trip *models.TripRequest, schedule SchedulerResult, food FoodResult) Result[models.BudgetSummary] {
	if !a.aiEnabled() {
		return stub(budgetStub(trip), IssueGeminiDisabled)
	}

	scheduleJSON, _ := json.Marshal(schedule)
	mealsJSON, _ := json.Marshal(food)
	prompt, err := gemini.RenderPrompt("budget", budgetPrompt, map[string]any{
		"Destination": trip.Destination,
		"Days":        trip.DayCount(),
		"Adults":      trip.Travelers.Adults,
		"Children":    trip.Travelers.Children,
		"Total":       trip.Budget.TotalBudget,
		"Currency":    trip.Budget.Currency,
		"Comfort":     trip.Budget.ComfortLevel,
		"Schedule":    string(scheduleJSON),
		"Meals":       string(mealsJSON),
	})
	if err != nil {
		return stub(budgetStub(trip), err.Error())
	}

	gen, err := generate[models.BudgetSummary](ctx, a.Gemini, "budget", prompt, budgetSchema)
	if err != nil {
		return stub(budgetStub(trip), fallbackReason(err))
	}
	if gen.Data.Currency == "" {
		gen.Data.Currency = trip.Budget.Currency
	}
	return gen
}

func budgetStub(trip *models.TripRequest) models.BudgetSummary {
	total := trip.Budget.TotalBudget
	summary := models.BudgetSummary{
		Currency:    trip.Budget.Currency,
		TotalBudget: total,
	}

	var estimated float64
	for _, split := range budgetSplit {
		cost := total * split.Share
		estimated += cost
		summary.Breakdown = append(summary.Breakdown, models.BudgetBreakdown{
			Category:      split.Category,
			EstimatedCost: cost,
		})
	}
	summary.EstimatedTotal = estimated

	if total > 0 && estimated > total {
		summary.Warnings = append(summary.Warnings, "Estimated costs exceed the stated budget.")
		summary.DowngradePlan = []string{
			"Choose lodging one comfort tier lower.",
			"Swap one restaurant meal per day for a market or takeaway meal.",
			"Prefer free attractions and walking routes over paid entries.",
		}
	}
	return summary
}
