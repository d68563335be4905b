package agents

import (
	"context"
	"encoding/json"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// SchedulerResult holds the per-day timed schedule. Meals are filled in
// later by the Food stage; blocks here are activities, travel, and rest.
type SchedulerResult struct {
	Days []models.DayPlan `json:"days"`
}

var schedulerSchema = gemini.MustSchemaFor[SchedulerResult]("scheduler")

const schedulerPrompt = `You are a scheduling assistant. Turn this day-by-day skeleton into timed
schedule blocks as JSON. Each day gets ordered, non-overlapping blocks
with start_time/end_time (HH:MM), a block_type (activity, travel, rest,
buffer), travel_time_mins between stops, and buffer_mins of {{.Buffer}}.
Stay within the daily window {{.WindowStart}}-{{.WindowEnd}}.

Destination: {{.Destination}}
Weather overview: {{.WeatherOverview}}

Skeleton:
{{.Skeleton}}`

// Scheduler expands the planner skeleton into timed blocks. The stub
// derives 3 fixed blocks per day from the skeleton's items.
func (a *Agents) Scheduler(ctx context.Context, trip *models.TripRequest, planner PlannerResult, weatherOverview string) Result[SchedulerResult] {
	if !a.aiEnabled() {
		return stub(a.schedulerStub(trip, planner), IssueGeminiDisabled)
	}

	skeletonJSON, _ := json.Marshal(planner)
	prompt, err := gemini.RenderPrompt("scheduler", schedulerPrompt, map[string]any{
		"Destination":     trip.Destination,
		"WeatherOverview": weatherOverview,
		"WindowStart":     trip.DailyStartTime,
		"WindowEnd":       trip.DailyEndTime,
		"Buffer":          a.BufferMinutes,
		"Skeleton":        string(skeletonJSON),
	})
	if err != nil {
		return stub(a.schedulerStub(trip, planner), err.Error())
	}

	gen, err := generate[SchedulerResult](ctx, a.Gemini, "scheduler", prompt, schedulerSchema)
	if err != nil {
		return stub(a.schedulerStub(trip, planner), fallbackReason(err))
	}
	return gen
}

// schedulerStub builds a morning activity, lunch, and afternoon activity
// per day. Block times are fixed and non-overlapping.
func (a *Agents) schedulerStub(trip *models.TripRequest, planner PlannerResult) SchedulerResult {
	days := make([]models.DayPlan, 0, len(planner.Days))
	for _, pd := range planner.Days {
		morning := "Explore " + trip.Destination
		if len(pd.MustDo) > 0 {
			morning = pd.MustDo[0]
		}
		afternoon := "Continue exploring " + trip.Destination
		if len(pd.OptionalStops) > 0 {
			afternoon = pd.OptionalStops[0]
		} else if len(pd.MustDo) > 1 {
			afternoon = pd.MustDo[1]
		}

		days = append(days, models.DayPlan{
			Date:  pd.Date,
			Title: pd.Theme,
			Notes: []string{"Theme: " + pd.Theme},
			Schedule: []models.ScheduleBlock{
				{
					StartTime:      "09:00",
					EndTime:        "11:30",
					Title:          morning,
					BlockType:      models.BlockActivity,
					TravelTimeMins: 20,
					BufferMins:     15,
				},
				{
					StartTime:      "12:00",
					EndTime:        "13:30",
					Title:          "Lunch",
					BlockType:      models.BlockMeal,
					TravelTimeMins: 10,
					BufferMins:     10,
				},
				{
					StartTime:      "14:00",
					EndTime:        "17:30",
					Title:          afternoon,
					BlockType:      models.BlockActivity,
					TravelTimeMins: 20,
					BufferMins:     20,
				},
			},
		})
	}
	return SchedulerResult{Days: days}
}
