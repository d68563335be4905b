package agents_test

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/providers"
	"github.com/tripsmith/tripsmith/pkg/models"
)

func testTrip(t *testing.T, start, end string) *models.TripRequest {
	t.Helper()
	trip := &models.TripRequest{
		Destination: "Lisbon",
		StartDate:   start,
		EndDate:     end,
		Travelers:   models.Travelers{Adults: 2},
		Budget:      models.BudgetPreferences{Currency: "EUR", TotalBudget: 2000},
	}
	if err := trip.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	return trip
}

// stubAgents has no generation backend; every stage runs in stub mode.
func stubAgents() *agents.Agents {
	return agents.New(nil, nil, 20)
}

func TestPlannerStubOneEntryPerDay(t *testing.T) {
	tests := []struct {
		start, end string
		wantDays   int
	}{
		{"2026-09-10", "2026-09-10", 1},
		{"2026-09-10", "2026-09-12", 3},
		{"2026-09-28", "2026-10-02", 5},
	}

	a := stubAgents()
	for _, tc := range tests {
		trip := testTrip(t, tc.start, tc.end)
		res := a.Planner(context.Background(), trip, agents.ResearchContext{})
		if !res.Stubbed {
			t.Error("Planner() without backend not stubbed")
		}
		if len(res.Issues) == 0 || res.Issues[0] != agents.IssueGeminiDisabled {
			t.Errorf("Planner() issues = %v, want gemini_disabled", res.Issues)
		}
		if len(res.Data.Days) != tc.wantDays {
			t.Errorf("Planner(%s..%s) days = %d, want %d", tc.start, tc.end, len(res.Data.Days), tc.wantDays)
		}
		for i, day := range res.Data.Days {
			if day.Date == "" || day.Theme == "" || len(day.MustDo) == 0 {
				t.Errorf("Planner() day %d incomplete: %+v", i, day)
			}
		}
	}
}

func TestSchedulerStubThreeOrderedBlocks(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-12")
	planner := a.Planner(context.Background(), trip, agents.ResearchContext{})

	res := a.Scheduler(context.Background(), trip, planner.Data, "")
	if len(res.Data.Days) != 3 {
		t.Fatalf("Scheduler() days = %d, want 3", len(res.Data.Days))
	}
	for _, day := range res.Data.Days {
		if len(day.Schedule) != 3 {
			t.Fatalf("Scheduler() day %s blocks = %d, want 3", day.Date, len(day.Schedule))
		}
		lastEnd := -1
		for _, block := range day.Schedule {
			start, err := models.ClockMinutes(block.StartTime)
			if err != nil {
				t.Fatalf("ClockMinutes(%q) error: %v", block.StartTime, err)
			}
			end, err := models.ClockMinutes(block.EndTime)
			if err != nil {
				t.Fatalf("ClockMinutes(%q) error: %v", block.EndTime, err)
			}
			if start >= end {
				t.Errorf("block %q has start %s >= end %s", block.Title, block.StartTime, block.EndTime)
			}
			if start < lastEnd {
				t.Errorf("block %q overlaps previous block", block.Title)
			}
			lastEnd = end
		}
	}
}

func scheduleDay(blocks ...[2]string) agents.SchedulerResult {
	day := models.DayPlan{Date: "2026-09-10"}
	for i, b := range blocks {
		day.Schedule = append(day.Schedule, models.ScheduleBlock{
			StartTime: b[0],
			EndTime:   b[1],
			Title:     "Block " + string(rune('A'+i)),
			BlockType: models.BlockActivity,
		})
	}
	return agents.SchedulerResult{Days: []models.DayPlan{day}}
}

func TestValidateCleanSchedule(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-10")

	res := a.Validate(trip, scheduleDay(
		[2]string{"09:00", "11:30"},
		[2]string{"12:00", "13:30"},
		[2]string{"14:00", "17:00"},
	))
	if len(res.Data.Validation) != 1 {
		t.Fatalf("Validate() findings = %d, want 1", len(res.Data.Validation))
	}
	f := res.Data.Validation[0]
	if f.Check != "schedule_consistency" || f.Status != models.FindingPass {
		t.Errorf("finding = %s/%s, want schedule_consistency/pass", f.Check, f.Status)
	}
	if len(res.Data.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Data.Warnings)
	}
}

func TestValidateOverlap(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-10")

	res := a.Validate(trip, scheduleDay(
		[2]string{"09:00", "11:30"},
		[2]string{"11:00", "13:00"},
	))
	if len(res.Data.Validation) != 1 {
		t.Fatalf("Validate() findings = %d, want 1: %+v", len(res.Data.Validation), res.Data.Validation)
	}
	f := res.Data.Validation[0]
	if f.Check != "overlap" || f.Status != models.FindingFail {
		t.Errorf("finding = %s/%s, want overlap/fail", f.Check, f.Status)
	}
	if len(res.Data.Warnings) != 1 {
		t.Errorf("warnings = %v, want failure summary", res.Data.Warnings)
	}
}

func TestValidateReversedBlockAdvancesCursor(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-10")

	// The reversed block fails time order; its nominal end (12:00) is
	// still the comparison point for the next block, so a 12:30 start
	// does not overlap.
	res := a.Validate(trip, scheduleDay(
		[2]string{"14:00", "12:00"},
		[2]string{"12:30", "13:30"},
	))
	if len(res.Data.Validation) != 1 {
		t.Fatalf("Validate() findings = %d, want 1: %+v", len(res.Data.Validation), res.Data.Validation)
	}
	f := res.Data.Validation[0]
	if f.Check != "block_time_order" || f.Status != models.FindingFail {
		t.Errorf("finding = %s/%s, want block_time_order/fail", f.Check, f.Status)
	}
}

func TestValidateOutsideDailyWindow(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-10") // window 09:00-20:00

	res := a.Validate(trip, scheduleDay([2]string{"06:00", "08:00"}))
	if len(res.Data.Validation) != 1 {
		t.Fatalf("Validate() findings = %d, want 1", len(res.Data.Validation))
	}
	f := res.Data.Validation[0]
	if f.Check != "daily_window" || f.Status != models.FindingWarn {
		t.Errorf("finding = %s/%s, want daily_window/warn", f.Check, f.Status)
	}
	for _, finding := range res.Data.Validation {
		if finding.Status == models.FindingFail {
			t.Errorf("unexpected fail finding: %+v", finding)
		}
	}
}

func TestBudgetStubSplit(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-12")

	res := a.Budget(context.Background(), trip, agents.SchedulerResult{}, agents.FoodResult{})
	b := res.Data

	wantCategories := []string{"Lodging", "Meals", "Activities", "Transit", "Buffer"}
	if len(b.Breakdown) != len(wantCategories) {
		t.Fatalf("Breakdown len = %d, want %d", len(b.Breakdown), len(wantCategories))
	}
	var sum float64
	for i, item := range b.Breakdown {
		if item.Category != wantCategories[i] {
			t.Errorf("Breakdown[%d].Category = %q, want %q", i, item.Category, wantCategories[i])
		}
		sum += item.EstimatedCost
	}
	if sum > 2000+1e-9 {
		t.Errorf("breakdown sum = %v, want <= 2000", sum)
	}
	if math.Abs(b.EstimatedTotal-sum) > 1e-9 {
		t.Errorf("EstimatedTotal = %v, want %v", b.EstimatedTotal, sum)
	}
	if len(b.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", b.Warnings)
	}
	if b.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", b.Currency)
	}
}

func TestFoodStubThreeMealsPerDay(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-11")
	trip.Food.DietaryRestrictions = []string{"vegetarian"}

	planner := a.Planner(context.Background(), trip, agents.ResearchContext{})
	schedule := a.Scheduler(context.Background(), trip, planner.Data, "")

	res := a.Food(context.Background(), trip, schedule.Data)
	if len(res.Data.Days) != 2 {
		t.Fatalf("Food() days = %d, want 2", len(res.Data.Days))
	}
	for _, day := range res.Data.Days {
		if len(day.Meals) != 3 {
			t.Fatalf("Food() day %s meals = %d, want 3", day.Date, len(day.Meals))
		}
		if !day.Meals[2].ReservationNeeded {
			t.Error("dinner should need a reservation")
		}
		for _, meal := range day.Meals {
			if len(meal.DietaryFit) != 1 || meal.DietaryFit[0] != "vegetarian" {
				t.Errorf("meal %q dietary fit = %v, want [vegetarian]", meal.Name, meal.DietaryFit)
			}
		}
	}
}

func TestResearchStubReport(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-12")

	res := a.Research(context.Background(), trip)
	if !res.Stubbed {
		t.Error("Research() without backend not stubbed")
	}
	if res.Data.Report == "" {
		t.Error("Research() report empty, want formatted text")
	}
}

func TestResearchConvertsBudgetCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("to"); got != "EUR" {
			t.Errorf("convert to = %q, want EUR", got)
		}
		fmt.Fprint(w, `{"success":true,"result":0.92}`)
	}))
	defer srv.Close()

	currency := providers.NewCurrencyProvider("", srv.URL, time.Minute, cache.New(nil), srv.Client())
	a := agents.New(nil, &providers.Clients{Currency: currency}, 20)
	trip := testTrip(t, "2026-09-10", "2026-09-12")

	res := a.Research(context.Background(), trip)
	if res.Data.USDRate != 0.92 {
		t.Fatalf("USDRate = %v, want 0.92", res.Data.USDRate)
	}
	if !strings.Contains(res.Data.Report, "1 USD is about 0.92 EUR") {
		t.Errorf("report missing exchange rate line:\n%s", res.Data.Report)
	}
}

func TestResearchSkipsRateWhenUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	currency := providers.NewCurrencyProvider("", srv.URL, time.Minute, cache.New(nil), srv.Client())
	a := agents.New(nil, &providers.Clients{Currency: currency}, 20)
	trip := testTrip(t, "2026-09-10", "2026-09-12")

	res := a.Research(context.Background(), trip)
	if res.Data.USDRate != 0 {
		t.Fatalf("USDRate = %v, want 0", res.Data.USDRate)
	}
	if strings.Contains(res.Data.Report, "Exchange rate") {
		t.Errorf("report carries exchange rate despite failed lookup:\n%s", res.Data.Report)
	}
}

func TestWeatherStubCoversEveryDay(t *testing.T) {
	a := stubAgents()
	trip := testTrip(t, "2026-09-10", "2026-09-13")

	res := a.Weather(context.Background(), trip)
	if len(res.Data.Weather.Daily) != 4 {
		t.Fatalf("Weather() daily = %d, want 4", len(res.Data.Weather.Daily))
	}
	if len(res.Data.Adjustments) == 0 {
		t.Error("Weather() adjustments empty, want rain jacket suggestion")
	}
}
