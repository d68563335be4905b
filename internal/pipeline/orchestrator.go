// Package pipeline sequences the stage agents into a full itinerary
// generation run: research, planning, two concurrent enrichment pairs,
// budgeting, and final assembly. Every stage invocation leaves an
// append-only trace trail, so any decision in a finished itinerary can
// be reconstructed from its traces.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tripsmith/tripsmith/internal/agents"
	"github.com/tripsmith/tripsmith/internal/booking"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/internal/store"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// ProgressFunc receives ordered stage events. status is "started" or
// "done". Implementations may be slow or broken; the orchestrator
// isolates every invocation.
type ProgressFunc func(stage, status, detail string)

// Orchestrator owns the lifecycle of a single generation run.
type Orchestrator struct {
	agents *agents.Agents
	store  store.Store
	gemini *gemini.Client
	cfg    config.PipelineConfig
}

// New creates an orchestrator with injected dependencies.
func New(a *agents.Agents, s store.Store, client *gemini.Client, cfg config.PipelineConfig) *Orchestrator {
	return &Orchestrator{agents: a, store: s, gemini: client, cfg: cfg}
}

// Generate runs the full pipeline for an itinerary record. It fails
// fast with ErrNotConfigured when no generation backend exists; once
// started, stage failures degrade to stubs and the run always produces
// a structurally complete response or a single top-level error.
func (o *Orchestrator) Generate(ctx context.Context, it *models.Itinerary, progress ProgressFunc) (resp *models.ItineraryResponse, err error) {
	if o.gemini == nil || !o.gemini.Enabled() {
		return nil, gemini.ErrNotConfigured
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		if err != nil {
			o.recordTrace(ctx, it.ID, "pipeline", "failed", nil, nil, "", []string{err.Error()})
			o.markFailed(ctx, it, err)
		}
	}()

	trip := &it.Request
	tripJSON, _ := json.Marshal(trip)

	it.Status = models.ItineraryProcessing
	if updateErr := o.store.UpdateItinerary(ctx, it); updateErr != nil {
		return nil, fmt.Errorf("mark processing: %w", updateErr)
	}

	log.Info().
		Str("itinerary_id", it.ID).
		Str("destination", trip.Destination).
		Int("days", trip.DayCount()).
		Msg("Pipeline run started")

	// Stage 1: research, sequential.
	emit(progress, "research", "started", trip.Destination)
	research := o.agents.Research(ctx, trip)
	recordStage(o, ctx, it.ID, "research", tripJSON, research)
	emit(progress, "research", "done", "")

	sleepCtx(ctx, o.cfg.ResearchPause)

	// Stage 2: planner, sequential.
	emit(progress, "planner", "started", "")
	planner := o.agents.Planner(ctx, trip, research.Data)
	recordStage(o, ctx, it.ID, "planner", tripJSON, planner)
	emit(progress, "planner", "done", fmt.Sprintf("%d days", len(planner.Data.Days)))

	sleepCtx(ctx, o.cfg.PlannerPause)

	// Stage 3: weather and attractions, concurrent. Each branch is
	// isolated; a panic in one degrades that branch to its safe
	// default without touching the other.
	emit(progress, "weather", "started", "")
	emit(progress, "attractions", "started", "")
	var weather agents.Result[agents.WeatherResult]
	var attractions agents.Result[agents.AttractionsResult]

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		weather = runIsolated(o, ctx, it.ID, "weather",
			agents.WeatherResult{Weather: models.WeatherReport{}, Adjustments: []string{}},
			func() agents.Result[agents.WeatherResult] { return o.agents.Weather(ctx, trip) })
		recordStage(o, ctx, it.ID, "weather", tripJSON, weather)
		return nil
	})
	g.Go(func() error {
		attractions = runIsolated(o, ctx, it.ID, "attractions",
			agents.AttractionsResult{Attractions: []models.Attraction{}},
			func() agents.Result[agents.AttractionsResult] { return o.agents.Attractions(ctx, trip) })
		recordStage(o, ctx, it.ID, "attractions", tripJSON, attractions)
		return nil
	})
	_ = g.Wait()
	emit(progress, "weather", "done", weather.Data.Weather.Overview)
	emit(progress, "attractions", "done", fmt.Sprintf("%d attractions", len(attractions.Data.Attractions)))

	// Stage 4: scheduler, sequential.
	emit(progress, "scheduler", "started", "")
	schedule := o.agents.Scheduler(ctx, trip, planner.Data, weather.Data.Weather.Overview)
	recordStage(o, ctx, it.ID, "scheduler", tripJSON, schedule)
	emit(progress, "scheduler", "done", "")

	sleepCtx(ctx, o.cfg.DetailPause)

	// Stage 5: food and validator, concurrent.
	emit(progress, "food", "started", "")
	emit(progress, "validator", "started", "")
	var food agents.Result[agents.FoodResult]
	var validation agents.Result[agents.ValidatorResult]

	g2, _ := errgroup.WithContext(ctx)
	g2.Go(func() error {
		food = runIsolated(o, ctx, it.ID, "food",
			agents.FoodResult{Days: []agents.FoodDay{}},
			func() agents.Result[agents.FoodResult] { return o.agents.Food(ctx, trip, schedule.Data) })
		recordStage(o, ctx, it.ID, "food", tripJSON, food)
		return nil
	})
	g2.Go(func() error {
		validation = runIsolated(o, ctx, it.ID, "validator",
			agents.ValidatorResult{Validation: []models.ValidationFinding{}, Warnings: []string{}},
			func() agents.Result[agents.ValidatorResult] { return o.agents.Validate(trip, schedule.Data) })
		recordStage(o, ctx, it.ID, "validator", tripJSON, validation)
		return nil
	})
	_ = g2.Wait()
	emit(progress, "food", "done", "")
	emit(progress, "validator", "done", fmt.Sprintf("%d findings", len(validation.Data.Validation)))

	sleepCtx(ctx, o.cfg.FinalPause)

	// Stage 6: budget, sequential.
	emit(progress, "budget", "started", "")
	budget := o.agents.Budget(ctx, trip, schedule.Data, food.Data)
	recordStage(o, ctx, it.ID, "budget", tripJSON, budget)
	emit(progress, "budget", "done", "")

	// Final assembly.
	emit(progress, "assembly", "started", "")
	resp = o.assemble(it.ID, trip, research.Data, schedule.Data, food.Data,
		weather.Data, attractions.Data, budget.Data, validation.Data)

	it.Status = models.ItineraryCompleted
	it.Result = resp
	it.ErrorMessage = ""
	if updateErr := o.store.UpdateItinerary(ctx, it); updateErr != nil {
		log.Warn().Err(updateErr).Str("itinerary_id", it.ID).Msg("Failed to persist completed itinerary")
	}
	emit(progress, "assembly", "done", "")

	log.Info().Str("itinerary_id", it.ID).Int("days", len(resp.Days)).Msg("Pipeline run completed")
	return resp, nil
}

// assemble merges stage outputs into the final response: schedule days
// and meals joined by date, packing list derived from the forecast, and
// booking deep links attached.
func (o *Orchestrator) assemble(
	itineraryID string,
	trip *models.TripRequest,
	research agents.ResearchContext,
	schedule agents.SchedulerResult,
	food agents.FoodResult,
	weather agents.WeatherResult,
	attractions agents.AttractionsResult,
	budget models.BudgetSummary,
	validation agents.ValidatorResult,
) *models.ItineraryResponse {
	mealsByDate := make(map[string][]models.Meal, len(food.Days))
	for _, day := range food.Days {
		mealsByDate[day.Date] = day.Meals
	}
	forecastByDate := make(map[string]models.WeatherDay, len(weather.Weather.Daily))
	for _, day := range weather.Weather.Daily {
		forecastByDate[day.Date] = day
	}

	days := make([]models.DayPlan, len(schedule.Days))
	copy(days, schedule.Days)
	for i := range days {
		if meals, ok := mealsByDate[days[i].Date]; ok {
			days[i].Meals = meals
		}
		if fc, ok := forecastByDate[days[i].Date]; ok && days[i].WeatherSummary == "" {
			days[i].WeatherSummary = fc.Summary
		}
		if len(days[i].Contingencies) == 0 {
			days[i].Contingencies = weather.Adjustments
		}
		if days[i].Title == "" {
			days[i].Title = fmt.Sprintf("%s - Day %d", trip.Destination, i+1)
		}
	}

	warnings := append([]string{}, validation.Warnings...)
	warnings = append(warnings, weather.Adjustments...)

	return &models.ItineraryResponse{
		ItineraryID: itineraryID,
		Summary: fmt.Sprintf("%d-day trip to %s, %s to %s",
			trip.DayCount(), trip.Destination, trip.StartDate, trip.EndDate),
		Days:              days,
		Weather:           weather.Weather,
		Attractions:       attractions.Attractions,
		PackingList:       BuildPackingList(trip, weather.Weather),
		Budget:            budget,
		Validation:        validation.Validation,
		Warnings:          warnings,
		TravelOptions:     research.TravelOptions,
		TransportAnalysis: research.Transport,
		BookingLinks:      booking.Links(trip),
		GeneratedAt:       time.Now().UTC(),
	}
}

// runIsolated executes a stage branch, converting a panic into the
// branch's safe default plus a "failed" trace entry.
func runIsolated[T any](o *Orchestrator, ctx context.Context, itineraryID, agentName string, fallback T, fn func() agents.Result[T]) (res agents.Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			detail := fmt.Sprintf("stage panic: %v", r)
			log.Error().Str("agent", agentName).Str("itinerary_id", itineraryID).Msg(detail)
			o.recordTrace(ctx, itineraryID, agentName, "failed", nil, nil, "", []string{detail})
			res = agents.Result[T]{Data: fallback, Issues: []string{detail}, Stubbed: true}
		}
	}()
	return fn()
}

// recordStage writes the draft and final trace rows for one stage. Draft
// rows keep the raw model text so unparseable attempts stay auditable.
func recordStage[T any](o *Orchestrator, ctx context.Context, itineraryID, agentName string, input json.RawMessage, res agents.Result[T]) {
	for _, draft := range res.Drafts {
		o.recordTrace(ctx, itineraryID, agentName, draft.Step, input, draft.Output, draft.Raw, draft.Issues)
	}
	output, err := json.Marshal(res.Data)
	if err != nil {
		output = nil
	}
	o.recordTrace(ctx, itineraryID, agentName, "final", input, output, "", res.Issues)
}

// recordTrace is fire and forget; trace loss is logged, never fatal.
func (o *Orchestrator) recordTrace(ctx context.Context, itineraryID, agentName, stepName string, input, output json.RawMessage, rawText string, issues []string) {
	trace := &models.AgentTrace{
		ID:          uuid.New().String(),
		ItineraryID: itineraryID,
		AgentName:   agentName,
		StepName:    stepName,
		InputJSON:   input,
		OutputJSON:  output,
		RawText:     rawText,
		Issues:      issues,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.store.CreateTrace(ctx, trace); err != nil {
		log.Warn().Err(err).Str("agent", agentName).Str("step", stepName).Msg("Failed to record trace")
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, it *models.Itinerary, cause error) {
	it.Status = models.ItineraryFailed
	it.ErrorMessage = cause.Error()
	if err := o.store.UpdateItinerary(ctx, it); err != nil {
		log.Warn().Err(err).Str("itinerary_id", it.ID).Msg("Failed to persist failed itinerary")
	}
}

// emit delivers a progress event, swallowing callback panics.
func emit(progress ProgressFunc, stage, status, detail string) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("stage", stage).Msgf("Progress callback panicked: %v", r)
		}
	}()
	progress(stage, status, detail)
}

// sleepCtx pauses between generation bursts without outliving ctx.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
