package agents

import (
	"fmt"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// ValidatorResult is the outcome of the schedule consistency rules.
type ValidatorResult struct {
	Validation []models.ValidationFinding `json:"validation"`
	Warnings   []string                   `json:"warnings"`
}

// Validate runs deterministic consistency rules over the schedule; no
// generation backend is ever used. Blocks are checked in the order
// given, not re-sorted, and last_end advances past every block even when
// the block itself is malformed.
func (a *Agents) Validate(trip *models.TripRequest, schedule SchedulerResult) Result[ValidatorResult] {
	windowStart, err := models.ClockMinutes(trip.DailyStartTime)
	if err != nil {
		windowStart = 0
	}
	windowEnd, err := models.ClockMinutes(trip.DailyEndTime)
	if err != nil {
		windowEnd = 24 * 60
	}

	var findings []models.ValidationFinding
	for _, day := range schedule.Days {
		lastEnd := -1
		for _, block := range day.Schedule {
			start, startErr := models.ClockMinutes(block.StartTime)
			end, endErr := models.ClockMinutes(block.EndTime)
			if startErr != nil || endErr != nil {
				findings = append(findings, models.ValidationFinding{
					Check:   "block_time_format",
					Status:  models.FindingFail,
					Details: fmt.Sprintf("%s: block %q has unparseable times %s-%s", day.Date, block.Title, block.StartTime, block.EndTime),
				})
				continue
			}

			if start >= end {
				findings = append(findings, models.ValidationFinding{
					Check:   "block_time_order",
					Status:  models.FindingFail,
					Details: fmt.Sprintf("%s: block %q ends at or before it starts (%s-%s)", day.Date, block.Title, block.StartTime, block.EndTime),
				})
			}
			if start < windowStart || end > windowEnd {
				findings = append(findings, models.ValidationFinding{
					Check:   "daily_window",
					Status:  models.FindingWarn,
					Details: fmt.Sprintf("%s: block %q (%s-%s) falls outside the daily window %s-%s", day.Date, block.Title, block.StartTime, block.EndTime, trip.DailyStartTime, trip.DailyEndTime),
				})
			}
			if lastEnd >= 0 && start < lastEnd {
				findings = append(findings, models.ValidationFinding{
					Check:   "overlap",
					Status:  models.FindingFail,
					Details: fmt.Sprintf("%s: block %q starts before the previous block ends", day.Date, block.Title),
				})
			}
			// The nominal end advances the cursor even for
			// order-violating blocks.
			lastEnd = end
		}
	}

	result := ValidatorResult{Validation: findings, Warnings: []string{}}
	if len(findings) == 0 {
		result.Validation = []models.ValidationFinding{{
			Check:   "schedule_consistency",
			Status:  models.FindingPass,
			Details: "all schedule blocks are ordered and within the daily window",
		}}
		return Result[ValidatorResult]{Data: result}
	}

	var failures int
	for _, f := range findings {
		if f.Status == models.FindingFail {
			failures++
		}
	}
	if failures > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Schedule validation recorded %d failing check(s).", failures))
	}
	return Result[ValidatorResult]{Data: result}
}
