package agents

import (
	"context"
	"encoding/json"

	"github.com/tripsmith/tripsmith/internal/gemini"
	"github.com/tripsmith/tripsmith/pkg/models"
)

// The edit family operates on itinerary fragments sent by the client
// instead of stored records. Nothing here touches the store; the client
// owns the itinerary state and applies the returned fragment itself.

// SwapRequest asks for alternatives to a single schedule block.
type SwapRequest struct {
	CurrentBlock models.ScheduleBlock `json:"current_block"`
	Destination  string               `json:"destination"`
	DayDate      string               `json:"day_date,omitempty"`
	Preferences  string               `json:"preferences,omitempty"`
}

// BlockAlternative is a candidate replacement for a schedule block,
// keeping the original time slot.
type BlockAlternative struct {
	models.ScheduleBlock
	Why string `json:"why,omitempty"`
}

// SwapResult carries up to three alternatives plus the block they would
// replace, so the client can render a side-by-side choice.
type SwapResult struct {
	Alternatives []BlockAlternative   `json:"alternatives"`
	Original     models.ScheduleBlock `json:"original"`
}

type swapDoc struct {
	Alternatives []BlockAlternative `json:"alternatives"`
}

var swapSchema = gemini.MustSchemaFor[swapDoc]("swap")

const swapPrompt = `You are a travel planning assistant. The user wants ALTERNATIVE suggestions
to replace a schedule block in their itinerary. Generate exactly 3
different alternatives as JSON.

Current block they want to replace:
- Time: {{.StartTime}} - {{.EndTime}}
- Title: {{.Title}}
- Location: {{.Location}}
- Description: {{.Description}}
- Type: {{.BlockType}}

Context:
- Destination: {{.Destination}}
- Date: {{.DayDate}}
- User preferences: {{.Preferences}}

Requirements:
- Keep the SAME time slot ({{.StartTime}} - {{.EndTime}})
- Each alternative should be meaningfully DIFFERENT from the current and from each other
- Include a mix: one popular option, one hidden gem, one unique option
- Match the block type ({{.BlockType}}) unless it is a meal, then suggest different cuisines
- Give each alternative a short "why" explaining the appeal`

// SwapBlock generates up to three alternatives for one schedule block.
// Alternatives always carry complete fields; anything the model omitted
// is filled from the original block.
func (a *Agents) SwapBlock(ctx context.Context, req SwapRequest) (SwapResult, error) {
	res := SwapResult{Original: req.CurrentBlock}

	if !a.aiEnabled() {
		return res, gemini.ErrNotConfigured
	}

	prompt, err := gemini.RenderPrompt("swap", swapPrompt, map[string]any{
		"StartTime":   req.CurrentBlock.StartTime,
		"EndTime":     req.CurrentBlock.EndTime,
		"Title":       req.CurrentBlock.Title,
		"Location":    req.CurrentBlock.Location,
		"Description": req.CurrentBlock.Description,
		"BlockType":   req.CurrentBlock.BlockType,
		"Destination": req.Destination,
		"DayDate":     req.DayDate,
		"Preferences": req.Preferences,
	})
	if err != nil {
		return res, err
	}

	gen, err := generate[swapDoc](ctx, a.Gemini, "swap", prompt, swapSchema)
	if err != nil {
		return res, err
	}

	alts := gen.Data.Alternatives
	if len(alts) > 3 {
		alts = alts[:3]
	}
	for i := range alts {
		fillBlockDefaults(&alts[i].ScheduleBlock, req.CurrentBlock, req.Destination)
	}
	res.Alternatives = alts
	return res, nil
}

// RegenerateDayRequest asks for a fresh schedule for one day.
type RegenerateDayRequest struct {
	Day            models.DayPlan `json:"day"`
	Destination    string         `json:"destination"`
	Preferences    string         `json:"preferences,omitempty"`
	WeatherSummary string         `json:"weather_summary,omitempty"`
}

type regeneratedDayDoc struct {
	Date           string                 `json:"date"`
	Title          string                 `json:"title"`
	WeatherSummary string                 `json:"weather_summary,omitempty"`
	Schedule       []models.ScheduleBlock `json:"schedule"`
}

var regenerateDaySchema = gemini.MustSchemaFor[regeneratedDayDoc]("regenerate_day")

const regenerateDayPrompt = `You are a travel planning assistant. Regenerate a completely new schedule
for this day of the trip, keeping the same date but creating fresh
activities. Respond with JSON only.

Current day:
- Date: {{.Date}}
- Title: {{.Title}}
- Weather: {{.WeatherSummary}}
- Current schedule: {{.Schedule}}

Context:
- Destination: {{.Destination}}
- User preferences: {{.Preferences}}

Requirements:
- Same date, same general time window
- Create a DIFFERENT and fresh schedule, do not repeat the same activities
- Include a mix of activities, meals, and rest
- Each block needs start_time, end_time (HH:MM), title, location, description, block_type`

// RegenerateDay produces a fresh day plan for the same date. Fields the
// model leaves blank fall back to the submitted day.
func (a *Agents) RegenerateDay(ctx context.Context, req RegenerateDayRequest) (models.DayPlan, error) {
	if !a.aiEnabled() {
		return models.DayPlan{}, gemini.ErrNotConfigured
	}

	scheduleJSON, _ := json.Marshal(req.Day.Schedule)
	prompt, err := gemini.RenderPrompt("regenerate_day", regenerateDayPrompt, map[string]any{
		"Date":           req.Day.Date,
		"Title":          req.Day.Title,
		"WeatherSummary": req.WeatherSummary,
		"Schedule":       string(scheduleJSON),
		"Destination":    req.Destination,
		"Preferences":    req.Preferences,
	})
	if err != nil {
		return models.DayPlan{}, err
	}

	gen, err := generate[regeneratedDayDoc](ctx, a.Gemini, "regenerate_day", prompt, regenerateDaySchema)
	if err != nil {
		return models.DayPlan{}, err
	}

	day := models.DayPlan{
		Date:           gen.Data.Date,
		Title:          gen.Data.Title,
		WeatherSummary: gen.Data.WeatherSummary,
		Schedule:       gen.Data.Schedule,
	}
	if day.Date == "" {
		day.Date = req.Day.Date
	}
	if day.Title == "" {
		day.Title = "Refreshed itinerary"
	}
	if day.WeatherSummary == "" {
		day.WeatherSummary = req.WeatherSummary
	}
	return day, nil
}

// EditBlockRequest asks for one block to be rewritten per a free-form
// instruction.
type EditBlockRequest struct {
	CurrentBlock models.ScheduleBlock `json:"current_block"`
	Destination  string               `json:"destination"`
	Instruction  string               `json:"instruction"`
}

// EditBlockResult is the rewritten block. When the model's answer never
// became valid, Block echoes the original and Warning says why.
type EditBlockResult struct {
	Block    models.ScheduleBlock  `json:"block"`
	Original *models.ScheduleBlock `json:"original,omitempty"`
	Warning  string                `json:"warning,omitempty"`
}

var editBlockSchema = gemini.MustSchemaFor[models.ScheduleBlock]("edit_block")

const editBlockPrompt = `Edit this schedule block based on the instruction. Respond with the
updated block as JSON only.

Block:
- Time: {{.StartTime}} - {{.EndTime}}
- Title: {{.Title}}
- Location: {{.Location}}
- Description: {{.Description}}
- Type: {{.BlockType}}

Destination: {{.Destination}}
Instruction: {{.Instruction}}`

// EditBlock rewrites a single block per the instruction. An answer that
// stays schema-invalid after repair is not applied; the caller gets the
// original block back with a warning instead of a half-valid edit.
func (a *Agents) EditBlock(ctx context.Context, req EditBlockRequest) (EditBlockResult, error) {
	if !a.aiEnabled() {
		return EditBlockResult{}, gemini.ErrNotConfigured
	}

	prompt, err := gemini.RenderPrompt("edit_block", editBlockPrompt, map[string]any{
		"StartTime":   req.CurrentBlock.StartTime,
		"EndTime":     req.CurrentBlock.EndTime,
		"Title":       req.CurrentBlock.Title,
		"Location":    req.CurrentBlock.Location,
		"Description": req.CurrentBlock.Description,
		"BlockType":   req.CurrentBlock.BlockType,
		"Destination": req.Destination,
		"Instruction": req.Instruction,
	})
	if err != nil {
		return EditBlockResult{}, err
	}

	gen, err := generate[models.ScheduleBlock](ctx, a.Gemini, "edit_block", prompt, editBlockSchema)
	if err != nil {
		return EditBlockResult{}, err
	}
	if len(gen.Issues) > 0 {
		return EditBlockResult{Block: req.CurrentBlock, Warning: "AI response invalid"}, nil
	}

	original := req.CurrentBlock
	return EditBlockResult{Block: gen.Data, Original: &original}, nil
}

// fillBlockDefaults completes a model-produced block from the block it
// replaces, so partial answers still render as a full schedule entry.
func fillBlockDefaults(block *models.ScheduleBlock, original models.ScheduleBlock, destination string) {
	if block.StartTime == "" {
		block.StartTime = original.StartTime
	}
	if block.EndTime == "" {
		block.EndTime = original.EndTime
	}
	if block.Title == "" {
		block.Title = "Alternative activity"
	}
	if block.Location == "" {
		block.Location = destination
	}
	if block.BlockType == "" {
		block.BlockType = original.BlockType
	}
}
