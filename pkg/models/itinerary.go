package models

import "time"

// ── Itinerary Record ─────────────────────────────────────────

type ItineraryStatus string

const (
	ItineraryPending    ItineraryStatus = "pending"
	ItineraryQueued     ItineraryStatus = "queued"
	ItineraryProcessing ItineraryStatus = "processing"
	ItineraryCompleted  ItineraryStatus = "completed"
	ItineraryFailed     ItineraryStatus = "failed"
)

// Itinerary is the stored record of a trip request and its generated result.
type Itinerary struct {
	ID           string             `json:"id" db:"id"`
	Status       ItineraryStatus    `json:"status" db:"status"`
	Request      TripRequest        `json:"request"`
	Result       *ItineraryResponse `json:"result,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// ── Schedule ─────────────────────────────────────────────────

type BlockType string

const (
	BlockActivity BlockType = "activity"
	BlockMeal     BlockType = "meal"
	BlockTravel   BlockType = "travel"
	BlockRest     BlockType = "rest"
	BlockBuffer   BlockType = "buffer"
)

// ScheduleBlock is one timed entry in a day's schedule.
// Blocks within a day are ordered by start time and must not overlap;
// violations are flagged by the validator, not rejected.
type ScheduleBlock struct {
	StartTime       string    `json:"start_time"` // HH:MM
	EndTime         string    `json:"end_time"`   // HH:MM
	Title           string    `json:"title"`
	Location        string    `json:"location,omitempty"`
	Description     string    `json:"description,omitempty"`
	BlockType       BlockType `json:"block_type"`
	TravelTimeMins  int       `json:"travel_time_mins"`
	BufferMins      int       `json:"buffer_mins"`
	MicroActivities []string  `json:"micro_activities,omitempty"`
}

type Meal struct {
	Time              string   `json:"time"` // HH:MM
	Name              string   `json:"name"`
	Cuisine           string   `json:"cuisine,omitempty"`
	DietaryFit        []string `json:"dietary_fit,omitempty"`
	Location          string   `json:"location,omitempty"`
	ReservationNeeded bool     `json:"reservation_needed"`
	EstimatedCost     float64  `json:"estimated_cost,omitempty"`
}

// DayPlan merges the scheduler's timed blocks with the food agent's
// meals for one calendar day.
type DayPlan struct {
	Date           string          `json:"date"`
	Title          string          `json:"title,omitempty"`
	WeatherSummary string          `json:"weather_summary,omitempty"`
	Contingencies  []string        `json:"contingencies,omitempty"`
	Schedule       []ScheduleBlock `json:"schedule"`
	Meals          []Meal          `json:"meals,omitempty"`
	Notes          []string        `json:"notes,omitempty"`
}

// ── Weather ──────────────────────────────────────────────────

type WeatherDay struct {
	Date                string  `json:"date"`
	HighC               float64 `json:"high_c"`
	LowC                float64 `json:"low_c"`
	PrecipitationChance float64 `json:"precipitation_chance"`
	Summary             string  `json:"summary,omitempty"`
}

type WeatherReport struct {
	ForecastSource string       `json:"forecast_source,omitempty"`
	Overview       string       `json:"overview,omitempty"`
	Risks          []string     `json:"risks,omitempty"`
	Daily          []WeatherDay `json:"daily,omitempty"`
}

// ── Attractions & Hotels ─────────────────────────────────────

type Attraction struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Score           float64  `json:"score,omitempty"`
	DistanceKM      float64  `json:"distance_km,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	Address         string   `json:"address,omitempty"`
	UniqueFeatures  string   `json:"unique_features,omitempty"`
	LimitedTimeNote string   `json:"limited_time_note,omitempty"`
	Website         string   `json:"website,omitempty"`
}

type Hotel struct {
	Name       string  `json:"name"`
	Rating     float64 `json:"rating,omitempty"`
	Address    string  `json:"address,omitempty"`
	PriceLevel string  `json:"price_level,omitempty"`
}

// ── Budget ───────────────────────────────────────────────────

type BudgetBreakdown struct {
	Category      string  `json:"category"`
	EstimatedCost float64 `json:"estimated_cost"`
}

type BudgetSummary struct {
	Currency       string            `json:"currency"`
	TotalBudget    float64           `json:"total_budget"`
	EstimatedTotal float64           `json:"estimated_total"`
	Breakdown      []BudgetBreakdown `json:"breakdown"`
	Warnings       []string          `json:"warnings,omitempty"`
	DowngradePlan  []string          `json:"downgrade_plan,omitempty"`
}

// ── Validation ───────────────────────────────────────────────

type FindingStatus string

const (
	FindingPass FindingStatus = "pass"
	FindingWarn FindingStatus = "warn"
	FindingFail FindingStatus = "fail"
)

// ValidationFinding is one result from the schedule consistency checks.
type ValidationFinding struct {
	Check   string        `json:"check"`
	Status  FindingStatus `json:"status"`
	Details string        `json:"details"`
}

// ── Travel Options ───────────────────────────────────────────

type TravelOption struct {
	Type          string   `json:"type"` // hotel | car | flight
	Name          string   `json:"name"`
	Provider      string   `json:"provider,omitempty"`
	PriceEstimate string   `json:"price_estimate,omitempty"`
	Details       string   `json:"details,omitempty"`
	BookingURL    string   `json:"booking_url,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	Features      []string `json:"features,omitempty"`
}

type TransportMode struct {
	Mode         string   `json:"mode"`
	Description  string   `json:"description,omitempty"`
	CostEstimate string   `json:"cost_estimate,omitempty"`
	Pros         []string `json:"pros,omitempty"`
	Cons         []string `json:"cons,omitempty"`
}

type TransportAnalysis struct {
	Options         []TransportMode `json:"options,omitempty"`
	RecommendedMode string          `json:"recommended_mode,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// BookingLinks holds pre-filled deep links to booking platforms.
type BookingLinks struct {
	Flights string `json:"flights,omitempty"`
	Hotels  string `json:"hotels,omitempty"`
	Stays   string `json:"stays,omitempty"`
	Transit string `json:"transit,omitempty"`
}

// ── Final Response ───────────────────────────────────────────

// ItineraryResponse is the aggregate of all stage outputs. It is created
// once per successful pipeline run and is immutable thereafter; edits
// produce new block-level values, never a new response object.
type ItineraryResponse struct {
	ItineraryID       string              `json:"itinerary_id"`
	Summary           string              `json:"summary"`
	Days              []DayPlan           `json:"days"`
	Weather           WeatherReport       `json:"weather"`
	Attractions       []Attraction        `json:"attractions"`
	PackingList       []string            `json:"packing_list"`
	Budget            BudgetSummary       `json:"budget"`
	Validation        []ValidationFinding `json:"validation"`
	Warnings          []string            `json:"warnings,omitempty"`
	TravelOptions     []TravelOption      `json:"travel_options,omitempty"`
	TransportAnalysis *TransportAnalysis  `json:"transport_analysis,omitempty"`
	BookingLinks      *BookingLinks       `json:"booking_links,omitempty"`
	GeneratedAt       time.Time           `json:"generated_at"`
}
