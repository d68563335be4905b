// Package models defines the domain types shared across the TripSmith
// control plane: trip requests, itineraries, schedules, and agent traces.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for trip dates.
const DateLayout = "2006-01-02"

// ── Trip Request ─────────────────────────────────────────────

type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type FoodPreferences struct {
	Cuisines            []string `json:"cuisines,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	AvoidIngredients    []string `json:"avoid_ingredients,omitempty"`
}

type ActivityPreferences struct {
	Interests          []string `json:"interests,omitempty"`
	Pace               string   `json:"pace,omitempty"` // slow | moderate | fast
	AccessibilityNeeds []string `json:"accessibility_needs,omitempty"`
}

type LodgingPreferences struct {
	LodgingType             string  `json:"lodging_type,omitempty"` // hotel | hostel | apartment | boutique | any
	MaxDistanceKMFromCenter float64 `json:"max_distance_km_from_center,omitempty"`
}

type BudgetPreferences struct {
	Currency     string  `json:"currency"`
	TotalBudget  float64 `json:"total_budget"`
	ComfortLevel string  `json:"comfort_level,omitempty"` // budget | midrange | luxury
}

// TripRequest is the single authoritative input to every pipeline stage.
// It is immutable once submitted.
type TripRequest struct {
	Destination    string              `json:"destination"`
	StartDate      string              `json:"start_date"` // YYYY-MM-DD
	EndDate        string              `json:"end_date"`   // YYYY-MM-DD
	Travelers      Travelers           `json:"travelers"`
	OriginLocation string              `json:"origin_location,omitempty"`
	Food           FoodPreferences     `json:"food_preferences,omitempty"`
	Activity       ActivityPreferences `json:"activity_preferences,omitempty"`
	Lodging        LodgingPreferences  `json:"lodging_preferences,omitempty"`
	Budget         BudgetPreferences   `json:"budget"`
	DailyStartTime string              `json:"daily_start_time,omitempty"` // HH:MM
	DailyEndTime   string              `json:"daily_end_time,omitempty"`   // HH:MM
	Notes          string              `json:"notes,omitempty"`
}

// Validate checks the structural invariants of a trip request and fills
// defaults for the optional fields the pipeline relies on.
func (t *TripRequest) Validate() error {
	if strings.TrimSpace(t.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	start, err := time.Parse(DateLayout, t.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(DateLayout, t.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end_date must not be before start_date")
	}
	if t.Travelers.Adults < 1 {
		return fmt.Errorf("travelers.adults must be at least 1")
	}
	if t.Travelers.Children < 0 {
		return fmt.Errorf("travelers.children must not be negative")
	}
	if t.Budget.TotalBudget < 0 {
		return fmt.Errorf("budget.total_budget must not be negative")
	}
	if t.Budget.Currency == "" {
		t.Budget.Currency = "USD"
	}
	if t.Budget.ComfortLevel == "" {
		t.Budget.ComfortLevel = "midrange"
	}
	if t.Activity.Pace == "" {
		t.Activity.Pace = "moderate"
	}
	if t.DailyStartTime == "" {
		t.DailyStartTime = "09:00"
	}
	if t.DailyEndTime == "" {
		t.DailyEndTime = "20:00"
	}
	ws, err := ClockMinutes(t.DailyStartTime)
	if err != nil {
		return fmt.Errorf("daily_start_time: %w", err)
	}
	we, err := ClockMinutes(t.DailyEndTime)
	if err != nil {
		return fmt.Errorf("daily_end_time: %w", err)
	}
	if ws >= we {
		return fmt.Errorf("daily_start_time must be before daily_end_time")
	}
	return nil
}

// Dates returns the parsed start and end dates. Call Validate first.
func (t *TripRequest) Dates() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, t.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(DateLayout, t.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// DayCount returns the number of calendar days in the trip, inclusive.
func (t *TripRequest) DayCount() int {
	start, end, err := t.Dates()
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// ClockMinutes parses an HH:MM clock string into minutes since midnight.
func ClockMinutes(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}
