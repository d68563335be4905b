package pipeline

import (
	"sort"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// Packing thresholds, in degrees C and precipitation probability.
const (
	packHotHighC   = 28
	packColdLowC   = 8
	packRainChance = 0.4
)

var packingBase = []string{
	"Comfortable walking shoes",
	"Travel documents and ID",
	"Phone charger and power bank",
	"Reusable water bottle",
	"Day pack",
}

var (
	packingHeat = []string{"Sunscreen", "Sun hat", "Light breathable layers"}
	packingCold = []string{"Warm jacket", "Gloves and beanie", "Thermal layers"}
	packingRain = []string{"Rain jacket", "Compact umbrella"}
)

// BuildPackingList derives a packing list from the forecast and trip
// preferences: a fixed base set, weather-triggered items per forecast
// day, and pace/accessibility extras. The result is the sorted,
// de-duplicated union of everything triggered.
func BuildPackingList(trip *models.TripRequest, weather models.WeatherReport) []string {
	items := map[string]bool{}
	for _, item := range packingBase {
		items[item] = true
	}

	for _, day := range weather.Daily {
		if day.HighC >= packHotHighC {
			for _, item := range packingHeat {
				items[item] = true
			}
		}
		if day.LowC <= packColdLowC {
			for _, item := range packingCold {
				items[item] = true
			}
		}
		if day.PrecipitationChance >= packRainChance {
			for _, item := range packingRain {
				items[item] = true
			}
		}
	}

	if trip.Activity.Pace == "fast" {
		items["Energy snacks"] = true
	}
	if len(trip.Activity.AccessibilityNeeds) > 0 {
		items["Accessibility aids"] = true
	}

	out := make([]string, 0, len(items))
	for item := range items {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
