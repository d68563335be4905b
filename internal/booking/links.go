// Package booking produces pre-filled deep links to booking platforms
// and calendar exports for a generated itinerary.
package booking

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tripsmith/tripsmith/pkg/models"
)

// Links builds deep links to flight, hotel, and transit search pages
// pre-filled from the trip request. No external calls are made; the
// links are plain URL templates.
func Links(trip *models.TripRequest) *models.BookingLinks {
	dest := url.QueryEscape(trip.Destination)
	origin := url.QueryEscape(trip.OriginLocation)

	links := &models.BookingLinks{
		Hotels: fmt.Sprintf("https://www.google.com/travel/hotels/%s?checkin=%s&checkout=%s", dest, trip.StartDate, trip.EndDate),
		Stays: fmt.Sprintf("https://www.booking.com/searchresults.html?ss=%s&checkin=%s&checkout=%s&group_adults=%d&group_children=%d",
			dest, trip.StartDate, trip.EndDate, trip.Travelers.Adults, trip.Travelers.Children),
	}

	if trip.OriginLocation != "" {
		links.Flights = fmt.Sprintf("https://www.google.com/travel/flights?q=%s",
			url.QueryEscape(fmt.Sprintf("flights from %s to %s on %s", trip.OriginLocation, trip.Destination, trip.StartDate)))
		links.Transit = fmt.Sprintf("https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s", origin, dest)
	} else {
		links.Flights = fmt.Sprintf("https://www.skyscanner.net/transport/flights-to/%s/", skyscannerSlug(trip.Destination))
	}
	return links
}

// skyscannerSlug lowercases and hyphenates a destination name.
func skyscannerSlug(destination string) string {
	slug := strings.ToLower(strings.TrimSpace(destination))
	slug = strings.ReplaceAll(slug, ",", "")
	return strings.ReplaceAll(slug, " ", "-")
}
