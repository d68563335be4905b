package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripsmith/tripsmith/pkg/models"
)

const icsTimeLayout = "20060102T150405"

// BuildICS renders the itinerary's schedule blocks and meals as an
// iCalendar document. Lines are CRLF-terminated per RFC 5545; times are
// floating local times in the destination.
func BuildICS(it *models.Itinerary) string {
	var b strings.Builder
	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	writeLine("BEGIN:VCALENDAR")
	writeLine("VERSION:2.0")
	writeLine("PRODID:-//TripSmith//Itinerary//EN")
	writeLine("CALSCALE:GREGORIAN")

	if it.Result != nil {
		for _, day := range it.Result.Days {
			for i, block := range day.Schedule {
				writeEvent(writeLine, it.ID, day.Date, i, block.StartTime, block.EndTime,
					block.Title, block.Location, block.Description)
			}
			for i, meal := range day.Meals {
				end := addMinutes(meal.Time, 60)
				writeEvent(writeLine, it.ID, day.Date, 100+i, meal.Time, end,
					meal.Name, meal.Location, "")
			}
		}
	}

	writeLine("END:VCALENDAR")
	return b.String()
}

func writeEvent(writeLine func(string), itineraryID, date string, seq int, start, end, summary, location, description string) {
	startTS, err := parseLocal(date, start)
	if err != nil {
		return
	}
	endTS, err := parseLocal(date, end)
	if err != nil || !endTS.After(startTS) {
		endTS = startTS.Add(time.Hour)
	}

	writeLine("BEGIN:VEVENT")
	writeLine(fmt.Sprintf("UID:%s-%s-%d@tripsmith", itineraryID, date, seq))
	writeLine("DTSTAMP:" + time.Now().UTC().Format(icsTimeLayout) + "Z")
	writeLine("DTSTART:" + startTS.Format(icsTimeLayout))
	writeLine("DTEND:" + endTS.Format(icsTimeLayout))
	writeLine("SUMMARY:" + escapeICS(summary))
	if location != "" {
		writeLine("LOCATION:" + escapeICS(location))
	}
	if description != "" {
		writeLine("DESCRIPTION:" + escapeICS(description))
	}
	writeLine("END:VEVENT")
}

func parseLocal(date, clock string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04", date+" "+clock)
}

func addMinutes(clock string, mins int) string {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Add(time.Duration(mins) * time.Minute).Format("15:04")
}

// escapeICS escapes the characters RFC 5545 reserves in text values.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
