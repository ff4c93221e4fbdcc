package application

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The portal renders dates either as machine-readable datetime attributes or
// as natural-language text ("viernes 13 de marzo de 2026"). The month table
// covers Spanish with English fallbacks since the portal serves both locales.
var monthsByName = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June,
	"julio": time.July, "agosto": time.August, "septiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	clockTimeRe   = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	naturalDateRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:de\s+)?([a-zA-Záéíóúñ]+)\.?(?:\s+(?:de\s+)?(\d{4}))?`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// machineDatetimeLayouts are tried in order against time[datetime] values.
var machineDatetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseMachineDatetime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range machineDatetimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// parseNaturalDate extracts a calendar date from free text. A missing year
// resolves to the one that puts the date within the coming year relative to
// now, since reservations are always for upcoming trips.
func parseNaturalDate(text string, now time.Time) (time.Time, bool) {
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 && month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
		}
	}

	for _, m := range naturalDateRe.FindAllStringSubmatch(text, -1) {
		month, ok := monthsByName[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}

		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), true
		}

		candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
		if candidate.Before(now.AddDate(0, 0, -1)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate, true
	}

	return time.Time{}, false
}

// parseClockTimes returns every hh:mm occurrence in the text, in order of
// appearance as minutes-of-day.
func parseClockTimes(text string) []int {
	var times []int
	for _, m := range clockTimeRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		times = append(times, hour*60+minute)
	}
	return times
}

// combineDateAndTime merges a calendar date with minutes-of-day.
func combineDateAndTime(date time.Time, minutesOfDay int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutesOfDay/60, minutesOfDay%60, 0, 0, date.Location())
}
