package normalize

import (
	"strings"
	"time"
)

// CanonicalDateLayout is the output format for every date field.
const CanonicalDateLayout = "01/02/2006"

// twoDigitYearPivot: 2-digit years below it land in the 2000s, the rest in
// the 1900s. "45" -> 2045, "89" -> 1989.
const twoDigitYearPivot = 50

// Input layouts are tried in order; the first successful parse wins, so the
// US month-first layouts come before the day-first ones.
var dateLayouts = []string{
	"01/02/2006",
	"01-02-2006",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"01/02/06",
	"01-02-06",
	"02-01-06",
	"02/01/06",
}

// NormalizeDate re-renders any recognized date string as MM/DD/YYYY. An
// unrecognized value is returned unchanged so bad input is surfaced by
// validation rather than silently rewritten.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if usesTwoDigitYear(layout) {
			t = fixCentury(t)
		}
		return t.Format(CanonicalDateLayout)
	}
	return raw
}

func usesTwoDigitYear(layout string) bool {
	return strings.HasSuffix(layout, "06") && !strings.HasSuffix(layout, "2006")
}

// fixCentury applies the pivot to a date parsed from a 2-digit-year layout.
// time.Parse pivots at 69; re-derive the century from the pivot here.
func fixCentury(t time.Time) time.Time {
	yy := t.Year() % 100
	var year int
	if yy < twoDigitYearPivot {
		year = 2000 + yy
	} else {
		year = 1900 + yy
	}
	if year == t.Year() {
		return t
	}
	return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
