package handlers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"guessr/core"
)

var ordinalSuffixPattern = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)\b`)

// Layouts tried against a normalized guess, most specific first.
var dayLayouts = []string{
	"2006-01-02",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

var monthLayouts = []string{
	"January 2006",
	"Jan 2006",
	"2006-01",
}

// ParseTimeGuess parses a player's time guess into a Unix timestamp in
// milliseconds (UTC). Accepted formats include "2024-06-01", "Jan 15 2023",
// "March 2024" (anchored to the 15th) and a bare year (anchored to June 15).
// Returns core.ErrInvalidTimeGuess if the input matches none of them.
func ParseTimeGuess(input string) (int64, error) {
	normalized := strings.TrimSpace(input)
	normalized = strings.ReplaceAll(normalized, ",", " ")
	normalized = ordinalSuffixPattern.ReplaceAllString(normalized, "$1")
	fields := strings.Fields(normalized)
	for i, field := range fields {
		// Month names must be title-cased for time.Parse
		first := field[0]
		if (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z') {
			fields[i] = strings.ToUpper(field[:1]) + strings.ToLower(field[1:])
		}
	}
	normalized = strings.Join(fields, " ")
	if normalized == "" {
		return 0, fmt.Errorf("empty time guess: %w", core.ErrInvalidTimeGuess)
	}

	for _, layout := range dayLayouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed.UTC().UnixMilli(), nil
		}
	}

	// Month-only guesses anchor to the middle of the month
	for _, layout := range monthLayouts {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			anchored := time.Date(parsed.Year(), parsed.Month(), 15, 0, 0, 0, 0, time.UTC)
			return anchored.UnixMilli(), nil
		}
	}

	// Bare year anchors to the middle of the year
	if year, err := strconv.Atoi(normalized); err == nil && year >= 2000 && year <= 9999 {
		anchored := time.Date(year, time.June, 15, 0, 0, 0, 0, time.UTC)
		return anchored.UnixMilli(), nil
	}

	return 0, fmt.Errorf("unrecognized time guess %q: %w", input, core.ErrInvalidTimeGuess)
}
