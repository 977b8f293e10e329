// Package dates parses free-text event dates, validates them against a
// configured window, and expands date-aware search phrase variants.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// parseLayouts are tried in order. time.Parse rejects impossible
// calendar dates (Feb 30, month 13), which is exactly the behavior we
// want from ParseEventDate.
var parseLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
}

var datePattern = regexp.MustCompile(
	`(?i)\b(?:(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\.?\s+\d{1,2},?\s+\d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{4})\b`,
)

// ParseEventDate parses a single free-text date. It accepts long-form
// ("March 15, 2025"), numeric slash/dash forms, and ISO form, and
// returns nil for anything unparsable or calendar-impossible.
func ParseEventDate(text string) *time.Time {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, ".")

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ExtractDates finds and parses every recognizable date in free text.
// Unparsable matches (e.g. February 30) are dropped.
func ExtractDates(text string) []time.Time {
	var out []time.Time
	for _, m := range datePattern.FindAllString(text, -1) {
		m = strings.ReplaceAll(m, ".", "")
		if t := ParseEventDate(m); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// Window is the configured validity interval for event dates. A nil
// bound is open; a zero-value Window accepts every date.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// IsValidEventDate reports whether date falls inside the window,
// compared at day granularity with both bounds inclusive.
func (w Window) IsValidEventDate(date time.Time) bool {
	d := truncateDay(date)
	if w.Start != nil && d.Before(truncateDay(*w.Start)) {
		return false
	}
	if w.End != nil && d.After(truncateDay(*w.End)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateDateAwareVariants expands a base phrase with forward-looking
// month names: a monthly period yields the next calendar month, a
// quarterly period the three months of the next calendar quarter. Both
// long and abbreviated month-name phrasings are produced, deduplicated
// (May abbreviates to itself), in deterministic order. Unknown periods
// return just the base phrase.
func GenerateDateAwareVariants(base, period string, now time.Time) []string {
	var months []time.Time
	switch strings.ToLower(period) {
	case "monthly":
		months = []time.Time{firstOfMonth(now).AddDate(0, 1, 0)}
	case "quarterly":
		start := nextQuarterStart(now)
		for i := 0; i < 3; i++ {
			months = append(months, start.AddDate(0, i, 0))
		}
	default:
		return []string{base}
	}

	seen := make(map[string]bool)
	var out []string
	for _, m := range months {
		year := m.Year()
		for _, name := range []string{m.Month().String(), m.Format("Jan")} {
			phrase := fmt.Sprintf("%s %s %d", base, name, year)
			if !seen[phrase] {
				seen[phrase] = true
				out = append(out, phrase)
			}
		}
	}
	return out
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextQuarterStart(t time.Time) time.Time {
	quarter := (int(t.Month()) - 1) / 3
	startMonth := time.Month(quarter*3 + 1)
	return time.Date(t.Year(), startMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 3, 0)
}
