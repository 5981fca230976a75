// Package timeparse resolves natural-language temporal phrases against a
// reference "now" in the user's timezone. Resolution is deterministic: the
// same phrase, reference time and location always produce the same result.
// Phrases that cannot be pinned to a single instant or range without guessing
// fail with *AmbiguousTimeError so the caller can ask for clarification.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a half-open interval [Start, End)
type Range struct {
	Start time.Time
	End   time.Time
}

// AmbiguousTimeError means the phrase could not be resolved to a single
// instant or range without guessing. Never auto-resolved; the caller must
// ask the user.
type AmbiguousTimeError struct {
	Phrase string
	Reason string
}

func (e *AmbiguousTimeError) Error() string {
	return fmt.Sprintf("ambiguous time %q: %s", e.Phrase, e.Reason)
}

func ambiguous(phrase, reason string) error {
	return &AmbiguousTimeError{Phrase: phrase, Reason: reason}
}

var (
	clockWithMinutesRe = regexp.MustCompile(`(?:\bat\s+)?\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	clockAtHourRe      = regexp.MustCompile(`\bat\s+(\d{1,2})\s*(am|pm)?\b`)
	clockHourMeridRe   = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	relativeRe         = regexp.MustCompile(`^in\s+(\S+)\s+(minute|hour|day|week)s?$`)
)

var wordNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// namedTimes map daypart words onto a representative clock time
var namedTimes = map[string]clockTime{
	"noon":      {hour: 12},
	"midday":    {hour: 12},
	"midnight":  {hour: 0},
	"morning":   {hour: 9},
	"afternoon": {hour: 15},
	"evening":   {hour: 18},
	"night":     {hour: 20},
	"tonight":   {hour: 20},
}

type clockTime struct {
	hour   int
	minute int
}

// ResolveInstant resolves a phrase that names a single point in time, such as
// "tomorrow at 2pm" or "in two hours". A phrase carrying only a date and no
// time of day is ambiguous for an instant.
func ResolveInstant(phrase string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	normalized := normalize(phrase)
	if normalized == "" {
		return time.Time{}, ambiguous(phrase, "empty phrase")
	}

	if d, ok, err := parseRelative(normalized, phrase); err != nil {
		return time.Time{}, err
	} else if ok {
		return now.Add(d), nil
	}

	datePart, ct, hasTime := splitClock(normalized)
	if !hasTime {
		if ct, ok := namedTimeIn(datePart); ok {
			// daypart-only phrases like "tonight" still name a time
			datePart = stripNamedTime(datePart)
			return combine(datePart, ct, now, loc, phrase)
		}
		return time.Time{}, ambiguous(phrase, "no time of day given")
	}

	return combine(datePart, ct, now, loc, phrase)
}

// ResolveRange resolves a phrase into a query window. Date-only phrases cover
// whole days ("next week" is Monday through the following Monday); phrases
// with an explicit time produce a one-hour window starting at that instant.
func ResolveRange(phrase string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	normalized := normalize(phrase)
	if normalized == "" {
		return Range{}, ambiguous(phrase, "empty phrase")
	}

	if d, ok, err := parseRelative(normalized, phrase); err != nil {
		return Range{}, err
	} else if ok {
		start := now.Add(d)
		return Range{Start: start, End: start.Add(time.Hour)}, nil
	}

	datePart, ct, hasTime := splitClock(normalized)
	if !hasTime {
		if named, ok := namedTimeIn(datePart); ok {
			ct, hasTime = named, true
			datePart = stripNamedTime(datePart)
		}
	}

	if hasTime {
		start, err := combine(datePart, ct, now, loc, phrase)
		if err != nil {
			return Range{}, err
		}
		return Range{Start: start, End: start.Add(time.Hour)}, nil
	}

	dayStart, days, ok := parseDatePhrase(datePart, now, loc)
	if !ok {
		return Range{}, ambiguous(phrase, "unrecognized time period")
	}
	return Range{Start: dayStart, End: dayStart.AddDate(0, 0, days)}, nil
}

func normalize(phrase string) string {
	s := strings.ToLower(strings.TrimSpace(phrase))
	for _, prefix := range []string{"on ", "for ", "to "} {
		s = strings.TrimPrefix(s, prefix)
	}
	return strings.Join(strings.Fields(s), " ")
}

// parseRelative handles "in N minutes/hours/days/weeks"
func parseRelative(normalized, phrase string) (time.Duration, bool, error) {
	m := relativeRe.FindStringSubmatch(normalized)
	if m == nil {
		return 0, false, nil
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		var ok bool
		n, ok = wordNumbers[m[1]]
		if !ok {
			return 0, false, ambiguous(phrase, "unrecognized quantity "+m[1])
		}
	}

	switch m[2] {
	case "minute":
		return time.Duration(n) * time.Minute, true, nil
	case "hour":
		return time.Duration(n) * time.Hour, true, nil
	case "day":
		return time.Duration(n) * 24 * time.Hour, true, nil
	case "week":
		return time.Duration(n) * 7 * 24 * time.Hour, true, nil
	}
	return 0, false, ambiguous(phrase, "unrecognized unit "+m[2])
}

// splitClock extracts an explicit clock time from the phrase and returns the
// remainder as the date part. A bare number only counts as a clock time when
// anchored by "at", a colon, or an am/pm suffix.
func splitClock(normalized string) (datePart string, ct clockTime, ok bool) {
	type match struct {
		loc     []int
		hour    string
		minute  string
		meridim string
	}

	var m *match
	if sub := clockWithMinutesRe.FindStringSubmatchIndex(normalized); sub != nil {
		m = &match{
			loc:     sub[0:2],
			hour:    sliceAt(normalized, sub, 1),
			minute:  sliceAt(normalized, sub, 2),
			meridim: sliceAt(normalized, sub, 3),
		}
	} else if sub := clockAtHourRe.FindStringSubmatchIndex(normalized); sub != nil {
		m = &match{
			loc:     sub[0:2],
			hour:    sliceAt(normalized, sub, 1),
			meridim: sliceAt(normalized, sub, 2),
		}
	} else if sub := clockHourMeridRe.FindStringSubmatchIndex(normalized); sub != nil {
		m = &match{
			loc:     sub[0:2],
			hour:    sliceAt(normalized, sub, 1),
			meridim: sliceAt(normalized, sub, 2),
		}
	}
	if m == nil {
		return normalized, clockTime{}, false
	}

	hour, _ := strconv.Atoi(m.hour)
	minute := 0
	if m.minute != "" {
		minute, _ = strconv.Atoi(m.minute)
	}
	if hour > 23 || minute > 59 {
		return normalized, clockTime{}, false
	}

	switch m.meridim {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		// No meridiem. Hours 13..23 are unambiguous 24h clock; bare hours
		// 1..7 lean afternoon for calendar requests, 8..12 stay as written.
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}

	datePart = strings.TrimSpace(normalized[:m.loc[0]] + " " + normalized[m.loc[1]:])
	datePart = strings.TrimSuffix(strings.TrimSpace(datePart), " at")
	datePart = strings.TrimSpace(datePart)
	return datePart, clockTime{hour: hour, minute: minute}, true
}

func sliceAt(s string, sub []int, group int) string {
	lo, hi := sub[2*group], sub[2*group+1]
	if lo < 0 {
		return ""
	}
	return s[lo:hi]
}

func namedTimeIn(datePart string) (clockTime, bool) {
	for _, word := range strings.Fields(datePart) {
		if ct, ok := namedTimes[word]; ok {
			return ct, true
		}
	}
	return clockTime{}, false
}

func stripNamedTime(datePart string) string {
	fields := strings.Fields(datePart)
	kept := fields[:0]
	for _, word := range fields {
		if _, ok := namedTimes[word]; ok {
			if word == "tonight" {
				kept = append(kept, "today")
			}
			continue
		}
		if word == "this" || word == "in" || word == "the" {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func combine(datePart string, ct clockTime, now time.Time, loc *time.Location, phrase string) (time.Time, error) {
	dayStart := startOfDay(now, loc)
	if datePart != "" && datePart != "today" {
		var ok bool
		dayStart, _, ok = parseDatePhrase(datePart, now, loc)
		if !ok {
			return time.Time{}, ambiguous(phrase, "unrecognized date "+strconv.Quote(datePart))
		}
	}
	y, m, d := dayStart.Date()
	return time.Date(y, m, d, ct.hour, ct.minute, 0, 0, loc), nil
}

// parseDatePhrase resolves a date-only phrase to the start of its first day
// and its length in days
func parseDatePhrase(datePart string, now time.Time, loc *time.Location) (time.Time, int, bool) {
	today := startOfDay(now, loc)

	switch datePart {
	case "", "today":
		return today, 1, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), 1, true
	case "yesterday":
		return today.AddDate(0, 0, -1), 1, true
	case "day after tomorrow":
		return today.AddDate(0, 0, 2), 1, true
	case "this week":
		return mondayOf(today), 7, true
	case "next week":
		return mondayOf(today).AddDate(0, 0, 7), 7, true
	case "this weekend", "weekend":
		return nextWeekdayOrToday(today, time.Saturday), 2, true
	case "next weekend":
		return nextWeekdayOrToday(today, time.Saturday).AddDate(0, 0, 7), 2, true
	case "this month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return first, daysIn(first), true
	case "next month":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
		return first, daysIn(first), true
	}

	name := strings.TrimPrefix(datePart, "next ")
	name = strings.TrimPrefix(name, "this ")
	if wd, ok := weekdays[name]; ok {
		return nextWeekday(today, wd), 1, true
	}

	return time.Time{}, 0, false
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// nextWeekday returns the next strictly-future occurrence of wd
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func nextWeekdayOrToday(today time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, days)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
