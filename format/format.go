// Package format renders tool results and prompts as user-facing text.
// Every function is pure: the same input always yields the same string.
package format

import (
	"fmt"
	"strings"
	"time"

	tools "github.com/schedbot/schedbot/tools"
)

const (
	dayFormat  = "Mon, Jan 2"
	timeFormat = "3:04 PM"
)

// EventTime renders when an event happens. All-day events show the date
// only; timed events include start and end clock times.
func EventTime(start, end time.Time, allDay bool) string {
	if allDay {
		return start.Format(dayFormat) + " (all day)"
	}
	if end.IsZero() || !end.After(start) {
		return fmt.Sprintf("%s at %s", start.Format(dayFormat), start.Format(timeFormat))
	}
	if sameDay(start, end) {
		return fmt.Sprintf("%s, %s to %s", start.Format(dayFormat), start.Format(timeFormat), end.Format(timeFormat))
	}
	return fmt.Sprintf("%s at %s to %s at %s",
		start.Format(dayFormat), start.Format(timeFormat),
		end.Format(dayFormat), end.Format(timeFormat))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// EventLine renders one event as a single line
func EventLine(e tools.EventSummary) string {
	var b strings.Builder
	b.WriteString(e.Summary)
	b.WriteString(" on ")
	b.WriteString(EventTime(e.Start, e.End, e.AllDay))
	if e.Location != "" {
		b.WriteString(" at ")
		b.WriteString(e.Location)
	}
	return b.String()
}

// EventList renders events as a numbered list, or a no-events message
func EventList(events []tools.EventSummary) string {
	if len(events) == 0 {
		return "No events found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s:\n", len(events), plural(len(events), "event", "events"))
	for i, e := range events {
		fmt.Fprintf(&b, "%d. %s\n", i+1, EventLine(e))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Candidates renders the choices behind an ambiguous target so the user can
// pick one
func Candidates(query string, candidates []tools.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d events matching %q:\n", len(candidates), query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s on %s\n", i+1, c.Summary, EventTime(c.Start, time.Time{}, c.AllDay))
	}
	b.WriteString("Which one did you mean?")
	return b.String()
}

// ConfirmCreate asks the user to approve creating an event
func ConfirmCreate(summary string, start, end time.Time, allDay bool) string {
	return fmt.Sprintf("Create %q on %s? Reply yes to confirm or no to cancel.",
		summary, EventTime(start, end, allDay))
}

// ConfirmUpdate asks the user to approve changing an event
func ConfirmUpdate(e tools.EventSummary) string {
	return fmt.Sprintf("Update %q (%s)? Reply yes to confirm or no to cancel.",
		e.Summary, EventTime(e.Start, e.End, e.AllDay))
}

// ConfirmDelete asks the user to approve deleting an event
func ConfirmDelete(e tools.EventSummary) string {
	return fmt.Sprintf("Delete %q on %s? Reply yes to confirm or no to cancel.",
		e.Summary, EventTime(e.Start, e.End, e.AllDay))
}

// Created reports a successful event creation
func Created(e tools.EventSummary) string {
	return fmt.Sprintf("Created %q on %s.", e.Summary, EventTime(e.Start, e.End, e.AllDay))
}

// Updated reports a successful event update
func Updated(e tools.EventSummary) string {
	return fmt.Sprintf("Updated %q, now %s.", e.Summary, EventTime(e.Start, e.End, e.AllDay))
}

// Deleted reports a successful event deletion
func Deleted(e tools.EventSummary) string {
	return fmt.Sprintf("Deleted %q.", e.Summary)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
