package tools

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a tool argument that failed validation before any
// backend call was attempted
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Tool, e.Field, e.Reason)
}

func validationErr(tool, field, reason string) error {
	return &ValidationError{Tool: tool, Field: field, Reason: reason}
}

// Candidate is one event a fuzzy target description could refer to
type Candidate struct {
	EventID string
	Summary string
	Start   time.Time
	AllDay  bool
}

// AmbiguousTargetError means a mutation's target description matched more
// than one event. The mutation must not proceed; the candidates are surfaced
// so the user can pick one.
type AmbiguousTargetError struct {
	Query      string
	Candidates []Candidate
}

func (e *AmbiguousTargetError) Error() string {
	summaries := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		summaries = append(summaries, c.Summary)
	}
	return fmt.Sprintf("%q matches %d events: %s", e.Query, len(e.Candidates), strings.Join(summaries, ", "))
}

// NoMatchError means a target description matched no events at all
type NoMatchError struct {
	Query string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no events match %q", e.Query)
}
