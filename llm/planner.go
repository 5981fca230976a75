// Package llm is the planning boundary of the agent. A Planner turns a user
// utterance plus conversation context into a structured decision; it never
// touches the calendar itself.
package llm

import (
	"context"
	"time"

	session "github.com/schedbot/schedbot/session"
	tools "github.com/schedbot/schedbot/tools"
)

// DecisionKind is the closed set of things a planner may decide to do
type DecisionKind string

const (
	// DecisionToolCalls means execute the ordered tool calls
	DecisionToolCalls DecisionKind = "tool_calls"
	// DecisionClarify means ask the user the question in Text and stop
	DecisionClarify DecisionKind = "clarify"
	// DecisionReply means answer with Text directly, no tools involved
	DecisionReply DecisionKind = "reply"
)

// Decision is the planner's structured output for one turn
type Decision struct {
	Kind  DecisionKind
	Calls []tools.Call
	Text  string
}

// Request carries everything the planner may condition on
type Request struct {
	UserText string
	History  []session.Message
	Now      time.Time
	Timezone string
}

// Planner plans one conversational turn
type Planner interface {
	Plan(ctx context.Context, req Request) (*Decision, error)
}
