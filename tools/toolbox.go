// Package tools is the closed set of calendar operations the agent may
// invoke. Every tool validates its arguments, resolves fuzzy targets to
// exactly one event before mutating, and returns a structured result.
package tools

import (
	"time"

	zap "go.uber.org/zap"

	google "github.com/schedbot/schedbot/google"
)

// Tool names understood by Execute. The set is closed: a call naming
// anything else is rejected.
const (
	ToolCreateEvent  = "create_event"
	ToolSearchEvents = "search_events"
	ToolUpdateEvent  = "update_event"
	ToolDeleteEvent  = "delete_event"
	ToolResolveTime  = "resolve_time"
)

// Declaration describes one tool to the language model
type Declaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Call is a single requested tool invocation
type Call struct {
	Name      string
	Arguments map[string]any
}

// Mutating reports whether executing the call would change calendar state
func (c Call) Mutating() bool {
	switch c.Name {
	case ToolCreateEvent, ToolUpdateEvent, ToolDeleteEvent:
		return true
	}
	return false
}

// Env carries the per-turn execution context every tool needs: whose
// calendar, what time it is and in which timezone phrases resolve.
type Env struct {
	UserID     string
	CalendarID string
	Now        time.Time
	Location   *time.Location
}

// EventSummary is the tool-level view of a calendar event
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Result is the outcome of one tool execution. Exactly the fields relevant
// to the executed tool are populated.
type Result struct {
	Tool    string
	Event   *EventSummary
	Events  []EventSummary
	Deleted bool
	Start   time.Time
	End     time.Time
	Message string
}

// Toolbox executes tool calls against a calendar backend
type Toolbox struct {
	logger   *zap.Logger
	services google.ServiceProvider

	// searchHorizon bounds how far ahead fuzzy target resolution looks
	searchHorizon  time.Duration
	maxResults     int64
	requestTimeout time.Duration
}

// NewToolbox creates a toolbox where every user shares one calendar service
func NewToolbox(logger *zap.Logger, calSvc google.CalendarService, maxResults int) *Toolbox {
	return NewToolboxWithProvider(logger, google.StaticServiceProvider{Service: calSvc}, maxResults)
}

// NewToolboxWithProvider creates a toolbox that picks the calendar backend
// per user through the given provider
func NewToolboxWithProvider(logger *zap.Logger, services google.ServiceProvider, maxResults int) *Toolbox {
	if maxResults < 1 {
		maxResults = 25
	}
	return &Toolbox{
		logger:         logger,
		services:       services,
		searchHorizon:  90 * 24 * time.Hour,
		maxResults:     int64(maxResults),
		requestTimeout: 10 * time.Second,
	}
}

// WithRequestTimeout bounds each backend call made by the toolbox
func (t *Toolbox) WithRequestTimeout(d time.Duration) *Toolbox {
	if d > 0 {
		t.requestTimeout = d
	}
	return t
}

// Declarations returns the schema of every tool, in a stable order
func Declarations() []Declaration {
	return []Declaration{
		{
			Name:        ToolCreateEvent,
			Description: "Create a new calendar event",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{
						"type":        "string",
						"description": "Event title (required)",
					},
					"start_time": map[string]any{
						"type":        "string",
						"description": "Start time in RFC3339 format (required, e.g., 2024-05-01T14:00:00-04:00)",
					},
					"end_time": map[string]any{
						"type":        "string",
						"description": "End time in RFC3339 format, must be after start_time. Required unless duration_minutes is given.",
					},
					"duration_minutes": map[string]any{
						"type":        "integer",
						"description": "Event length in minutes, as an alternative to end_time",
						"minimum":     1,
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Event description. Optional.",
					},
					"location": map[string]any{
						"type":        "string",
						"description": "Event location. Optional.",
					},
					"attendees": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "string",
						},
						"description": "Attendee email addresses. Optional.",
					},
					"all_day": map[string]any{
						"type":        "boolean",
						"description": "Whether this is an all-day event. Optional.",
					},
				},
				"required": []string{"summary", "start_time"},
			},
		},
		{
			Name:        ToolSearchEvents,
			Description: "Search calendar events by text and time window",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Free text to match against event titles. Optional.",
					},
					"time_min": map[string]any{
						"type":        "string",
						"description": "Window start in RFC3339 format. Defaults to now.",
					},
					"time_max": map[string]any{
						"type":        "string",
						"description": "Window end in RFC3339 format. Defaults to 7 days after time_min.",
					},
					"max_results": map[string]any{
						"type":        "integer",
						"description": "Maximum number of events to return",
						"minimum":     1,
						"maximum":     100,
					},
				},
			},
		},
		{
			Name:        ToolUpdateEvent,
			Description: "Update an existing calendar event. Identify it by event_id, or by a query that matches exactly one event.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{
						"type":        "string",
						"description": "ID of the event to update. Preferred when known.",
					},
					"query": map[string]any{
						"type":        "string",
						"description": "Text identifying the event when event_id is unknown",
					},
					"summary": map[string]any{
						"type":        "string",
						"description": "New event title. Optional.",
					},
					"start_time": map[string]any{
						"type":        "string",
						"description": "New start time in RFC3339 format. Optional.",
					},
					"end_time": map[string]any{
						"type":        "string",
						"description": "New end time in RFC3339 format. Optional.",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "New event description. Optional.",
					},
					"location": map[string]any{
						"type":        "string",
						"description": "New event location. Optional.",
					},
				},
			},
		},
		{
			Name:        ToolDeleteEvent,
			Description: "Delete a calendar event. Identify it by event_id, or by a query that matches exactly one event.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{
						"type":        "string",
						"description": "ID of the event to delete. Preferred when known.",
					},
					"query": map[string]any{
						"type":        "string",
						"description": "Text identifying the event when event_id is unknown",
					},
				},
			},
		},
		{
			Name:        ToolResolveTime,
			Description: "Resolve a natural language time phrase to concrete timestamps in the user's timezone",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"phrase": map[string]any{
						"type":        "string",
						"description": "The time phrase to resolve, e.g. 'tomorrow at 2pm' (required)",
					},
				},
				"required": []string{"phrase"},
			},
		},
	}
}
