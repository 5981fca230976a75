package tools

import (
	"context"
	"fmt"
	"time"

	zap "go.uber.org/zap"
	calendar "google.golang.org/api/calendar/v3"

	google "github.com/schedbot/schedbot/google"
	timeparse "github.com/schedbot/schedbot/timeparse"
)

// Execute runs a single tool call and returns its structured result.
// Mutating calls only proceed against an unambiguous target; the caller is
// responsible for any confirmation policy before invoking them.
func (t *Toolbox) Execute(ctx context.Context, env Env, call Call) (*Result, error) {
	t.logger.Info("executing tool",
		zap.String("component", "toolbox"),
		zap.String("tool", call.Name),
		zap.String("calendar_id", env.CalendarID))

	if call.Name == ToolResolveTime {
		return t.handleResolveTime(env, call.Arguments)
	}

	svc, err := t.services.ServiceFor(ctx, env.UserID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	switch call.Name {
	case ToolCreateEvent:
		return t.handleCreateEvent(ctx, svc, env, call.Arguments)
	case ToolSearchEvents:
		return t.handleSearchEvents(ctx, svc, env, call.Arguments)
	case ToolUpdateEvent:
		return t.handleUpdateEvent(ctx, svc, env, call.Arguments)
	case ToolDeleteEvent:
		return t.handleDeleteEvent(ctx, svc, env, call.Arguments)
	default:
		return nil, validationErr(call.Name, "name", "unknown tool")
	}
}

func (t *Toolbox) handleCreateEvent(ctx context.Context, svc google.CalendarService, env Env, args map[string]any) (*Result, error) {
	summary := stringArg(args, "summary")
	if summary == "" {
		return nil, validationErr(ToolCreateEvent, "summary", "required")
	}

	start, err := timeArg(args, "start_time")
	if err != nil {
		return nil, validationErr(ToolCreateEvent, "start_time", err.Error())
	}
	if start.IsZero() {
		return nil, validationErr(ToolCreateEvent, "start_time", "required")
	}

	end, err := endOrDuration(args, start)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, validationErr(ToolCreateEvent, "end_time", "must be after start_time")
	}

	allDay, _ := args["all_day"].(bool)
	event := &calendar.Event{Summary: summary}
	if allDay {
		event.Start = &calendar.EventDateTime{Date: start.In(env.Location).Format("2006-01-02")}
		event.End = &calendar.EventDateTime{Date: end.In(env.Location).Format("2006-01-02")}
	} else {
		event.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)}
	}

	if desc := stringArg(args, "description"); desc != "" {
		event.Description = desc
	}
	if loc := stringArg(args, "location"); loc != "" {
		event.Location = loc
	}
	if raw, ok := args["attendees"].([]any); ok {
		for _, a := range raw {
			if email, ok := a.(string); ok && email != "" {
				event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
			}
		}
	}

	created, err := svc.CreateEvent(ctx, env.CalendarID, event)
	if err != nil {
		return nil, err
	}

	es := toEventSummary(created, env.Location)
	return &Result{
		Tool:    ToolCreateEvent,
		Event:   &es,
		Message: fmt.Sprintf("Created %q", created.Summary),
	}, nil
}

func (t *Toolbox) handleSearchEvents(ctx context.Context, svc google.CalendarService, env Env, args map[string]any) (*Result, error) {
	query := stringArg(args, "query")

	timeMin := env.Now
	if v, err := timeArg(args, "time_min"); err != nil {
		return nil, validationErr(ToolSearchEvents, "time_min", err.Error())
	} else if !v.IsZero() {
		timeMin = v
	}

	timeMax := timeMin.Add(7 * 24 * time.Hour)
	if v, err := timeArg(args, "time_max"); err != nil {
		return nil, validationErr(ToolSearchEvents, "time_max", err.Error())
	} else if !v.IsZero() {
		timeMax = v
	}
	if !timeMax.After(timeMin) {
		return nil, validationErr(ToolSearchEvents, "time_max", "must be after time_min")
	}

	maxResults := t.maxResults
	if v, ok := numberArg(args, "max_results"); ok && v > 0 && v <= 100 {
		maxResults = v
	}

	var (
		events []*calendar.Event
		err    error
	)
	if query != "" {
		events, err = svc.SearchEvents(ctx, env.CalendarID, query, timeMin, timeMax, maxResults)
	} else {
		events, err = svc.ListEvents(ctx, env.CalendarID, timeMin, timeMax, maxResults)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, e := range events {
		summaries = append(summaries, toEventSummary(e, env.Location))
	}

	return &Result{
		Tool:    ToolSearchEvents,
		Events:  summaries,
		Message: fmt.Sprintf("Found %d events", len(summaries)),
	}, nil
}

func (t *Toolbox) handleUpdateEvent(ctx context.Context, svc google.CalendarService, env Env, args map[string]any) (*Result, error) {
	target, err := t.resolveTarget(ctx, svc, env, ToolUpdateEvent, args)
	if err != nil {
		return nil, err
	}

	changed := false
	if summary := stringArg(args, "summary"); summary != "" {
		target.Summary = summary
		changed = true
	}
	if desc := stringArg(args, "description"); desc != "" {
		target.Description = desc
		changed = true
	}
	if loc := stringArg(args, "location"); loc != "" {
		target.Location = loc
		changed = true
	}

	start, err := timeArg(args, "start_time")
	if err != nil {
		return nil, validationErr(ToolUpdateEvent, "start_time", err.Error())
	}
	end, err := timeArg(args, "end_time")
	if err != nil {
		return nil, validationErr(ToolUpdateEvent, "end_time", err.Error())
	}
	if !start.IsZero() {
		target.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		changed = true
	}
	if !end.IsZero() {
		target.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)}
		changed = true
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return nil, validationErr(ToolUpdateEvent, "end_time", "must be after start_time")
	}
	if !changed {
		return nil, validationErr(ToolUpdateEvent, "arguments", "no fields to update")
	}

	updated, err := svc.UpdateEvent(ctx, env.CalendarID, target.Id, target)
	if err != nil {
		return nil, err
	}

	es := toEventSummary(updated, env.Location)
	return &Result{
		Tool:    ToolUpdateEvent,
		Event:   &es,
		Message: fmt.Sprintf("Updated %q", updated.Summary),
	}, nil
}

func (t *Toolbox) handleDeleteEvent(ctx context.Context, svc google.CalendarService, env Env, args map[string]any) (*Result, error) {
	target, err := t.resolveTarget(ctx, svc, env, ToolDeleteEvent, args)
	if err != nil {
		return nil, err
	}

	if err := svc.DeleteEvent(ctx, env.CalendarID, target.Id); err != nil {
		return nil, err
	}

	es := toEventSummary(target, env.Location)
	return &Result{
		Tool:    ToolDeleteEvent,
		Event:   &es,
		Deleted: true,
		Message: fmt.Sprintf("Deleted %q", target.Summary),
	}, nil
}

func (t *Toolbox) handleResolveTime(env Env, args map[string]any) (*Result, error) {
	phrase := stringArg(args, "phrase")
	if phrase == "" {
		return nil, validationErr(ToolResolveTime, "phrase", "required")
	}

	r, err := timeparse.ResolveRange(phrase, env.Now, env.Location)
	if err != nil {
		return nil, err
	}

	return &Result{
		Tool:    ToolResolveTime,
		Start:   r.Start,
		End:     r.End,
		Message: fmt.Sprintf("%q resolves to %s through %s", phrase, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)),
	}, nil
}

// ResolveTarget resolves the event a mutation refers to without performing
// the mutation, so a confirmation prompt can name the exact event.
func (t *Toolbox) ResolveTarget(ctx context.Context, env Env, tool string, args map[string]any) (*EventSummary, error) {
	svc, err := t.services.ServiceFor(ctx, env.UserID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, t.requestTimeout)
	defer cancel()

	ev, err := t.resolveTarget(ctx, svc, env, tool, args)
	if err != nil {
		return nil, err
	}
	es := toEventSummary(ev, env.Location)
	return &es, nil
}

// resolveTarget pins a mutation to exactly one event. An explicit event_id is
// fetched directly; a query must match exactly one event within the search
// horizon, otherwise the mutation is refused.
func (t *Toolbox) resolveTarget(ctx context.Context, svc google.CalendarService, env Env, tool string, args map[string]any) (*calendar.Event, error) {
	if eventID := stringArg(args, "event_id"); eventID != "" {
		return svc.GetEvent(ctx, env.CalendarID, eventID)
	}

	query := stringArg(args, "query")
	if query == "" {
		return nil, validationErr(tool, "event_id", "event_id or query is required")
	}

	timeMin := env.Now.Add(-24 * time.Hour)
	timeMax := env.Now.Add(t.searchHorizon)
	matches, err := svc.SearchEvents(ctx, env.CalendarID, query, timeMin, timeMax, t.maxResults)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, &NoMatchError{Query: query}
	case 1:
		return matches[0], nil
	default:
		candidates := make([]Candidate, 0, len(matches))
		for _, m := range matches {
			es := toEventSummary(m, env.Location)
			candidates = append(candidates, Candidate{
				EventID: es.ID,
				Summary: es.Summary,
				Start:   es.Start,
				AllDay:  es.AllDay,
			})
		}
		return nil, &AmbiguousTargetError{Query: query, Candidates: candidates}
	}
}

// endOrDuration determines the event end: an explicit end_time wins, a
// duration_minutes argument is the alternative.
func endOrDuration(args map[string]any, start time.Time) (time.Time, error) {
	end, err := timeArg(args, "end_time")
	if err != nil {
		return time.Time{}, validationErr(ToolCreateEvent, "end_time", err.Error())
	}
	if !end.IsZero() {
		return end, nil
	}
	if mins, ok := numberArg(args, "duration_minutes"); ok {
		if mins < 1 {
			return time.Time{}, validationErr(ToolCreateEvent, "duration_minutes", "must be at least 1")
		}
		return start.Add(time.Duration(mins) * time.Minute), nil
	}
	return time.Time{}, validationErr(ToolCreateEvent, "end_time", "end_time or duration_minutes is required")
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// numberArg tolerates both float64 (JSON decoding) and int
func numberArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// timeArg parses an optional RFC3339 argument. A missing or empty value
// yields the zero time with no error.
func timeArg(args map[string]any, key string) (time.Time, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("not RFC3339: %q", v)
	}
	return parsed, nil
}

func toEventSummary(e *calendar.Event, loc *time.Location) EventSummary {
	es := EventSummary{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
	}
	if loc == nil {
		loc = time.UTC
	}
	if e.Start != nil {
		es.Start, es.AllDay = parseEventTime(e.Start, loc)
	}
	if e.End != nil {
		es.End, _ = parseEventTime(e.End, loc)
	}
	return es
}

func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if edt.DateTime != "" {
		if ts, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return ts.In(loc), false
		}
	}
	if edt.Date != "" {
		if d, err := time.ParseInLocation("2006-01-02", edt.Date, loc); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
