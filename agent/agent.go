// Package agent is the conversational core: it serializes turns per user,
// plans them, executes tool calls under the confirmation policy and produces
// the reply text.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	zap "go.uber.org/zap"

	format "github.com/schedbot/schedbot/format"
	google "github.com/schedbot/schedbot/google"
	llm "github.com/schedbot/schedbot/llm"
	session "github.com/schedbot/schedbot/session"
	timeparse "github.com/schedbot/schedbot/timeparse"
	tools "github.com/schedbot/schedbot/tools"
)

// Options tune agent behavior
type Options struct {
	CalendarID      string
	DefaultTimezone string
	TurnTimeout     time.Duration
	ConfirmTTL      time.Duration
}

// Agent handles one user message at a time per user
type Agent struct {
	logger  *zap.Logger
	planner llm.Planner
	toolbox *tools.Toolbox
	store   session.Store
	opts    Options
	locks   *userLocks
	now     func() time.Time
}

// New creates an agent. Zero option fields get working defaults.
func New(logger *zap.Logger, planner llm.Planner, toolbox *tools.Toolbox, store session.Store, opts Options) *Agent {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 45 * time.Second
	}
	if opts.ConfirmTTL <= 0 {
		opts.ConfirmTTL = 5 * time.Minute
	}
	return &Agent{
		logger:  logger,
		planner: planner,
		toolbox: toolbox,
		store:   store,
		opts:    opts,
		locks:   newUserLocks(),
		now:     time.Now,
	}
}

// HandleMessage processes one user message and returns the reply. Messages
// from the same user are handled strictly one at a time; the turn as a whole
// is bounded by the configured timeout.
func (a *Agent) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	l := a.locks.lock(userID)
	defer l.Unlock()

	ctx, cancel := context.WithTimeout(ctx, a.opts.TurnTimeout)
	defer cancel()

	prefs, err := a.store.Preferences(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading preferences: %w", err)
	}
	loc := a.location(prefs)
	env := tools.Env{
		UserID:     userID,
		CalendarID: a.opts.CalendarID,
		Now:        a.now().In(loc),
		Location:   loc,
	}

	a.logger.Info("handling message",
		zap.String("component", "agent"),
		zap.String("user_id", userID))

	reply, err := a.handleTurn(ctx, userID, text, env)
	if err != nil {
		a.logger.Error("turn failed",
			zap.String("component", "agent"),
			zap.String("user_id", userID),
			zap.Error(err))
		return "", err
	}

	if err := a.store.AppendHistory(ctx, userID,
		session.Message{Role: session.RoleUser, Text: text, At: env.Now},
		session.Message{Role: session.RoleAssistant, Text: reply, At: env.Now},
	); err != nil {
		return "", fmt.Errorf("recording history: %w", err)
	}
	return reply, nil
}

func (a *Agent) location(prefs session.Preferences) *time.Location {
	name := prefs.Timezone
	if name == "" {
		name = a.opts.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		a.logger.Warn("bad stored timezone, using UTC",
			zap.String("component", "agent"),
			zap.String("timezone", name))
		return time.UTC
	}
	return loc
}

func (a *Agent) handleTurn(ctx context.Context, userID, text string, env tools.Env) (string, error) {
	pending, err := a.store.PendingAction(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading pending action: %w", err)
	}
	if pending != nil {
		switch {
		case isAffirmation(text):
			return a.executePending(ctx, userID, pending, env)
		case isNegation(text):
			if err := a.store.ClearPendingAction(ctx, userID); err != nil {
				return "", err
			}
			return "Okay, I won't do that.", nil
		default:
			// the user moved on, the proposal no longer stands
			if err := a.store.ClearPendingAction(ctx, userID); err != nil {
				return "", err
			}
		}
	}

	history, err := a.store.History(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	decision, err := a.planner.Plan(ctx, llm.Request{
		UserText: text,
		History:  history,
		Now:      env.Now,
		Timezone: env.Location.String(),
	})
	if err != nil {
		return "", fmt.Errorf("planning turn: %w", err)
	}

	switch decision.Kind {
	case llm.DecisionClarify, llm.DecisionReply:
		return decision.Text, nil
	case llm.DecisionToolCalls:
		return a.runCalls(ctx, userID, decision.Calls, env)
	default:
		return "", fmt.Errorf("unknown decision kind %q", decision.Kind)
	}
}

// runCalls executes planned calls in order. Read-only calls run immediately.
// A mutating call is never executed directly: it is staged as a pending
// action and the turn ends with a confirmation prompt.
func (a *Agent) runCalls(ctx context.Context, userID string, calls []tools.Call, env tools.Env) (string, error) {
	var parts []string
	for _, call := range calls {
		if call.Mutating() {
			prompt, err := a.stageMutation(ctx, userID, call, env)
			if err != nil {
				return a.explainToolError(err)
			}
			parts = append(parts, prompt)
			return strings.Join(parts, "\n\n"), nil
		}

		res, err := a.executeWithRetry(ctx, env, call)
		if err != nil {
			return a.explainToolError(err)
		}
		parts = append(parts, a.renderResult(res))
	}
	if len(parts) == 0 {
		return "Nothing to do.", nil
	}
	return strings.Join(parts, "\n\n"), nil
}

func (a *Agent) renderResult(res *tools.Result) string {
	switch res.Tool {
	case tools.ToolSearchEvents:
		return format.EventList(res.Events)
	default:
		return res.Message
	}
}

// stageMutation resolves the mutation's target, stores it as the user's
// pending action and returns the confirmation prompt
func (a *Agent) stageMutation(ctx context.Context, userID string, call tools.Call, env tools.Env) (string, error) {
	action := &session.PendingAction{
		Arguments: call.Arguments,
		CreatedAt: env.Now,
		ExpiresAt: env.Now.Add(a.opts.ConfirmTTL),
	}

	var prompt string
	switch call.Name {
	case tools.ToolCreateEvent:
		summary, start, end, allDay, err := createPreview(call.Arguments)
		if err != nil {
			return "", err
		}
		action.Kind = session.PendingCreate
		action.Summary = summary
		prompt = format.ConfirmCreate(summary, start.In(env.Location), end.In(env.Location), allDay)

	case tools.ToolUpdateEvent, tools.ToolDeleteEvent:
		target, err := a.toolbox.ResolveTarget(ctx, env, call.Name, call.Arguments)
		if err != nil {
			return "", err
		}
		// pin the exact event so a later confirmation cannot drift
		action.EventID = target.ID
		action.Summary = target.Summary
		call.Arguments["event_id"] = target.ID
		delete(call.Arguments, "query")
		if call.Name == tools.ToolUpdateEvent {
			action.Kind = session.PendingUpdate
			prompt = format.ConfirmUpdate(*target)
		} else {
			action.Kind = session.PendingDelete
			prompt = format.ConfirmDelete(*target)
		}

	default:
		return "", fmt.Errorf("unexpected mutating tool %q", call.Name)
	}

	if err := a.store.SetPendingAction(ctx, userID, action); err != nil {
		return "", err
	}
	return prompt, nil
}

func (a *Agent) executePending(ctx context.Context, userID string, pending *session.PendingAction, env tools.Env) (string, error) {
	if err := a.store.ClearPendingAction(ctx, userID); err != nil {
		return "", err
	}

	call := tools.Call{Arguments: pending.Arguments}
	switch pending.Kind {
	case session.PendingCreate:
		call.Name = tools.ToolCreateEvent
	case session.PendingUpdate:
		call.Name = tools.ToolUpdateEvent
	case session.PendingDelete:
		call.Name = tools.ToolDeleteEvent
	default:
		return "", fmt.Errorf("unknown pending action kind %q", pending.Kind)
	}

	res, err := a.executeWithRetry(ctx, env, call)
	if err != nil {
		return a.explainToolError(err)
	}

	switch res.Tool {
	case tools.ToolCreateEvent:
		return format.Created(*res.Event), nil
	case tools.ToolUpdateEvent:
		return format.Updated(*res.Event), nil
	default:
		return format.Deleted(*res.Event), nil
	}
}

// executeWithRetry retries exactly once on a transient backend failure
func (a *Agent) executeWithRetry(ctx context.Context, env tools.Env, call tools.Call) (*tools.Result, error) {
	res, err := a.toolbox.Execute(ctx, env, call)
	if err == nil || !google.IsTransientError(err) || ctx.Err() != nil {
		return res, err
	}
	a.logger.Warn("transient backend failure, retrying",
		zap.String("component", "agent"),
		zap.String("tool", call.Name),
		zap.Error(err))
	return a.toolbox.Execute(ctx, env, call)
}

// explainToolError turns expected tool failures into user-facing replies and
// passes everything else through as an error
func (a *Agent) explainToolError(err error) (string, error) {
	var ambTarget *tools.AmbiguousTargetError
	if errors.As(err, &ambTarget) {
		return format.Candidates(ambTarget.Query, ambTarget.Candidates), nil
	}

	var ambTime *timeparse.AmbiguousTimeError
	if errors.As(err, &ambTime) {
		return fmt.Sprintf("I couldn't pin down the time %q. Could you give me a specific date and time?", ambTime.Phrase), nil
	}

	var noMatch *tools.NoMatchError
	if errors.As(err, &noMatch) {
		return fmt.Sprintf("I couldn't find any event matching %q.", noMatch.Query), nil
	}

	var verr *tools.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("I can't do that: %s.", verr.Reason), nil
	}

	if google.IsAuthError(err) {
		return "I can't reach your calendar. Try /connect to link it again.", nil
	}
	if google.IsNotFoundError(err) {
		return "That event no longer exists.", nil
	}
	if google.IsTransientError(err) {
		return "The calendar service is having a moment. Please try again shortly.", nil
	}

	var berr *google.BackendError
	if errors.As(err, &berr) && berr.Kind == google.BackendFatal {
		return fmt.Sprintf("The calendar request failed: %v.", berr.Err), nil
	}
	return "", err
}

// createPreview extracts what a staged create will do, validating the same
// fields the tool itself will check
func createPreview(args map[string]any) (summary string, start, end time.Time, allDay bool, err error) {
	summary, _ = args["summary"].(string)
	if summary == "" {
		return "", time.Time{}, time.Time{}, false, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: "summary", Reason: "an event needs a title"}
	}
	start, err = parseRFC3339Arg(args, "start_time")
	if err != nil {
		return "", time.Time{}, time.Time{}, false, err
	}
	end, err = previewEnd(args, start)
	if err != nil {
		return "", time.Time{}, time.Time{}, false, err
	}
	if !end.After(start) {
		return "", time.Time{}, time.Time{}, false, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: "end_time", Reason: "the end time must be after the start time"}
	}
	allDay, _ = args["all_day"].(bool)
	return summary, start, end, allDay, nil
}

func parseRFC3339Arg(args map[string]any, key string) (time.Time, error) {
	v, _ := args[key].(string)
	if v == "" {
		return time.Time{}, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: key, Reason: "a start time is required"}
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: key, Reason: fmt.Sprintf("%q is not a valid timestamp", v)}
	}
	return ts, nil
}

// previewEnd mirrors the create tool's end handling: an explicit end_time
// wins, a duration_minutes argument is the alternative
func previewEnd(args map[string]any, start time.Time) (time.Time, error) {
	if v, _ := args["end_time"].(string); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: "end_time", Reason: fmt.Sprintf("%q is not a valid timestamp", v)}
		}
		return ts, nil
	}

	var mins int64
	switch v := args["duration_minutes"].(type) {
	case float64:
		mins = int64(v)
	case int:
		mins = int64(v)
	case int64:
		mins = v
	}
	if mins >= 1 {
		return start.Add(time.Duration(mins) * time.Minute), nil
	}
	return time.Time{}, &tools.ValidationError{Tool: tools.ToolCreateEvent, Field: "end_time", Reason: "an end time or duration is required"}
}

var affirmations = map[string]bool{
	"yes": true, "y": true, "yep": true, "yeah": true, "sure": true,
	"ok": true, "okay": true, "confirm": true, "do it": true, "yes please": true,
}

var negations = map[string]bool{
	"no": true, "n": true, "nope": true, "cancel": true, "stop": true,
	"no thanks": true, "don't": true, "dont": true, "never mind": true, "nevermind": true,
}

func isAffirmation(text string) bool {
	return affirmations[normalizeReply(text)]
}

func isNegation(text string) bool {
	return negations[normalizeReply(text)]
}

func normalizeReply(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	return strings.TrimRight(s, ".!")
}
