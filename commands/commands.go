// Package commands handles the slash commands that sit outside the
// conversational flow: account linking, status, preferences and the daily
// summary.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	zap "go.uber.org/zap"

	format "github.com/schedbot/schedbot/format"
	google "github.com/schedbot/schedbot/google"
	session "github.com/schedbot/schedbot/session"
	tools "github.com/schedbot/schedbot/tools"
)

const helpText = `Here's what I can do:
/connect - link your Google Calendar
/disconnect - unlink your calendar and forget your data
/status - show your connection and timezone
/set_timezone <zone> - set your IANA timezone, e.g. /set_timezone Europe/Berlin
/summary - today's events at a glance
/help - this message

Or just tell me what you need: "schedule lunch with Sam tomorrow at noon",
"what's on my calendar this week", "cancel my dentist appointment".`

// Options tune command behavior
type Options struct {
	CalendarID      string
	DefaultTimezone string
}

// Dispatcher routes slash commands
type Dispatcher struct {
	logger  *zap.Logger
	store   session.Store
	auth    google.Authorizer
	toolbox *tools.Toolbox
	opts    Options
	now     func() time.Time
}

// NewDispatcher creates a command dispatcher
func NewDispatcher(logger *zap.Logger, store session.Store, auth google.Authorizer, toolbox *tools.Toolbox, opts Options) *Dispatcher {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.DefaultTimezone == "" {
		opts.DefaultTimezone = "UTC"
	}
	return &Dispatcher{
		logger:  logger,
		store:   store,
		auth:    auth,
		toolbox: toolbox,
		opts:    opts,
		now:     time.Now,
	}
}

// IsCommand reports whether the message is a slash command
func IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// Handle executes a slash command and returns the reply
func (d *Dispatcher) Handle(ctx context.Context, userID, text string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return helpText, nil
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	args := fields[1:]

	d.logger.Info("handling command",
		zap.String("component", "commands"),
		zap.String("command", name),
		zap.String("user_id", userID))

	switch name {
	case "start":
		return "Hi! I'm your calendar assistant. Link your Google Calendar with /connect to get going.\n\n" + helpText, nil
	case "help":
		return helpText, nil
	case "connect":
		return d.handleConnect(ctx, userID)
	case "disconnect":
		return d.handleDisconnect(ctx, userID)
	case "status":
		return d.handleStatus(ctx, userID)
	case "set_timezone", "settimezone", "timezone":
		return d.handleSetTimezone(ctx, userID, args)
	case "summary":
		return d.handleSummary(ctx, userID)
	default:
		return fmt.Sprintf("I don't know the command /%s. Try /help.", name), nil
	}
}

func (d *Dispatcher) handleConnect(ctx context.Context, userID string) (string, error) {
	prefs, err := d.store.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}
	if prefs.Connected {
		return "Your calendar is already connected. Use /disconnect first if you want to relink it.", nil
	}

	url, err := d.auth.BeginAuth(userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Open this link to connect your Google Calendar:\n%s", url), nil
}

func (d *Dispatcher) handleDisconnect(ctx context.Context, userID string) (string, error) {
	if err := d.auth.Revoke(userID); err != nil {
		return "", err
	}

	prefs, err := d.store.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}
	prefs.Connected = false
	if err := d.store.SetPreferences(ctx, userID, prefs); err != nil {
		return "", err
	}
	if err := d.store.ClearHistory(ctx, userID); err != nil {
		return "", err
	}
	if err := d.store.ClearPendingAction(ctx, userID); err != nil {
		return "", err
	}
	return "Your calendar is disconnected and I've forgotten our conversation.", nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, userID string) (string, error) {
	prefs, err := d.store.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}

	connected := "not connected"
	if prefs.Connected {
		connected = "connected"
	}
	tz := prefs.Timezone
	if tz == "" {
		tz = d.opts.DefaultTimezone + " (default)"
	}
	return fmt.Sprintf("Calendar: %s\nTimezone: %s", connected, tz), nil
}

func (d *Dispatcher) handleSetTimezone(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) != 1 {
		return "Usage: /set_timezone <zone>, for example /set_timezone America/New_York", nil
	}

	zone := args[0]
	if _, err := time.LoadLocation(zone); err != nil {
		return fmt.Sprintf("%q is not a valid IANA timezone. Try something like Europe/Berlin or America/New_York.", zone), nil
	}

	prefs, err := d.store.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}
	prefs.Timezone = zone
	if err := d.store.SetPreferences(ctx, userID, prefs); err != nil {
		return "", err
	}
	return fmt.Sprintf("Timezone set to %s.", zone), nil
}

func (d *Dispatcher) handleSummary(ctx context.Context, userID string) (string, error) {
	prefs, err := d.store.Preferences(ctx, userID)
	if err != nil {
		return "", err
	}
	if !prefs.Connected {
		return "Connect your calendar first with /connect.", nil
	}

	loc := d.location(prefs)
	now := d.now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	res, err := d.toolbox.Execute(ctx, tools.Env{
		UserID:     userID,
		CalendarID: d.opts.CalendarID,
		Now:        now,
		Location:   loc,
	}, tools.Call{
		Name: tools.ToolSearchEvents,
		Arguments: map[string]any{
			"time_min": dayStart.Format(time.RFC3339),
			"time_max": dayStart.AddDate(0, 0, 1).Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", err
	}

	if len(res.Events) == 0 {
		return "Your day is clear.", nil
	}
	return "Today:\n" + format.EventList(res.Events), nil
}

func (d *Dispatcher) location(prefs session.Preferences) *time.Location {
	name := prefs.Timezone
	if name == "" {
		name = d.opts.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
