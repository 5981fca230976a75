package google

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService represents the interface for interacting with Google Calendar API
type CalendarService interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error)
	SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error)
	CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error)
}

// CalendarServiceImpl implements the calendar service interface for Google Calendar API
type CalendarServiceImpl struct {
	service *calendar.Service
	logger  *zap.Logger
}

// NewCalendarService creates a new Google Calendar service using ambient or
// explicitly provided credentials (service account JSON or credentials file)
func NewCalendarService(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (CalendarService, error) {
	scopesOption := option.WithScopes(
		calendar.CalendarReadonlyScope,
		calendar.CalendarScope,
	)

	allOptions := append([]option.ClientOption{scopesOption}, opts...)

	svc, err := calendar.NewService(ctx, allOptions...)
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &CalendarServiceImpl{service: svc, logger: logger}, nil
}

// NewCalendarServiceWithTokenSource creates a calendar service bound to a
// single user's OAuth credentials. The token source comes from the external
// OAuth collaborator; refresh and expiry are its concern, not ours.
func NewCalendarServiceWithTokenSource(ctx context.Context, logger *zap.Logger, ts oauth2.TokenSource) (CalendarService, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &CalendarServiceImpl{service: svc, logger: logger}, nil
}

// ListEvents retrieves events from the calendar within the specified time range,
// ordered chronologically by start time
func (g *CalendarServiceImpl) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	g.logger.Debug("listing events",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "list-events"),
		zap.String("calendarID", calendarID),
		zap.Time("timeMin", timeMin),
		zap.Time("timeMax", timeMax),
		zap.Int64("maxResults", maxResults))

	call := g.service.Events.List(calendarID).
		Context(ctx).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		OrderBy("startTime").
		SingleEvents(true)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	events, err := call.Do()
	if err != nil {
		g.logger.Error("failed to retrieve events from google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "list-events"),
			zap.String("calendarID", calendarID),
			zap.Error(err))
		return nil, wrapBackendErr("list-events", err)
	}

	g.logger.Info("successfully retrieved events",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "list-events"),
		zap.String("calendarID", calendarID),
		zap.Int("eventCount", len(events.Items)))

	return events.Items, nil
}

// SearchEvents retrieves events matching a free-text query within the time range,
// ordered chronologically by start time
func (g *CalendarServiceImpl) SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	g.logger.Debug("searching events",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "search-events"),
		zap.String("calendarID", calendarID),
		zap.String("query", query),
		zap.Time("timeMin", timeMin),
		zap.Time("timeMax", timeMax))

	call := g.service.Events.List(calendarID).
		Context(ctx).
		Q(query).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		OrderBy("startTime").
		SingleEvents(true)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	events, err := call.Do()
	if err != nil {
		g.logger.Error("failed to search events in google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "search-events"),
			zap.String("calendarID", calendarID),
			zap.String("query", query),
			zap.Error(err))
		return nil, wrapBackendErr("search-events", err)
	}

	g.logger.Info("successfully searched events",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "search-events"),
		zap.String("calendarID", calendarID),
		zap.String("query", query),
		zap.Int("eventCount", len(events.Items)))

	return events.Items, nil
}

// CreateEvent creates a new event in the calendar
func (g *CalendarServiceImpl) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	g.logger.Debug("creating event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "create-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventSummary", event.Summary))

	createdEvent, err := g.service.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Error("failed to create event in google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "create-event"),
			zap.String("calendarID", calendarID),
			zap.String("eventSummary", event.Summary),
			zap.Error(err))
		return nil, wrapBackendErr("create-event", err)
	}

	g.logger.Info("successfully created event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "create-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", createdEvent.Id),
		zap.String("eventSummary", createdEvent.Summary))

	return createdEvent, nil
}

// UpdateEvent updates an existing event in the calendar
func (g *CalendarServiceImpl) UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	g.logger.Debug("updating event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "update-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", eventID))

	updatedEvent, err := g.service.Events.Update(calendarID, eventID, event).Context(ctx).Do()
	if err != nil {
		g.logger.Error("failed to update event in google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "update-event"),
			zap.String("calendarID", calendarID),
			zap.String("eventID", eventID),
			zap.Error(err))
		return nil, wrapBackendErr("update-event", err)
	}

	g.logger.Info("successfully updated event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "update-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", eventID),
		zap.String("eventSummary", updatedEvent.Summary))

	return updatedEvent, nil
}

// DeleteEvent removes an event from the calendar
func (g *CalendarServiceImpl) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	g.logger.Debug("deleting event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "delete-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", eventID))

	err := g.service.Events.Delete(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		g.logger.Error("failed to delete event from google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "delete-event"),
			zap.String("calendarID", calendarID),
			zap.String("eventID", eventID),
			zap.Error(err))
		return wrapBackendErr("delete-event", err)
	}

	g.logger.Info("successfully deleted event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "delete-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", eventID))

	return nil
}

// GetEvent retrieves a specific event from the calendar
func (g *CalendarServiceImpl) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	g.logger.Debug("getting event",
		zap.String("component", "google-calendar-service"),
		zap.String("operation", "get-event"),
		zap.String("calendarID", calendarID),
		zap.String("eventID", eventID))

	event, err := g.service.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		g.logger.Error("failed to get event from google calendar api",
			zap.String("component", "google-calendar-service"),
			zap.String("operation", "get-event"),
			zap.String("calendarID", calendarID),
			zap.String("eventID", eventID),
			zap.Error(err))
		return nil, wrapBackendErr("get-event", err)
	}

	return event, nil
}
