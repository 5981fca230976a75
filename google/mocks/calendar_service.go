package google_mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"

	google "github.com/schedbot/schedbot/google"
)

// MockCalendarService provides an in-memory implementation for testing and
// demo mode. Events live in a map keyed by event ID; Err, when set, is
// returned by the next call and then cleared.
type MockCalendarService struct {
	mu     sync.Mutex
	events map[string]*calendar.Event

	// Err is returned by the next call then cleared
	Err error
}

// NewMockCalendarService creates an empty mock calendar
func NewMockCalendarService() *MockCalendarService {
	return &MockCalendarService{events: make(map[string]*calendar.Event)}
}

// Seed inserts events directly, assigning IDs where missing
func (m *MockCalendarService) Seed(events ...*calendar.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range events {
		if ev.Id == "" {
			ev.Id = uuid.New().String()
		}
		m.events[ev.Id] = ev
	}
}

func (m *MockCalendarService) takeErr() error {
	err := m.Err
	m.Err = nil
	return err
}

func (m *MockCalendarService) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	return m.SearchEvents(ctx, calendarID, "", timeMin, timeMax, maxResults)
}

func (m *MockCalendarService) SearchEvents(ctx context.Context, calendarID, query string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}

	var matched []*calendar.Event
	for _, ev := range m.events {
		start, ok := eventStart(ev)
		if !ok {
			continue
		}
		if start.Before(timeMin) || !start.Before(timeMax) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(ev.Summary), strings.ToLower(query)) {
			continue
		}
		matched = append(matched, ev)
	}

	sort.Slice(matched, func(i, j int) bool {
		si, _ := eventStart(matched[i])
		sj, _ := eventStart(matched[j])
		return si.Before(sj)
	})
	if maxResults > 0 && int64(len(matched)) > maxResults {
		matched = matched[:maxResults]
	}
	return matched, nil
}

func (m *MockCalendarService) CreateEvent(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	event.Id = uuid.New().String()
	m.events[event.Id] = event
	return event, nil
}

func (m *MockCalendarService) UpdateEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	event.Id = eventID
	m.events[eventID] = event
	return event, nil
}

func (m *MockCalendarService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	delete(m.events, eventID)
	return nil
}

func (m *MockCalendarService) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	if ev, ok := m.events[eventID]; ok {
		return ev, nil
	}
	return nil, &google.BackendError{
		Op:   "getEvent",
		Kind: google.BackendNotFound,
		Err:  &calendarNotFoundError{id: eventID},
	}
}

// Has reports whether the event still exists, for test assertions
func (m *MockCalendarService) Has(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok
}

// eventStart extracts a comparable start for timed and all-day events.
// Events with no usable start fall outside any search window.
func eventStart(ev *calendar.Event) (time.Time, bool) {
	if ev.Start == nil {
		return time.Time{}, false
	}
	if ev.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			return t, true
		}
	}
	if ev.Start.Date != "" {
		if d, err := time.Parse("2006-01-02", ev.Start.Date); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

type calendarNotFoundError struct{ id string }

func (e *calendarNotFoundError) Error() string {
	return "event not found: " + e.id
}
