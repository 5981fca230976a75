package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zap "go.uber.org/zap"
	calendar "google.golang.org/api/calendar/v3"

	google "github.com/schedbot/schedbot/google"
	google_mocks "github.com/schedbot/schedbot/google/mocks"
	timeparse "github.com/schedbot/schedbot/timeparse"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testEnv() Env {
	return Env{CalendarID: "primary", Now: testNow, Location: time.UTC}
}

func seededToolbox(t *testing.T, events ...*calendar.Event) (*Toolbox, *google_mocks.MockCalendarService) {
	t.Helper()
	mock := google_mocks.NewMockCalendarService()
	mock.Seed(events...)
	return NewToolbox(zap.NewNop(), mock, 25), mock
}

func timedEvent(id, summary string, start time.Time) *calendar.Event {
	return &calendar.Event{
		Id:      id,
		Summary: summary,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	tb, _ := seededToolbox(t)

	_, err := tb.Execute(context.Background(), testEnv(), Call{Name: "launch_rocket"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateEvent(t *testing.T) {
	tb, mock := seededToolbox(t)

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name: ToolCreateEvent,
		Arguments: map[string]any{
			"summary":    "Team sync",
			"start_time": "2024-05-02T14:00:00Z",
			"end_time":   "2024-05-02T15:00:00Z",
			"location":   "Room 4",
			"attendees":  []any{"bob@example.com"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Event)
	assert.Equal(t, "Team sync", res.Event.Summary)
	assert.Equal(t, "Room 4", res.Event.Location)
	assert.NotEmpty(t, res.Event.ID)
	assert.True(t, mock.Has(res.Event.ID))
}

func TestCreateEvent_WithDuration(t *testing.T) {
	tb, _ := seededToolbox(t)

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name: ToolCreateEvent,
		Arguments: map[string]any{
			"summary":          "Standup",
			"start_time":       "2024-05-02T14:00:00Z",
			"duration_minutes": float64(30),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Event)
	assert.Equal(t, "2024-05-02T14:30:00Z", res.Event.End.Format(time.RFC3339))
}

func TestCreateEvent_ExplicitEndWinsOverDuration(t *testing.T) {
	tb, _ := seededToolbox(t)

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name: ToolCreateEvent,
		Arguments: map[string]any{
			"summary":          "Standup",
			"start_time":       "2024-05-02T14:00:00Z",
			"end_time":         "2024-05-02T16:00:00Z",
			"duration_minutes": float64(30),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02T16:00:00Z", res.Event.End.Format(time.RFC3339))
}

func TestCreateEvent_Validation(t *testing.T) {
	tb, _ := seededToolbox(t)

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{
			name:  "missing summary",
			args:  map[string]any{"start_time": "2024-05-02T14:00:00Z", "end_time": "2024-05-02T15:00:00Z"},
			field: "summary",
		},
		{
			name:  "missing start",
			args:  map[string]any{"summary": "x", "end_time": "2024-05-02T15:00:00Z"},
			field: "start_time",
		},
		{
			name:  "malformed start",
			args:  map[string]any{"summary": "x", "start_time": "tomorrow", "end_time": "2024-05-02T15:00:00Z"},
			field: "start_time",
		},
		{
			name:  "no end or duration",
			args:  map[string]any{"summary": "x", "start_time": "2024-05-02T14:00:00Z"},
			field: "end_time",
		},
		{
			name:  "zero duration",
			args:  map[string]any{"summary": "x", "start_time": "2024-05-02T14:00:00Z", "duration_minutes": 0},
			field: "duration_minutes",
		},
		{
			name:  "end before start",
			args:  map[string]any{"summary": "x", "start_time": "2024-05-02T15:00:00Z", "end_time": "2024-05-02T14:00:00Z"},
			field: "end_time",
		},
		{
			name:  "end equals start",
			args:  map[string]any{"summary": "x", "start_time": "2024-05-02T15:00:00Z", "end_time": "2024-05-02T15:00:00Z"},
			field: "end_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tb.Execute(context.Background(), testEnv(), Call{Name: ToolCreateEvent, Arguments: tt.args})
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSearchEvents(t *testing.T) {
	tb, _ := seededToolbox(t,
		timedEvent("e1", "Dentist appointment", testNow.Add(24*time.Hour)),
		timedEvent("e2", "Team standup", testNow.Add(26*time.Hour)),
		timedEvent("e3", "Dentist follow-up", testNow.Add(48*time.Hour)),
	)

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolSearchEvents,
		Arguments: map[string]any{"query": "dentist"},
	})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "Dentist appointment", res.Events[0].Summary, "results are chronological")
	assert.Equal(t, "Dentist follow-up", res.Events[1].Summary)
}

func TestSearchEvents_DefaultWindow(t *testing.T) {
	tb, _ := seededToolbox(t,
		timedEvent("soon", "Within window", testNow.Add(2*24*time.Hour)),
		timedEvent("far", "Beyond window", testNow.Add(30*24*time.Hour)),
	)

	res, err := tb.Execute(context.Background(), testEnv(), Call{Name: ToolSearchEvents, Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Within window", res.Events[0].Summary)
}

func TestUpdateEvent_ByID(t *testing.T) {
	tb, _ := seededToolbox(t, timedEvent("e1", "Lunch", testNow.Add(24*time.Hour)))

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name: ToolUpdateEvent,
		Arguments: map[string]any{
			"event_id": "e1",
			"summary":  "Lunch with Sam",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lunch with Sam", res.Event.Summary)
}

func TestUpdateEvent_NoFields(t *testing.T) {
	tb, _ := seededToolbox(t, timedEvent("e1", "Lunch", testNow.Add(24*time.Hour)))

	_, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolUpdateEvent,
		Arguments: map[string]any{"event_id": "e1"},
	})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "arguments", verr.Field)
}

func TestDeleteEvent_SingleMatchByQuery(t *testing.T) {
	tb, mock := seededToolbox(t, timedEvent("e1", "Dentist", testNow.Add(24*time.Hour)))

	res, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolDeleteEvent,
		Arguments: map[string]any{"query": "dentist"},
	})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, "e1", res.Event.ID)
	assert.False(t, mock.Has("e1"))
}

func TestDeleteEvent_AmbiguousQueryRefused(t *testing.T) {
	tb, mock := seededToolbox(t,
		timedEvent("e1", "Dentist cleaning", testNow.Add(24*time.Hour)),
		timedEvent("e2", "Dentist checkup", testNow.Add(48*time.Hour)),
	)

	_, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolDeleteEvent,
		Arguments: map[string]any{"query": "dentist"},
	})
	require.Error(t, err)

	var ambErr *AmbiguousTargetError
	require.ErrorAs(t, err, &ambErr)
	assert.Len(t, ambErr.Candidates, 2)
	assert.True(t, mock.Has("e1"), "nothing was deleted")
	assert.True(t, mock.Has("e2"))
}

func TestDeleteEvent_NoMatch(t *testing.T) {
	tb, _ := seededToolbox(t, timedEvent("e1", "Lunch", testNow.Add(24*time.Hour)))

	_, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolDeleteEvent,
		Arguments: map[string]any{"query": "dentist"},
	})
	require.Error(t, err)

	var noMatch *NoMatchError
	require.ErrorAs(t, err, &noMatch)
	assert.Equal(t, "dentist", noMatch.Query)
}

func TestDeleteEvent_RequiresTarget(t *testing.T) {
	tb, _ := seededToolbox(t)

	_, err := tb.Execute(context.Background(), testEnv(), Call{Name: ToolDeleteEvent, Arguments: map[string]any{}})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResolveTime(t *testing.T) {
	tb, _ := seededToolbox(t)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	env := Env{CalendarID: "primary", Now: time.Date(2024, 5, 1, 9, 0, 0, 0, newYork), Location: newYork}
	res, err := tb.Execute(context.Background(), env, Call{
		Name:      ToolResolveTime,
		Arguments: map[string]any{"phrase": "tomorrow at 2pm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02T14:00:00-04:00", res.Start.Format(time.RFC3339))
}

func TestResolveTime_Ambiguous(t *testing.T) {
	tb, _ := seededToolbox(t)

	_, err := tb.Execute(context.Background(), testEnv(), Call{
		Name:      ToolResolveTime,
		Arguments: map[string]any{"phrase": "whenever"},
	})
	require.Error(t, err)

	var ambErr *timeparse.AmbiguousTimeError
	require.ErrorAs(t, err, &ambErr)
}

// perUserProvider hands each user their own mock calendar
type perUserProvider struct {
	backends map[string]google.CalendarService
}

func (p *perUserProvider) ServiceFor(_ context.Context, userID string) (google.CalendarService, error) {
	svc, ok := p.backends[userID]
	if !ok {
		return nil, &google.BackendError{Op: "serviceFor", Kind: google.BackendAuth}
	}
	return svc, nil
}

func TestExecute_UsesPerUserBackend(t *testing.T) {
	aliceCal := google_mocks.NewMockCalendarService()
	bobCal := google_mocks.NewMockCalendarService()
	tb := NewToolboxWithProvider(zap.NewNop(), &perUserProvider{
		backends: map[string]google.CalendarService{"alice": aliceCal, "bob": bobCal},
	}, 25)

	env := testEnv()
	env.UserID = "alice"
	res, err := tb.Execute(context.Background(), env, Call{
		Name: ToolCreateEvent,
		Arguments: map[string]any{
			"summary":    "Alice only",
			"start_time": "2024-05-02T14:00:00Z",
			"end_time":   "2024-05-02T15:00:00Z",
		},
	})
	require.NoError(t, err)
	assert.True(t, aliceCal.Has(res.Event.ID))
	assert.False(t, bobCal.Has(res.Event.ID), "event must not land on another user's calendar")
}

func TestExecute_UnknownUserGetsAuthError(t *testing.T) {
	tb := NewToolboxWithProvider(zap.NewNop(), &perUserProvider{backends: map[string]google.CalendarService{}}, 25)

	env := testEnv()
	env.UserID = "stranger"
	_, err := tb.Execute(context.Background(), env, Call{Name: ToolSearchEvents, Arguments: map[string]any{}})
	require.Error(t, err)
	assert.True(t, google.IsAuthError(err))
}

// deadlineService records whether calls arrive with a context deadline
type deadlineService struct {
	google.CalendarService
	sawDeadline bool
}

func (d *deadlineService) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) ([]*calendar.Event, error) {
	_, d.sawDeadline = ctx.Deadline()
	return d.CalendarService.ListEvents(ctx, calendarID, timeMin, timeMax, maxResults)
}

func TestExecute_BoundsBackendCalls(t *testing.T) {
	svc := &deadlineService{CalendarService: google_mocks.NewMockCalendarService()}
	tb := NewToolbox(zap.NewNop(), svc, 25).WithRequestTimeout(5 * time.Second)

	_, err := tb.Execute(context.Background(), testEnv(), Call{Name: ToolSearchEvents, Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.True(t, svc.sawDeadline, "backend calls carry a deadline")
}

func TestCallMutating(t *testing.T) {
	assert.True(t, Call{Name: ToolCreateEvent}.Mutating())
	assert.True(t, Call{Name: ToolUpdateEvent}.Mutating())
	assert.True(t, Call{Name: ToolDeleteEvent}.Mutating())
	assert.False(t, Call{Name: ToolSearchEvents}.Mutating())
	assert.False(t, Call{Name: ToolResolveTime}.Mutating())
}
