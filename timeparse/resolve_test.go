package timeparse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestResolveInstant(t *testing.T) {
	newYork := mustLoadLocation(t, "America/New_York")
	// Wednesday morning, US Eastern daylight time
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, newYork)

	tests := []struct {
		name   string
		phrase string
		want   time.Time
	}{
		{
			name:   "tomorrow at 2pm",
			phrase: "tomorrow at 2pm",
			want:   time.Date(2024, 5, 2, 14, 0, 0, 0, newYork),
		},
		{
			name:   "today with minutes",
			phrase: "today at 10:30am",
			want:   time.Date(2024, 5, 1, 10, 30, 0, 0, newYork),
		},
		{
			name:   "bare time defaults to today",
			phrase: "at 3pm",
			want:   time.Date(2024, 5, 1, 15, 0, 0, 0, newYork),
		},
		{
			name:   "24 hour clock",
			phrase: "tomorrow at 14:30",
			want:   time.Date(2024, 5, 2, 14, 30, 0, 0, newYork),
		},
		{
			name:   "bare small hour leans afternoon",
			phrase: "friday at 3",
			want:   time.Date(2024, 5, 3, 15, 0, 0, 0, newYork),
		},
		{
			name:   "noon",
			phrase: "tomorrow at noon",
			want:   time.Date(2024, 5, 2, 12, 0, 0, 0, newYork),
		},
		{
			name:   "midnight am",
			phrase: "tomorrow at 12am",
			want:   time.Date(2024, 5, 2, 0, 0, 0, 0, newYork),
		},
		{
			name:   "relative hours",
			phrase: "in two hours",
			want:   time.Date(2024, 5, 1, 11, 0, 0, 0, newYork),
		},
		{
			name:   "relative minutes numeric",
			phrase: "in 30 minutes",
			want:   time.Date(2024, 5, 1, 9, 30, 0, 0, newYork),
		},
		{
			name:   "weekday same day rolls to next week",
			phrase: "wednesday at 9am",
			want:   time.Date(2024, 5, 8, 9, 0, 0, 0, newYork),
		},
		{
			name:   "next weekday",
			phrase: "next monday at 8am",
			want:   time.Date(2024, 5, 6, 8, 0, 0, 0, newYork),
		},
		{
			name:   "tonight",
			phrase: "tonight",
			want:   time.Date(2024, 5, 1, 20, 0, 0, 0, newYork),
		},
		{
			name:   "tomorrow evening",
			phrase: "tomorrow evening",
			want:   time.Date(2024, 5, 2, 18, 0, 0, 0, newYork),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveInstant(tt.phrase, now, newYork)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestResolveInstant_OffsetIsLocationAware(t *testing.T) {
	newYork := mustLoadLocation(t, "America/New_York")
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, newYork)

	got, err := ResolveInstant("tomorrow at 2pm", now, newYork)
	require.NoError(t, err)

	_, offset := got.Zone()
	assert.Equal(t, -4*3600, offset, "May in New York is EDT")
	assert.Equal(t, "2024-05-02T14:00:00-04:00", got.Format(time.RFC3339))
}

func TestResolveInstant_Ambiguous(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		phrase string
	}{
		{name: "empty", phrase: ""},
		{name: "whitespace", phrase: "   "},
		{name: "date without time", phrase: "tomorrow"},
		{name: "gibberish", phrase: "whenever works"},
		{name: "unknown quantity", phrase: "in several hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveInstant(tt.phrase, now, time.UTC)
			require.Error(t, err)

			var ambErr *AmbiguousTimeError
			require.ErrorAs(t, err, &ambErr)
			assert.Equal(t, tt.phrase, ambErr.Phrase)
			assert.NotEmpty(t, ambErr.Reason)
		})
	}
}

func TestResolveRange(t *testing.T) {
	newYork := mustLoadLocation(t, "America/New_York")
	// Wednesday May 1st
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, newYork)

	tests := []struct {
		name      string
		phrase    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "today",
			phrase:    "today",
			wantStart: time.Date(2024, 5, 1, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 2, 0, 0, 0, 0, newYork),
		},
		{
			name:      "tomorrow",
			phrase:    "tomorrow",
			wantStart: time.Date(2024, 5, 2, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 3, 0, 0, 0, 0, newYork),
		},
		{
			name:      "this week starts monday",
			phrase:    "this week",
			wantStart: time.Date(2024, 4, 29, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 6, 0, 0, 0, 0, newYork),
		},
		{
			name:      "next week",
			phrase:    "next week",
			wantStart: time.Date(2024, 5, 6, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 13, 0, 0, 0, 0, newYork),
		},
		{
			name:      "this weekend",
			phrase:    "this weekend",
			wantStart: time.Date(2024, 5, 4, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 6, 0, 0, 0, 0, newYork),
		},
		{
			name:      "weekday",
			phrase:    "friday",
			wantStart: time.Date(2024, 5, 3, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 4, 0, 0, 0, 0, newYork),
		},
		{
			name:      "next month",
			phrase:    "next month",
			wantStart: time.Date(2024, 6, 1, 0, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 7, 1, 0, 0, 0, 0, newYork),
		},
		{
			name:      "explicit time yields one hour window",
			phrase:    "tomorrow at 2pm",
			wantStart: time.Date(2024, 5, 2, 14, 0, 0, 0, newYork),
			wantEnd:   time.Date(2024, 5, 2, 15, 0, 0, 0, newYork),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRange(tt.phrase, now, newYork)
			require.NoError(t, err)
			assert.True(t, got.Start.Equal(tt.wantStart), "start: got %s want %s", got.Start, tt.wantStart)
			assert.True(t, got.End.Equal(tt.wantEnd), "end: got %s want %s", got.End, tt.wantEnd)
		})
	}
}

func TestResolveRange_Ambiguous(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := ResolveRange("sometime soon", now, time.UTC)
	require.Error(t, err)

	var ambErr *AmbiguousTimeError
	assert.True(t, errors.As(err, &ambErr))
}

func TestResolve_NilLocationDefaultsUTC(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	got, err := ResolveInstant("tomorrow at 2pm", now, nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
}

func TestResolve_Deterministic(t *testing.T) {
	newYork := mustLoadLocation(t, "America/New_York")
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, newYork)

	first, err := ResolveInstant("tomorrow at 2pm", now, newYork)
	require.NoError(t, err)
	second, err := ResolveInstant("Tomorrow at 2PM", now, newYork)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}
