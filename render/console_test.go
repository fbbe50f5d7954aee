package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/liboccur/event"
)

func sampleEvents() []event.CalendarEvent {
	return []event.CalendarEvent{
		{
			ID:       "holiday",
			Subject:  "Company holiday",
			Start:    time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
			IsAllDay: true,
			ShowAs:   event.ShowAsFree,
		},
		{
			ID:       "standup",
			Subject:  "Daily standup",
			Start:    time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
			End:      time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC),
			Location: "Room 4",
			ShowAs:   event.ShowAsBusy,
		},
		{
			ID:          "sync",
			Subject:     "Weekly sync",
			Start:       time.Date(2025, 12, 2, 15, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 12, 2, 16, 0, 0, 0, time.UTC),
			ShowAs:      event.ShowAsTentative,
			IsCancelled: true,
		},
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	err := Console(&buf, sampleEvents(), time.UTC, DefaultConsoleOptions)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Mon 01 Dec 2025",
		"  [all day]    Company holiday [free]",
		"  09:00-09:30  Daily standup @ Room 4",
		"",
		"Tue 02 Dec 2025",
		"  15:00-16:00  Weekly sync [tentative] (cancelled)",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestConsole_LocalTimezone(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	events := []event.CalendarEvent{
		{
			ID:      "late",
			Subject: "Late call",
			// 01:30 UTC on Dec 2 is still Dec 1 in Denver (MST).
			Start: time.Date(2025, 12, 2, 1, 30, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 2, 2, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Console(&buf, events, denver, DefaultConsoleOptions))

	out := buf.String()
	assert.Contains(t, out, "Mon 01 Dec 2025")
	assert.Contains(t, out, "18:30-19:00  Late call")
}

func TestConsole_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Console(&buf, nil, time.UTC, DefaultConsoleOptions))
	assert.Empty(t, buf.String())
}

func TestConsole_NoTitle(t *testing.T) {
	events := []event.CalendarEvent{
		{
			ID:    "blank",
			Start: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Console(&buf, events, time.UTC, ConsoleOptions{}))
	assert.Contains(t, buf.String(), "(no title)")
}

func TestVoiceSummary(t *testing.T) {
	ref := time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		events []event.CalendarEvent
		want   string
	}{
		{
			name:   "no events",
			events: nil,
			want:   "You have no events scheduled today.",
		},
		{
			name: "single timed event",
			events: []event.CalendarEvent{
				{
					Subject: "Daily standup",
					Start:   time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
					End:     time.Date(2025, 12, 1, 9, 30, 0, 0, time.UTC),
				},
			},
			want: "You have 1 event today. First up: Daily standup at 9:00 AM.",
		},
		{
			name:   "all-day plus timed",
			events: sampleEvents()[:2],
			want:   "You have 2 events today. All day: Company holiday. First up: Daily standup at 9:00 AM.",
		},
		{
			name: "cancelled events are skipped",
			events: []event.CalendarEvent{
				{
					Subject:     "Ghost meeting",
					Start:       time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC),
					End:         time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
					IsCancelled: true,
				},
			},
			want: "You have no events scheduled today.",
		},
		{
			name: "other days do not count",
			events: []event.CalendarEvent{
				{
					Subject: "Tomorrow thing",
					Start:   time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
					End:     time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC),
				},
			},
			want: "You have no events scheduled today.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VoiceSummary(tt.events, ref, time.UTC))
		})
	}
}

func TestVoiceSummary_MultipleAllDay(t *testing.T) {
	ref := time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)
	mk := func(subject string) event.CalendarEvent {
		return event.CalendarEvent{
			Subject:  subject,
			Start:    time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
			IsAllDay: true,
		}
	}

	got := VoiceSummary([]event.CalendarEvent{mk("Holiday"), mk("Offsite"), mk("Moving day")}, ref, time.UTC)
	assert.Equal(t, "You have 3 events today. All day: Holiday, Offsite and Moving day.", got)
}
