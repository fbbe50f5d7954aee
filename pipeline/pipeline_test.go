package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/liboccur/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func timedEvent(id string, start time.Time, d time.Duration) event.CalendarEvent {
	return event.CalendarEvent{
		ID:      id,
		Subject: "Event " + id,
		Start:   start,
		End:     start.Add(d),
		ShowAs:  event.ShowAsBusy,
	}
}

func TestInWindow(t *testing.T) {
	ws := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	we := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{
			name:  "fully inside",
			start: time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "straddles window start",
			start: time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 1, 1, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "straddles window end",
			start: time.Date(2025, 12, 7, 23, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 8, 1, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "ends exactly at window start",
			start: time.Date(2025, 11, 30, 23, 0, 0, 0, time.UTC),
			end:   ws,
			want:  false,
		},
		{
			name:  "starts exactly at window end",
			start: we,
			end:   we.Add(time.Hour),
			want:  false,
		},
		{
			name:  "entirely before",
			start: time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "entirely after",
			start: time.Date(2025, 12, 20, 9, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "spans entire window",
			start: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "zero duration inside",
			start: time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "zero duration at window start",
			start: ws,
			end:   ws,
			want:  true,
		},
		{
			name:  "zero duration at window end",
			start: we,
			end:   we,
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := event.CalendarEvent{ID: "e", Start: tt.start, End: tt.end}
			assert.Equal(t, tt.want, InWindow(ev, ws, we))
		})
	}
}

func TestPipeline_Run(t *testing.T) {
	ws := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	we := time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)

	inside := timedEvent("in-1", time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC), time.Hour)
	outside := timedEvent("out-1", time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC), time.Hour)
	late := timedEvent("in-2", time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC), time.Hour)

	p := New(testLogger())
	pc := &Context{
		Events:      []event.CalendarEvent{late, inside, inside, outside},
		WindowStart: ws,
		WindowEnd:   we,
	}
	p.Run(pc)

	require.False(t, pc.Failed)
	require.Len(t, pc.Events, 2)
	assert.Equal(t, "in-1", pc.Events[0].ID)
	assert.Equal(t, "in-2", pc.Events[1].ID)
}

func TestPipeline_SortIsStable(t *testing.T) {
	start := time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC)
	a := timedEvent("a", start, time.Hour)
	b := timedEvent("b", start, 30*time.Minute)
	c := timedEvent("c", start.Add(-time.Hour), time.Hour)

	p := New(testLogger())
	pc := &Context{
		Events:      []event.CalendarEvent{a, b, c},
		WindowStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC),
	}
	p.Run(pc)

	require.False(t, pc.Failed)
	require.Len(t, pc.Events, 3)
	assert.Equal(t, "c", pc.Events[0].ID)
	// Equal start times keep their input order.
	assert.Equal(t, "a", pc.Events[1].ID)
	assert.Equal(t, "b", pc.Events[2].ID)
}

func TestPipeline_MissingWindowFails(t *testing.T) {
	p := New(testLogger())
	pc := &Context{
		Events: []event.CalendarEvent{
			timedEvent("e", time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC), time.Hour),
		},
	}
	p.Run(pc)

	require.True(t, pc.Failed)
	assert.Equal(t, "window", pc.FailedStage)
	assert.ErrorIs(t, pc.Err, ErrNoWindow)
}

func TestPipeline_EmptyInput(t *testing.T) {
	p := New(testLogger())
	pc := &Context{
		WindowStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC),
	}
	p.Run(pc)

	require.False(t, pc.Failed)
	assert.Empty(t, pc.Events)
}
