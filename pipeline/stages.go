package pipeline

import (
	"errors"
	"sort"
	"time"

	"github.com/calyptra/liboccur/event"
)

// ErrNoWindow is returned by the window stage when the context carries
// zero window bounds. That is caller error, not data.
var ErrNoWindow = errors.New("pipeline: window bounds not set")

// InWindow reports whether an event overlaps the half-open window
// [start, end). Zero-duration events count as inside when their instant
// satisfies start <= t < end, so an instantaneous reminder sitting
// exactly on the window start is kept.
func InWindow(ev event.CalendarEvent, start, end time.Time) bool {
	if !ev.End.After(ev.Start) {
		return !ev.Start.Before(start) && ev.Start.Before(end)
	}
	return ev.Start.Before(end) && ev.End.After(start)
}

type dedupStage struct{}

func (dedupStage) Name() string { return "dedup" }

func (dedupStage) Run(pc *Context) error {
	pc.Events = event.Deduplicate(pc.Events)
	return nil
}

type windowStage struct{}

func (windowStage) Name() string { return "window" }

func (windowStage) Run(pc *Context) error {
	if pc.WindowStart.IsZero() || pc.WindowEnd.IsZero() {
		return ErrNoWindow
	}
	kept := pc.Events[:0]
	for _, ev := range pc.Events {
		if InWindow(ev, pc.WindowStart, pc.WindowEnd) {
			kept = append(kept, ev)
		}
	}
	pc.Events = kept
	return nil
}

type sortStage struct{}

func (sortStage) Name() string { return "sort" }

func (sortStage) Run(pc *Context) error {
	sort.SliceStable(pc.Events, func(i, j int) bool {
		return pc.Events[i].Start.Before(pc.Events[j].Start)
	})
	return nil
}
