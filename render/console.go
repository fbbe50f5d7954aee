// Package render produces human-facing renditions of consolidated
// event lists: a day-grouped console agenda and a spoken-style
// one-liner.
package render

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/calyptra/liboccur/event"
)

// ConsoleOptions controls the agenda layout.
type ConsoleOptions struct {
	// TimeFormat renders the start and end of timed events.
	TimeFormat string
	// DayFormat renders the day headers.
	DayFormat string
}

// DefaultConsoleOptions provides sensible defaults for terminal output.
var DefaultConsoleOptions = ConsoleOptions{
	TimeFormat: "15:04",
	DayFormat:  "Mon 02 Jan 2006",
}

func (o *ConsoleOptions) normalize() {
	if o.TimeFormat == "" {
		o.TimeFormat = DefaultConsoleOptions.TimeFormat
	}
	if o.DayFormat == "" {
		o.DayFormat = DefaultConsoleOptions.DayFormat
	}
}

// Console writes a day-grouped agenda. Events should already be sorted
// by start time; timed events render in loc, all-day events on their
// calendar date. A nil loc renders in UTC.
func Console(w io.Writer, events []event.CalendarEvent, loc *time.Location, opts ConsoleOptions) error {
	if loc == nil {
		loc = time.UTC
	}
	opts.normalize()

	type bucket struct {
		day    time.Time
		allDay []event.CalendarEvent
		timed  []event.CalendarEvent
	}
	byDay := make(map[string]*bucket)
	var keys []string
	for _, ev := range events {
		day := eventDay(ev, loc)
		key := day.Format("20060102")
		b, ok := byDay[key]
		if !ok {
			b = &bucket{day: day}
			byDay[key] = b
			keys = append(keys, key)
		}
		if ev.IsAllDay {
			b.allDay = append(b.allDay, ev)
		} else {
			b.timed = append(b.timed, ev)
		}
	}
	sort.Strings(keys)

	bw := bufio.NewWriter(w)
	for i, key := range keys {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		b := byDay[key]
		fmt.Fprintln(bw, b.day.Format(opts.DayFormat))
		for _, ev := range b.allDay {
			fmt.Fprintf(bw, "  %-11s  %s\n", "[all day]", eventLine(ev))
		}
		for _, ev := range b.timed {
			span := ev.Start.In(loc).Format(opts.TimeFormat) + "-" + ev.End.In(loc).Format(opts.TimeFormat)
			fmt.Fprintf(bw, "  %-11s  %s\n", span, eventLine(ev))
		}
	}
	return bw.Flush()
}

// eventDay returns the calendar date an event is listed under: the UTC
// date for all-day events, the local date for timed ones.
func eventDay(ev event.CalendarEvent, loc *time.Location) time.Time {
	if ev.IsAllDay {
		t := ev.Start.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	t := ev.Start.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func eventLine(ev event.CalendarEvent) string {
	line := ev.Subject
	if line == "" {
		line = "(no title)"
	}
	if ev.Location != "" {
		line += " @ " + ev.Location
	}
	if tag := showAsTag(ev.ShowAs); tag != "" {
		line += " [" + tag + "]"
	}
	if ev.IsCancelled {
		line += " (cancelled)"
	}
	return line
}

// showAsTag labels the non-default availability states. Busy is the
// default and renders untagged.
func showAsTag(s event.ShowAs) string {
	switch s {
	case event.ShowAsFree:
		return "free"
	case event.ShowAsTentative:
		return "tentative"
	case event.ShowAsOutOfOffice:
		return "out of office"
	case event.ShowAsWorkingElsewhere:
		return "working elsewhere"
	default:
		return ""
	}
}
