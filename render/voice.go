package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/calyptra/liboccur/event"
)

// VoiceSummary phrases the reference day's events as a short spoken
// summary. Events should already be sorted by start time; cancelled
// events are skipped, they are not happening. A nil loc speaks in UTC.
func VoiceSummary(events []event.CalendarEvent, ref time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	day := ref.In(loc)

	var allDay, timed []event.CalendarEvent
	for _, ev := range events {
		if ev.IsCancelled || !sameDay(eventDay(ev, loc), day) {
			continue
		}
		if ev.IsAllDay {
			allDay = append(allDay, ev)
		} else {
			timed = append(timed, ev)
		}
	}

	total := len(allDay) + len(timed)
	if total == 0 {
		return "You have no events scheduled today."
	}

	noun := "events"
	if total == 1 {
		noun = "event"
	}
	parts := []string{fmt.Sprintf("You have %d %s today.", total, noun)}

	if len(allDay) > 0 {
		parts = append(parts, fmt.Sprintf("All day: %s.", joinSubjects(allDay)))
	}
	if len(timed) > 0 {
		first := timed[0]
		parts = append(parts, fmt.Sprintf("First up: %s at %s.",
			subjectOf(first), first.Start.In(loc).Format("3:04 PM")))
	}
	return strings.Join(parts, " ")
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func subjectOf(ev event.CalendarEvent) string {
	if ev.Subject == "" {
		return "an untitled event"
	}
	return ev.Subject
}

// joinSubjects lists subjects as natural speech: "A", "A and B",
// "A, B and C".
func joinSubjects(events []event.CalendarEvent) string {
	subjects := make([]string, len(events))
	for i, ev := range events {
		subjects[i] = subjectOf(ev)
	}
	switch len(subjects) {
	case 1:
		return subjects[0]
	case 2:
		return subjects[0] + " and " + subjects[1]
	default:
		return strings.Join(subjects[:len(subjects)-1], ", ") + " and " + subjects[len(subjects)-1]
	}
}
